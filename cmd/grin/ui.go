package main

import "github.com/fatih/color"

// Output colours. fatih/color turns them off for non-TTY output and NO_COLOR.
var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	warning = color.New(color.FgYellow)
	header  = color.New(color.Bold)
	dim     = color.New(color.Faint)
)
