package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rohankatakam/grin/internal/conformance"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/spf13/cobra"
)

var checkConcurrency int

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured store against the retrieval contract",
	Long: `Check runs the conformance suite against the configured store: feature
gating, original-ID round trips, property names and typed reads. Groups the
store does not enable are skipped. Exits non-zero when any check fails.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkConcurrency, "concurrency", 4, "checks to run in parallel")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := conformance.New(store, checkConcurrency, logger.Logger).Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	header.Fprintf(out, "Conformance: %s (%s)\n", report.GraphID, cfg.Backend)
	fmt.Fprintf(out, "%s\n", strings.Repeat("═", 50))
	fmt.Fprintf(out, "Features: %s\n\n", report.Features)

	for _, r := range report.Results {
		switch r.Status() {
		case "pass":
			success.Fprintf(out, "  ✓ %-20s", r.Name)
		case "skip":
			warning.Fprintf(out, "  - %-20s", r.Name)
		default:
			failure.Fprintf(out, "  ✗ %-20s", r.Name)
		}
		dim.Fprintf(out, " %6d checked  %s\n", r.Checked, r.Duration.Round(time.Microsecond))
		if r.Err != nil && r.Status() == "fail" {
			fmt.Fprintf(out, "      %v\n", r.Err)
		}
	}

	failed := report.Failed()
	fmt.Fprintln(out)
	if len(failed) > 0 {
		failure.Fprintf(out, "%d of %d checks failed\n", len(failed), len(report.Results))
		return gerrors.ValidationErrorf("%d conformance checks failed", len(failed))
	}
	success.Fprintf(out, "All checks passed\n")
	return nil
}
