package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rohankatakam/grin/internal/config"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage grin configuration",
	Long:  `View and initialize grin configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, config file, .env files and
environment variables are applied. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var forceInit bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize configuration file",
	Long: `Write the effective configuration to path (default .grin/config.yaml).
Secrets are never written; provide them through NEO4J_PASSWORD and
POSTGRES_DSN instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.Neo4j.Password != "" {
		shown.Neo4j.Password = "********"
	}
	shown.Postgres.DSN = redactURL(shown.Postgres.DSN)

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return gerrors.InternalErrorf("marshal config: %v", err)
	}
	out := cmd.OutOrStdout()
	dim.Fprintf(out, "# mode: %s\n", config.DetectMode())
	fmt.Fprint(out, string(data))

	result := cfg.Validate()
	for _, w := range result.Warnings {
		warning.Fprintf(out, "# warning: %s\n", w)
	}
	for _, e := range result.Errors {
		failure.Fprintf(out, "# error: %s\n", e)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(".grin", "config.yaml")
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !forceInit {
		return gerrors.ConfigErrorf("%s already exists (use --force to overwrite)", path)
	}
	if err := cfg.Save(path); err != nil {
		return gerrors.FileSystemError(err, "save config")
	}
	success.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}
