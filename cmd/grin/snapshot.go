package main

import (
	"bufio"
	"fmt"
	"os"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/snapshot"
	"github.com/spf13/cobra"
)

var dumpLevel int

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Write the configured store to a compressed snapshot",
	Long: `Dump streams schema, vertices and edges of the configured store into a
zstd-compressed snapshot. Property values are included when the property and
property-name features are enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Rebuild a snapshot into the configured store",
	Long: `Restore reads a snapshot written by dump into the configured store, which
may use a different backend than the one the snapshot was taken from. The
store must be empty.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	dumpCmd.Flags().IntVar(&dumpLevel, "level", 0, "zstd level (1-22, 0 = default)")
}

func runDump(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Create(args[0])
	if err != nil {
		return gerrors.FileSystemErrorf(err, "create snapshot %s", args[0])
	}
	w := bufio.NewWriter(f)

	st, err := snapshot.Dump(ctx, store, w, snapshot.Options{Level: dumpLevel, Logger: logger.Logger})
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = gerrors.FileSystemErrorf(cerr, "close snapshot %s", args[0])
	}
	if err != nil {
		os.Remove(args[0])
		return err
	}

	success.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "  Vertices: %d\n  Edges:    %d\n", st.Vertices, st.Edges)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f, err := os.Open(args[0])
	if err != nil {
		return gerrors.FileSystemErrorf(err, "open snapshot %s", args[0])
	}
	defer f.Close()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := snapshot.Restore(ctx, bufio.NewReader(f), store, snapshot.RestoreOptions{
		BatchSize: cfg.Loader.BatchSize,
		Logger:    logger.Logger,
	})
	if err != nil {
		return err
	}

	success.Fprintf(cmd.OutOrStdout(), "✓ Restored %s into %s\n", args[0], cfg.Backend)
	fmt.Fprintf(cmd.OutOrStdout(), "  Vertices: %d\n  Edges:    %d\n", st.Vertices, st.Edges)
	return nil
}
