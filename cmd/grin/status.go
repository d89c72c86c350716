package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/rohankatakam/grin/internal/config"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, features and graph contents",
	Long:  `Display the active configuration, the effective feature set of the configured store and per-type element counts.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "🔍 grin Status\n")
	fmt.Fprintf(out, "%s\n", strings.Repeat("═", 50))

	fmt.Fprintf(out, "\n📋 Configuration:\n")
	fmt.Fprintf(out, "  Mode: %s\n", config.DetectMode())
	fmt.Fprintf(out, "  Backend: %s\n", cfg.Backend)
	if p := cfg.BackendPath(); p != "" {
		fmt.Fprintf(out, "  Location: %s\n", redactURL(p))
	}
	fmt.Fprintf(out, "  Cache: %v (ttl %s)\n", cfg.Cache.Enabled, cfg.Cache.TTL)
	fmt.Fprintf(out, "  Metrics: %v\n", cfg.Metrics.Enabled)

	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintf(out, "\n💾 Store:\n")
		failure.Fprintf(out, "  Status: ❌ %v\n", err)
		return nil
	}
	defer store.Close()

	requested, _ := cfg.RequestedFeatures()
	dt, err := store.VertexOriginalIDDataType(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n💾 Store:\n")
	fmt.Fprintf(out, "  Status: ✅ Open\n")
	fmt.Fprintf(out, "  Graph: %s\n", store.ID())
	fmt.Fprintf(out, "  Original IDs: %s\n", dt)
	fmt.Fprintf(out, "  Requested features: %s\n", requested)
	fmt.Fprintf(out, "  Effective features: %s\n", store.Features())

	fmt.Fprintf(out, "\n📊 Contents:\n")
	if err := printCounts(ctx, out, store); err != nil {
		return err
	}

	st := store.Tracker().Stats()
	fmt.Fprintf(out, "\n🔗 Live handles:\n")
	fmt.Fprintf(out, "  Vertex properties: %d\n", st.LiveVertexProperties)
	fmt.Fprintf(out, "  Edge properties: %d\n", st.LiveEdgeProperties)
	fmt.Fprintf(out, "  Strings: %d\n", st.LiveStrings)
	return nil
}

func printCounts(ctx context.Context, out io.Writer, g grin.Graph) error {
	vts, err := g.VertexTypes(ctx)
	if err != nil {
		return err
	}
	for _, vt := range vts {
		name, err := g.VertexTypeName(ctx, vt)
		if err != nil {
			return err
		}
		n, err := g.VertexCount(ctx, vt)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  vertex %-16s %d\n", name, n)
	}

	ets, err := g.EdgeTypes(ctx)
	if err != nil {
		return err
	}
	for _, et := range ets {
		name, err := g.EdgeTypeName(ctx, et)
		if err != nil {
			return err
		}
		n, err := g.EdgeCount(ctx, et)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  edge   %-16s %d\n", name, n)
	}
	if len(vts) == 0 && len(ets) == 0 {
		dim.Fprintf(out, "  (empty)\n")
	}
	return nil
}

// redactURL hides the password of a DSN or URI
func redactURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	return u.Redacted()
}
