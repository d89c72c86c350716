package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/spf13/cobra"
)

var (
	vertexOID string
	propName  string
)

var vertexCmd = &cobra.Command{
	Use:   "vertex",
	Short: "Show a vertex looked up by its original ID",
	Long: `Vertex resolves --oid through the store's original-ID index and prints the
vertex type together with every property value the enabled features expose.`,
	Args: cobra.NoArgs,
	RunE: runVertex,
}

var propCmd = &cobra.Command{
	Use:   "prop",
	Short: "Read one property of a vertex through its typed getter",
	Args:  cobra.NoArgs,
	RunE:  runProp,
}

func init() {
	vertexCmd.Flags().StringVar(&vertexOID, "oid", "", "original ID of the vertex")
	vertexCmd.MarkFlagRequired("oid")

	propCmd.Flags().StringVar(&vertexOID, "oid", "", "original ID of the vertex")
	propCmd.Flags().StringVar(&propName, "name", "", "property name")
	propCmd.MarkFlagRequired("oid")
	propCmd.MarkFlagRequired("name")
}

// lookupVertex parses raw according to the store's original-ID type and
// resolves it to a vertex handle
func lookupVertex(ctx context.Context, g grin.Graph, raw string) (grin.Vertex, error) {
	dt, err := g.VertexOriginalIDDataType(ctx)
	if err != nil {
		return grin.NullVertex, err
	}
	oid, err := grin.ParseOriginalID(dt, raw)
	if err != nil {
		return grin.NullVertex, gerrors.ValidationError(err.Error())
	}

	switch oid.Type() {
	case grin.Int64:
		idx, err := grin.Int64OriginalIDs(g)
		if err != nil {
			return grin.NullVertex, err
		}
		return idx.VertexByOriginalIDOfInt64(ctx, oid.Int())
	case grin.String:
		idx, err := grin.StringOriginalIDs(g)
		if err != nil {
			return grin.NullVertex, err
		}
		return idx.VertexByOriginalIDOfString(ctx, oid.Str())
	}
	return grin.NullVertex, gerrors.Unsupportedf(grin.ErrUnsupported, "graph %s carries no original IDs", g.ID())
}

func runVertex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := lookupVertex(ctx, store, vertexOID)
	if err != nil {
		return err
	}
	vt, err := store.VertexTypeOf(ctx, v)
	if err != nil {
		return err
	}
	typeName, err := store.VertexTypeName(ctx, vt)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	header.Fprintf(out, "Vertex %s\n", vertexOID)
	fmt.Fprintf(out, "  Handle: %d\n", v)
	fmt.Fprintf(out, "  Type:   %s\n", typeName)

	reader, err := grin.VertexProperties(store)
	if err != nil {
		dim.Fprintf(out, "  (vertex properties not enabled)\n")
		return nil
	}
	return printProperties(ctx, out, store, reader, vt, v)
}

func printProperties(ctx context.Context, out io.Writer, g grin.Graph, r grin.VertexPropertyReader, vt grin.VertexType, v grin.Vertex) error {
	props, err := r.VertexPropertyList(ctx, vt)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range props {
			r.DestroyVertexProperty(p)
		}
	}()
	namer, _ := grin.VertexPropertyNames(g)

	fmt.Fprintf(out, "  Properties:\n")
	for i, p := range props {
		label := fmt.Sprintf("#%d", i)
		if namer != nil {
			name, err := namer.VertexPropertyName(ctx, vt, p)
			if err != nil {
				return err
			}
			label = name
			g.DestroyStringValue(name)
		}
		dt, err := r.VertexPropertyDataType(ctx, p)
		if err != nil {
			return err
		}
		val, err := r.VertexPropertyValue(ctx, v, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "    %-16s %-12s %s\n", label, dt, val)
		releaseValue(g, val)
	}
	return nil
}

func runProp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := lookupVertex(ctx, store, vertexOID)
	if err != nil {
		return err
	}
	vt, err := store.VertexTypeOf(ctx, v)
	if err != nil {
		return err
	}
	namer, err := grin.VertexPropertyNames(store)
	if err != nil {
		return err
	}
	reader, err := grin.VertexProperties(store)
	if err != nil {
		return err
	}

	p, err := namer.VertexPropertyByName(ctx, vt, propName)
	if err != nil {
		return err
	}
	defer reader.DestroyVertexProperty(p)

	dt, err := reader.VertexPropertyDataType(ctx, p)
	if err != nil {
		return err
	}
	got, err := grin.TypedVertexValue(ctx, reader, v, p, dt)
	if errors.Is(err, grin.ErrNullValue) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): null\n", propName, dt)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %v\n", propName, dt, got)
	if s, ok := got.(string); ok {
		store.DestroyStringValue(s)
	}
	return nil
}

// releaseValue returns a string value issued by a getter
func releaseValue(g grin.Graph, val grin.Value) {
	if s, err := val.AsString(); err == nil {
		g.DestroyStringValue(s)
	}
}
