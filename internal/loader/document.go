// Package loader reads graph documents written in YAML (or JSON) and writes
// them into any grin.Builder.
package loader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"gopkg.in/yaml.v3"
)

// Document is a complete graph: schema first, then data.
//
//	original_id: int64
//	vertex_types:
//	  - name: person
//	    properties: [{name: name, type: string}]
//	vertices:
//	  - {type: person, id: 1, values: {name: alice}}
//	edges:
//	  - {type: knows, src: 1, dst: 2}
//
// Edge endpoints name a vertex by its key, or by its original ID when the
// vertex has no key.
type Document struct {
	OriginalID  grin.DataType     `yaml:"original_id"`
	VertexTypes []catalog.TypeDef `yaml:"vertex_types"`
	EdgeTypes   []catalog.TypeDef `yaml:"edge_types"`
	Vertices    []Vertex          `yaml:"vertices"`
	Edges       []Edge            `yaml:"edges"`
}

type Vertex struct {
	Type   string         `yaml:"type"`
	ID     any            `yaml:"id,omitempty"`
	Key    string         `yaml:"key,omitempty"`
	Values map[string]any `yaml:"values,omitempty"`
}

type Edge struct {
	Type   string         `yaml:"type"`
	Src    any            `yaml:"src"`
	Dst    any            `yaml:"dst"`
	Values map[string]any `yaml:"values,omitempty"`
}

// Parse decodes one document. Unknown fields are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, gerrors.ValidationErrorf("parse graph document: %v", err)
	}
	return &doc, nil
}

// ParseFile decodes the document at path
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gerrors.FileSystemErrorf(err, "open graph document %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Encode writes the document as YAML
func (d *Document) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return gerrors.Wrap(err, gerrors.ErrorTypeInternal, gerrors.SeverityMedium, "encode graph document")
	}
	return enc.Close()
}

// OriginalIDOf converts a document ID to the graph's original-ID type
func (d *Document) OriginalIDOf(raw any) (grin.OriginalID, error) {
	switch d.OriginalID {
	case grin.Undefined:
		if raw != nil {
			return grin.NoID, gerrors.ValidationErrorf("id %v given but the document declares no original ids", raw)
		}
		return grin.NoID, nil
	case grin.String:
		if raw == nil {
			return grin.NoID, gerrors.ValidationError("missing string id")
		}
		return grin.StringID(fmt.Sprint(raw)), nil
	}
	id, err := grin.OriginalIDOf(raw)
	if err != nil || id.Type() != grin.Int64 {
		return grin.NoID, gerrors.ValidationErrorf("id %v is not an int64", raw)
	}
	return id, nil
}

// ref is the name an edge uses for v
func (v Vertex) ref() string {
	if v.Key != "" {
		return v.Key
	}
	if v.ID == nil {
		return ""
	}
	return fmt.Sprint(v.ID)
}

// Validate checks the document without touching a graph and reports every
// problem found
func (d *Document) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if d.OriginalID != grin.Undefined && d.OriginalID != grin.Int64 && d.OriginalID != grin.String {
		add("original_id cannot be %s", d.OriginalID)
	}

	vprops := checkTypes("vertex", d.VertexTypes, add)
	eprops := checkTypes("edge", d.EdgeTypes, add)

	refs := make(map[string]bool, len(d.Vertices))
	ids := make(map[grin.OriginalID]bool, len(d.Vertices))
	for i, v := range d.Vertices {
		props, ok := vprops[v.Type]
		if !ok {
			add("vertex %d: unknown vertex type %q", i, v.Type)
		} else {
			checkValues(fmt.Sprintf("vertex %d", i), props, v.Values, add)
		}

		id, err := d.OriginalIDOf(v.ID)
		if err != nil {
			add("vertex %d: %v", i, err)
		} else if !id.IsZero() {
			if ids[id] {
				add("vertex %d: duplicate id %s", i, id)
			}
			ids[id] = true
		}

		if r := v.ref(); r != "" {
			if refs[r] && v.Key != "" {
				add("vertex %d: duplicate key %q", i, r)
			}
			refs[r] = true
		}
	}

	for i, e := range d.Edges {
		props, ok := eprops[e.Type]
		if !ok {
			add("edge %d: unknown edge type %q", i, e.Type)
		} else {
			checkValues(fmt.Sprintf("edge %d", i), props, e.Values, add)
		}
		for _, end := range []any{e.Src, e.Dst} {
			if end == nil || !refs[fmt.Sprint(end)] {
				add("edge %d: unknown endpoint %v", i, end)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return gerrors.ValidationErrorf("invalid graph document (%d problems):\n  %s",
		len(problems), strings.Join(problems, "\n  "))
}

func checkTypes(kind string, tds []catalog.TypeDef, add func(string, ...any)) map[string]map[string]grin.DataType {
	out := make(map[string]map[string]grin.DataType, len(tds))
	for _, td := range tds {
		if !catalog.IsValidIdentifier(td.Name) {
			add("%s type %q: invalid name", kind, td.Name)
		}
		if _, dup := out[td.Name]; dup {
			add("%s type %q declared twice", kind, td.Name)
		}
		props := make(map[string]grin.DataType, len(td.Properties))
		for _, pd := range td.Properties {
			if !catalog.IsValidIdentifier(pd.Name) {
				add("%s type %q: invalid property name %q", kind, td.Name, pd.Name)
			}
			if _, dup := props[pd.Name]; dup {
				add("%s type %q: property %q declared twice", kind, td.Name, pd.Name)
			}
			if !pd.DataType.Valid() {
				add("%s type %q: property %q has no datatype", kind, td.Name, pd.Name)
			}
			props[pd.Name] = pd.DataType
		}
		out[td.Name] = props
	}
	return out
}

func checkValues(where string, props map[string]grin.DataType, values map[string]any, add func(string, ...any)) {
	for name, raw := range values {
		dt, ok := props[name]
		if !ok {
			add("%s: unknown property %q", where, name)
			continue
		}
		if _, err := grin.Coerce(dt, raw); err != nil {
			add("%s: property %q: %v", where, name, err)
		}
	}
}
