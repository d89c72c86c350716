package catalog

import (
	"context"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
)

// vertexProp resolves p under the read lock. Callers hold no lock.
func (c *Catalog) vertexProp(p grin.VertexProperty) (grin.VertexType, uint32, PropertyDef, error) {
	vt, slot := UnpackVertexProperty(p)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(vt) >= len(c.schema.VertexTypes) || int(slot) >= len(c.schema.VertexTypes[vt].Properties) {
		return 0, 0, PropertyDef{}, gerrors.NotFoundf(grin.ErrNotFound, "vertex property %#x", uint64(p))
	}
	return vt, slot, c.schema.VertexTypes[vt].Properties[slot], nil
}

func (c *Catalog) edgeProp(p grin.EdgeProperty) (grin.EdgeType, uint32, PropertyDef, error) {
	et, slot := UnpackEdgeProperty(p)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(et) >= len(c.schema.EdgeTypes) || int(slot) >= len(c.schema.EdgeTypes[et].Properties) {
		return 0, 0, PropertyDef{}, gerrors.NotFoundf(grin.ErrNotFound, "edge property %#x", uint64(p))
	}
	return et, slot, c.schema.EdgeTypes[et].Properties[slot], nil
}

// VertexSlot checks that p may be read on v and returns its slot and
// datatype. When v belongs to another type, exists runs first so a vertex
// that is not stored reads as not found. A nil exists skips that check.
func (c *Catalog) VertexSlot(v grin.Vertex, p grin.VertexProperty, exists func() error) (uint32, grin.DataType, error) {
	if err := c.RequireFeature(grin.FeatureVertexProperty); err != nil {
		return 0, grin.Undefined, err
	}
	pt, slot, def, err := c.vertexProp(p)
	if err != nil {
		return 0, grin.Undefined, err
	}
	if vt, _ := UnpackVertex(v); vt != pt {
		if exists != nil {
			if err := exists(); err != nil {
				return 0, grin.Undefined, err
			}
		}
		return 0, grin.Undefined, gerrors.TypeMismatchf(grin.ErrTypeMismatch, "property %q is bound to vertex type %d, vertex has type %d", def.Name, pt, vt)
	}
	return slot, def.DataType, nil
}

// EdgeSlot is the edge counterpart of VertexSlot
func (c *Catalog) EdgeSlot(e grin.Edge, p grin.EdgeProperty, exists func() error) (uint32, grin.DataType, error) {
	if err := c.RequireFeature(grin.FeatureEdgeProperty); err != nil {
		return 0, grin.Undefined, err
	}
	pt, slot, def, err := c.edgeProp(p)
	if err != nil {
		return 0, grin.Undefined, err
	}
	if et, _ := UnpackEdge(e); et != pt {
		if exists != nil {
			if err := exists(); err != nil {
				return 0, grin.Undefined, err
			}
		}
		return 0, grin.Undefined, gerrors.TypeMismatchf(grin.ErrTypeMismatch, "property %q is bound to edge type %d, edge has type %d", def.Name, pt, et)
	}
	return slot, def.DataType, nil
}

// VertexPropertyDef returns the declaration behind p without feature checks
func (c *Catalog) VertexPropertyDef(p grin.VertexProperty) (PropertyDef, error) {
	_, _, def, err := c.vertexProp(p)
	return def, err
}

// EdgePropertyDef returns the declaration behind p without feature checks
func (c *Catalog) EdgePropertyDef(p grin.EdgeProperty) (PropertyDef, error) {
	_, _, def, err := c.edgeProp(p)
	return def, err
}

// CoerceVertexValues converts builder input for a vertex of type vt into
// canonical values keyed by slot. Nil values are dropped.
func (c *Catalog) CoerceVertexValues(vt grin.VertexType, values map[grin.VertexProperty]any) (map[uint32]any, error) {
	out := make(map[uint32]any, len(values))
	for p, raw := range values {
		pt, slot, def, err := c.vertexProp(p)
		if err != nil {
			return nil, err
		}
		if pt != vt {
			return nil, gerrors.TypeMismatchf(grin.ErrTypeMismatch, "property %q does not belong to vertex type %d", def.Name, vt)
		}
		v, err := grin.Coerce(def.DataType, raw)
		if err != nil {
			return nil, gerrors.Wrap(err, gerrors.ErrorTypeValidation, gerrors.SeverityHigh, "property "+def.Name)
		}
		if v != nil {
			out[slot] = v
		}
	}
	return out, nil
}

// CoerceEdgeValues is the edge counterpart of CoerceVertexValues
func (c *Catalog) CoerceEdgeValues(et grin.EdgeType, values map[grin.EdgeProperty]any) (map[uint32]any, error) {
	out := make(map[uint32]any, len(values))
	for p, raw := range values {
		pt, slot, def, err := c.edgeProp(p)
		if err != nil {
			return nil, err
		}
		if pt != et {
			return nil, gerrors.TypeMismatchf(grin.ErrTypeMismatch, "property %q does not belong to edge type %d", def.Name, et)
		}
		v, err := grin.Coerce(def.DataType, raw)
		if err != nil {
			return nil, gerrors.Wrap(err, gerrors.ErrorTypeValidation, gerrors.SeverityHigh, "property "+def.Name)
		}
		if v != nil {
			out[slot] = v
		}
	}
	return out, nil
}

// Vertex property operations

func (c *Catalog) VertexPropertyList(ctx context.Context, vt grin.VertexType) ([]grin.VertexProperty, error) {
	if err := c.RequireFeature(grin.FeatureVertexProperty); err != nil {
		return nil, err
	}
	td, err := c.VertexTypeDef(vt)
	if err != nil {
		return nil, err
	}
	out := make([]grin.VertexProperty, len(td.Properties))
	for i := range td.Properties {
		out[i] = PackVertexProperty(vt, uint32(i))
	}
	c.tracker.Issue(grin.KindVertexProperty, len(out))
	return out, nil
}

func (c *Catalog) EqualVertexProperty(a, b grin.VertexProperty) bool {
	return a == b && a != grin.NullVertexProperty
}

func (c *Catalog) DestroyVertexProperty(p grin.VertexProperty) {
	c.tracker.Release(grin.KindVertexProperty)
}

func (c *Catalog) VertexPropertyDataType(ctx context.Context, p grin.VertexProperty) (grin.DataType, error) {
	if err := c.RequireFeature(grin.FeatureVertexProperty); err != nil {
		return grin.Undefined, err
	}
	_, _, def, err := c.vertexProp(p)
	if err != nil {
		return grin.Undefined, err
	}
	return def.DataType, nil
}

func (c *Catalog) VertexTypeFromProperty(ctx context.Context, p grin.VertexProperty) (grin.VertexType, error) {
	if err := c.RequireFeature(grin.FeatureVertexProperty); err != nil {
		return grin.NullVertexType, err
	}
	vt, _, _, err := c.vertexProp(p)
	if err != nil {
		return grin.NullVertexType, err
	}
	return vt, nil
}

func (c *Catalog) VertexPropertyName(ctx context.Context, vt grin.VertexType, p grin.VertexProperty) (string, error) {
	if err := c.RequireFeature(grin.FeatureVertexProperty, grin.FeatureVertexPropertyName); err != nil {
		return "", err
	}
	pt, _, def, err := c.vertexProp(p)
	if err != nil {
		return "", err
	}
	if pt != vt {
		return "", gerrors.TypeMismatchf(grin.ErrTypeMismatch, "property %q is bound to vertex type %d, not %d", def.Name, pt, vt)
	}
	c.tracker.Issue(grin.KindString, 1)
	return def.Name, nil
}

func (c *Catalog) VertexPropertyByName(ctx context.Context, vt grin.VertexType, name string) (grin.VertexProperty, error) {
	if err := c.RequireFeature(grin.FeatureVertexProperty, grin.FeatureVertexPropertyName); err != nil {
		return grin.NullVertexProperty, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(vt) >= len(c.vpByName) {
		return grin.NullVertexProperty, gerrors.NotFoundf(grin.ErrNotFound, "vertex type %d", vt)
	}
	slot, ok := c.vpByName[vt][name]
	if !ok {
		return grin.NullVertexProperty, gerrors.NotFoundf(grin.ErrNotFound, "property %q on vertex type %q", name, c.schema.VertexTypes[vt].Name)
	}
	c.tracker.Issue(grin.KindVertexProperty, 1)
	return PackVertexProperty(vt, slot), nil
}

func (c *Catalog) VertexPropertiesByName(ctx context.Context, name string) ([]grin.VertexProperty, error) {
	if err := c.RequireFeature(grin.FeatureVertexProperty, grin.FeatureVertexPropertyName); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []grin.VertexProperty{}
	for vt, byName := range c.vpByName {
		if slot, ok := byName[name]; ok {
			out = append(out, PackVertexProperty(grin.VertexType(vt), slot))
		}
	}
	c.tracker.Issue(grin.KindVertexProperty, len(out))
	return out, nil
}

// Edge property operations

func (c *Catalog) EdgePropertyList(ctx context.Context, et grin.EdgeType) ([]grin.EdgeProperty, error) {
	if err := c.RequireFeature(grin.FeatureEdgeProperty); err != nil {
		return nil, err
	}
	td, err := c.EdgeTypeDef(et)
	if err != nil {
		return nil, err
	}
	out := make([]grin.EdgeProperty, len(td.Properties))
	for i := range td.Properties {
		out[i] = PackEdgeProperty(et, uint32(i))
	}
	c.tracker.Issue(grin.KindEdgeProperty, len(out))
	return out, nil
}

func (c *Catalog) EqualEdgeProperty(a, b grin.EdgeProperty) bool {
	return a == b && a != grin.NullEdgeProperty
}

func (c *Catalog) DestroyEdgeProperty(p grin.EdgeProperty) {
	c.tracker.Release(grin.KindEdgeProperty)
}

func (c *Catalog) EdgePropertyDataType(ctx context.Context, p grin.EdgeProperty) (grin.DataType, error) {
	if err := c.RequireFeature(grin.FeatureEdgeProperty); err != nil {
		return grin.Undefined, err
	}
	_, _, def, err := c.edgeProp(p)
	if err != nil {
		return grin.Undefined, err
	}
	return def.DataType, nil
}

func (c *Catalog) EdgeTypeFromProperty(ctx context.Context, p grin.EdgeProperty) (grin.EdgeType, error) {
	if err := c.RequireFeature(grin.FeatureEdgeProperty); err != nil {
		return grin.NullEdgeType, err
	}
	et, _, _, err := c.edgeProp(p)
	if err != nil {
		return grin.NullEdgeType, err
	}
	return et, nil
}

func (c *Catalog) EdgePropertyName(ctx context.Context, et grin.EdgeType, p grin.EdgeProperty) (string, error) {
	if err := c.RequireFeature(grin.FeatureEdgeProperty, grin.FeatureEdgePropertyName); err != nil {
		return "", err
	}
	pt, _, def, err := c.edgeProp(p)
	if err != nil {
		return "", err
	}
	if pt != et {
		return "", gerrors.TypeMismatchf(grin.ErrTypeMismatch, "property %q is bound to edge type %d, not %d", def.Name, pt, et)
	}
	c.tracker.Issue(grin.KindString, 1)
	return def.Name, nil
}

func (c *Catalog) EdgePropertyByName(ctx context.Context, et grin.EdgeType, name string) (grin.EdgeProperty, error) {
	if err := c.RequireFeature(grin.FeatureEdgeProperty, grin.FeatureEdgePropertyName); err != nil {
		return grin.NullEdgeProperty, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(et) >= len(c.epByName) {
		return grin.NullEdgeProperty, gerrors.NotFoundf(grin.ErrNotFound, "edge type %d", et)
	}
	slot, ok := c.epByName[et][name]
	if !ok {
		return grin.NullEdgeProperty, gerrors.NotFoundf(grin.ErrNotFound, "property %q on edge type %q", name, c.schema.EdgeTypes[et].Name)
	}
	c.tracker.Issue(grin.KindEdgeProperty, 1)
	return PackEdgeProperty(et, slot), nil
}

func (c *Catalog) EdgePropertiesByName(ctx context.Context, name string) ([]grin.EdgeProperty, error) {
	if err := c.RequireFeature(grin.FeatureEdgeProperty, grin.FeatureEdgePropertyName); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []grin.EdgeProperty{}
	for et, byName := range c.epByName {
		if slot, ok := byName[name]; ok {
			out = append(out, PackEdgeProperty(grin.EdgeType(et), slot))
		}
	}
	c.tracker.Issue(grin.KindEdgeProperty, len(out))
	return out, nil
}

// IssueValue accounts a non-null string value as caller-owned
func (c *Catalog) IssueValue(val grin.Value) grin.Value {
	if val.Type == grin.String && !val.IsNull() {
		c.tracker.Issue(grin.KindString, 1)
	}
	return val
}
