package catalog

import (
	"context"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
)

func (c *Catalog) VertexTypes(ctx context.Context) ([]grin.VertexType, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]grin.VertexType, len(c.schema.VertexTypes))
	for i := range out {
		out[i] = grin.VertexType(i)
	}
	return out, nil
}

func (c *Catalog) EdgeTypes(ctx context.Context) ([]grin.EdgeType, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]grin.EdgeType, len(c.schema.EdgeTypes))
	for i := range out {
		out[i] = grin.EdgeType(i)
	}
	return out, nil
}

func (c *Catalog) VertexTypeName(ctx context.Context, vt grin.VertexType) (string, error) {
	td, err := c.vertexTypeDef(vt)
	if err != nil {
		return "", err
	}
	return td.Name, nil
}

func (c *Catalog) VertexTypeByName(ctx context.Context, name string) (grin.VertexType, error) {
	if err := c.Guard(); err != nil {
		return grin.NullVertexType, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	vt, ok := c.vtByName[name]
	if !ok {
		return grin.NullVertexType, gerrors.NotFoundf(grin.ErrNotFound, "vertex type %q", name)
	}
	return vt, nil
}

func (c *Catalog) EdgeTypeName(ctx context.Context, et grin.EdgeType) (string, error) {
	td, err := c.edgeTypeDef(et)
	if err != nil {
		return "", err
	}
	return td.Name, nil
}

func (c *Catalog) EdgeTypeByName(ctx context.Context, name string) (grin.EdgeType, error) {
	if err := c.Guard(); err != nil {
		return grin.NullEdgeType, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	et, ok := c.etByName[name]
	if !ok {
		return grin.NullEdgeType, gerrors.NotFoundf(grin.ErrNotFound, "edge type %q", name)
	}
	return et, nil
}

// HasVertexType reports whether vt was declared
func (c *Catalog) HasVertexType(vt grin.VertexType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int(vt) < len(c.schema.VertexTypes)
}

// HasEdgeType reports whether et was declared
func (c *Catalog) HasEdgeType(et grin.EdgeType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int(et) < len(c.schema.EdgeTypes)
}

// CheckVertexType fails with grin.ErrNotFound for undeclared types
func (c *Catalog) CheckVertexType(vt grin.VertexType) error {
	_, err := c.vertexTypeDef(vt)
	return err
}

// CheckEdgeType fails with grin.ErrNotFound for undeclared types
func (c *Catalog) CheckEdgeType(et grin.EdgeType) error {
	_, err := c.edgeTypeDef(et)
	return err
}

// VertexTypeDef returns a copy of the declaration of vt
func (c *Catalog) VertexTypeDef(vt grin.VertexType) (TypeDef, error) {
	td, err := c.vertexTypeDef(vt)
	if err != nil {
		return TypeDef{}, err
	}
	return TypeDef{Name: td.Name, Properties: append([]PropertyDef(nil), td.Properties...)}, nil
}

// EdgeTypeDef returns a copy of the declaration of et
func (c *Catalog) EdgeTypeDef(et grin.EdgeType) (TypeDef, error) {
	td, err := c.edgeTypeDef(et)
	if err != nil {
		return TypeDef{}, err
	}
	return TypeDef{Name: td.Name, Properties: append([]PropertyDef(nil), td.Properties...)}, nil
}

func (c *Catalog) vertexTypeDef(vt grin.VertexType) (*TypeDef, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(vt) >= len(c.schema.VertexTypes) {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "vertex type %d", vt)
	}
	return &c.schema.VertexTypes[vt], nil
}

func (c *Catalog) edgeTypeDef(et grin.EdgeType) (*TypeDef, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(et) >= len(c.schema.EdgeTypes) {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "edge type %d", et)
	}
	return &c.schema.EdgeTypes[et], nil
}

func (c *Catalog) AddVertexType(ctx context.Context, name string) (grin.VertexType, error) {
	if err := c.Guard(); err != nil {
		return grin.NullVertexType, err
	}
	if err := checkName("vertex type", name); err != nil {
		return grin.NullVertexType, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.vtByName[name]; ok {
		return grin.NullVertexType, gerrors.Conflictf(grin.ErrDuplicate, "vertex type %q", name)
	}
	if len(c.schema.VertexTypes) >= MaxTypes {
		return grin.NullVertexType, gerrors.ValidationErrorf("too many vertex types (max %d)", MaxTypes)
	}

	vt := grin.VertexType(len(c.schema.VertexTypes))
	c.schema.VertexTypes = append(c.schema.VertexTypes, TypeDef{Name: name})
	c.vtByName[name] = vt
	c.vpByName = append(c.vpByName, make(map[string]uint32))
	return vt, nil
}

func (c *Catalog) AddEdgeType(ctx context.Context, name string) (grin.EdgeType, error) {
	if err := c.Guard(); err != nil {
		return grin.NullEdgeType, err
	}
	if err := checkName("edge type", name); err != nil {
		return grin.NullEdgeType, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.etByName[name]; ok {
		return grin.NullEdgeType, gerrors.Conflictf(grin.ErrDuplicate, "edge type %q", name)
	}
	if len(c.schema.EdgeTypes) >= MaxTypes {
		return grin.NullEdgeType, gerrors.ValidationErrorf("too many edge types (max %d)", MaxTypes)
	}

	et := grin.EdgeType(len(c.schema.EdgeTypes))
	c.schema.EdgeTypes = append(c.schema.EdgeTypes, TypeDef{Name: name})
	c.etByName[name] = et
	c.epByName = append(c.epByName, make(map[string]uint32))
	return et, nil
}

func (c *Catalog) AddVertexProperty(ctx context.Context, vt grin.VertexType, name string, dt grin.DataType) (grin.VertexProperty, error) {
	if err := c.Guard(); err != nil {
		return grin.NullVertexProperty, err
	}
	if err := checkName("property", name); err != nil {
		return grin.NullVertexProperty, err
	}
	if !dt.Valid() {
		return grin.NullVertexProperty, gerrors.ValidationErrorf("property %q has no datatype", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if int(vt) >= len(c.schema.VertexTypes) {
		return grin.NullVertexProperty, gerrors.NotFoundf(grin.ErrNotFound, "vertex type %d", vt)
	}
	if _, ok := c.vpByName[vt][name]; ok {
		return grin.NullVertexProperty, gerrors.Conflictf(grin.ErrDuplicate, "property %q on vertex type %q", name, c.schema.VertexTypes[vt].Name)
	}

	td := &c.schema.VertexTypes[vt]
	slot := uint32(len(td.Properties))
	td.Properties = append(td.Properties, PropertyDef{Name: name, DataType: dt})
	c.vpByName[vt][name] = slot
	return PackVertexProperty(vt, slot), nil
}

func (c *Catalog) AddEdgeProperty(ctx context.Context, et grin.EdgeType, name string, dt grin.DataType) (grin.EdgeProperty, error) {
	if err := c.Guard(); err != nil {
		return grin.NullEdgeProperty, err
	}
	if err := checkName("property", name); err != nil {
		return grin.NullEdgeProperty, err
	}
	if !dt.Valid() {
		return grin.NullEdgeProperty, gerrors.ValidationErrorf("property %q has no datatype", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if int(et) >= len(c.schema.EdgeTypes) {
		return grin.NullEdgeProperty, gerrors.NotFoundf(grin.ErrNotFound, "edge type %d", et)
	}
	if _, ok := c.epByName[et][name]; ok {
		return grin.NullEdgeProperty, gerrors.Conflictf(grin.ErrDuplicate, "property %q on edge type %q", name, c.schema.EdgeTypes[et].Name)
	}

	td := &c.schema.EdgeTypes[et]
	slot := uint32(len(td.Properties))
	td.Properties = append(td.Properties, PropertyDef{Name: name, DataType: dt})
	c.epByName[et][name] = slot
	return PackEdgeProperty(et, slot), nil
}
