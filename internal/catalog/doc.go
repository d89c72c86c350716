// Package catalog keeps the schema of a graph: vertex and edge types, their
// property slots, the original-ID datatype and the requested feature set.
// It implements every schema-only operation of grin.Graph so backends only
// add element storage on top. The handle layout used by all bundled
// backends is defined here as well.
package catalog
