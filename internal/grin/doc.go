// Package grin defines the unified graph retrieval interface: opaque handles,
// the datatype enumeration, capability flags, and the operations a graph
// backend exposes for original-ID lookup and vertex/edge property access.
//
// Backends live in sibling packages (memgraph, boltgraph, sqlgraph,
// neo4jgraph). Consumers program against Graph and use the accessor helpers
// (Int64OriginalIDs, VertexProperties, ...) to obtain the narrow interface of
// an optional feature group. A helper returns ErrUnsupported when the backend
// was opened without the corresponding capability flag.
//
// Handles are plain values. Two handles compare equal with == when they refer
// to the same element, type or property of the same graph. Handles from
// different graphs must not be mixed.
//
// # Ownership
//
// Property descriptors returned by by-name lookups and property lists, and
// strings returned by getters, are caller-owned. Release them with
// DestroyVertexProperty, DestroyEdgeProperty and DestroyStringValue. Go
// reclaims the memory either way; the graph's Tracker records outstanding
// handles so leaks are visible in Stats and metrics.
package grin
