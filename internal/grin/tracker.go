package grin

import "sync/atomic"

// HandleKind names a class of caller-owned handle.
type HandleKind string

const (
	KindVertexProperty HandleKind = "vertex_property"
	KindEdgeProperty   HandleKind = "edge_property"
	KindString         HandleKind = "string"
)

// Stats is a snapshot of outstanding caller-owned handles.
type Stats struct {
	LiveVertexProperties int64
	LiveEdgeProperties   int64
	LiveStrings          int64
}

// Tracker counts caller-owned handles issued by a graph and released through
// the Destroy calls. It is safe for concurrent use.
type Tracker struct {
	vprops  atomic.Int64
	eprops  atomic.Int64
	strs    atomic.Int64
	onClamp func(kind HandleKind)
}

// NewTracker returns a tracker. onClamp, when non-nil, is called whenever a
// release would drive a counter below zero.
func NewTracker(onClamp func(kind HandleKind)) *Tracker {
	return &Tracker{onClamp: onClamp}
}

func (t *Tracker) counter(kind HandleKind) *atomic.Int64 {
	switch kind {
	case KindVertexProperty:
		return &t.vprops
	case KindEdgeProperty:
		return &t.eprops
	default:
		return &t.strs
	}
}

// Issue records n handles of kind handed to a caller.
func (t *Tracker) Issue(kind HandleKind, n int) {
	if t == nil || n <= 0 {
		return
	}
	t.counter(kind).Add(int64(n))
}

// Release records one handle of kind given back. Counters never go negative.
func (t *Tracker) Release(kind HandleKind) {
	if t == nil {
		return
	}
	c := t.counter(kind)
	for {
		cur := c.Load()
		if cur <= 0 {
			if t.onClamp != nil {
				t.onClamp(kind)
			}
			return
		}
		if c.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Stats returns the current live counts.
func (t *Tracker) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	return Stats{
		LiveVertexProperties: t.vprops.Load(),
		LiveEdgeProperties:   t.eprops.Load(),
		LiveStrings:          t.strs.Load(),
	}
}
