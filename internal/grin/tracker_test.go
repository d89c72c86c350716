package grin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerIssueRelease(t *testing.T) {
	tr := NewTracker(nil)
	tr.Issue(KindVertexProperty, 3)
	tr.Issue(KindString, 1)
	tr.Release(KindVertexProperty)

	assert.Equal(t, Stats{LiveVertexProperties: 2, LiveStrings: 1}, tr.Stats())
}

func TestTrackerClampsAtZero(t *testing.T) {
	var clamped []HandleKind
	tr := NewTracker(func(k HandleKind) { clamped = append(clamped, k) })

	tr.Release(KindEdgeProperty)
	tr.Issue(KindEdgeProperty, 0)

	assert.Equal(t, Stats{}, tr.Stats())
	assert.Equal(t, []HandleKind{KindEdgeProperty}, clamped)
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Issue(KindString, 2)
			tr.Release(KindString)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), tr.Stats().LiveStrings)
}

func TestNilTrackerIsInert(t *testing.T) {
	var tr *Tracker
	tr.Issue(KindString, 1)
	tr.Release(KindString)
	assert.Equal(t, Stats{}, tr.Stats())
}
