package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/grintest"
	"github.com/rohankatakam/grin/internal/memgraph"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func openCached(t *testing.T) grin.Store {
	g := New(memgraph.New(testLogger()), Options{}, testLogger())
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestContract(t *testing.T) {
	grintest.RunContract(t, openCached)
}

func TestHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	s, f := grintest.Open(t, openCached, grin.Int64)
	g := s.(*Graph)

	for i := 0; i < 3; i++ {
		v, err := g.VertexByOriginalIDOfInt64(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, f.People[1], v)
	}
	assert.Equal(t, Stats{Hits: 2, Misses: 1}, g.Stats())
}

func TestMissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	s, f := grintest.Open(t, openCached, grin.String)

	_, err := s.VertexByOriginalIDOfString(ctx, "dave")
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	v, err := s.AddVertex(ctx, f.Person, grin.StringID("dave"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx))

	got, err := s.VertexByOriginalIDOfString(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestCachedStringsAreAccounted(t *testing.T) {
	ctx := context.Background()
	s, f := grintest.Open(t, openCached, grin.String)

	for i := 0; i < 2; i++ {
		id, err := s.VertexOriginalIDOfString(ctx, f.People[0])
		require.NoError(t, err)
		assert.Equal(t, "alice", id)
	}
	assert.Equal(t, int64(2), s.Tracker().Stats().LiveStrings)

	s.DestroyStringValue("alice")
	s.DestroyStringValue("alice")
	assert.Equal(t, grin.Stats{}, s.Tracker().Stats())
}

func TestCachedPropertiesAreAccounted(t *testing.T) {
	ctx := context.Background()
	s, f := grintest.Open(t, openCached, grin.Int64)

	a, err := s.VertexPropertyByName(ctx, f.Person, "age")
	require.NoError(t, err)
	b, err := s.VertexPropertyByName(ctx, f.Person, "age")
	require.NoError(t, err)
	assert.True(t, s.EqualVertexProperty(a, b))

	names, err := s.VertexPropertiesByName(ctx, "name")
	require.NoError(t, err)
	assert.Len(t, names, 2)
	names, err = s.VertexPropertiesByName(ctx, "name")
	require.NoError(t, err)
	assert.Len(t, names, 2)

	assert.Equal(t, int64(6), s.Tracker().Stats().LiveVertexProperties)
	for _, p := range append([]grin.VertexProperty{a, b}, append(names, names...)...) {
		s.DestroyVertexProperty(p)
	}
	assert.Equal(t, grin.Stats{}, s.Tracker().Stats())
}

func TestNewPropertyInvalidatesNames(t *testing.T) {
	ctx := context.Background()
	s, _ := grintest.Open(t, openCached, grin.Int64)

	before, err := s.EdgePropertiesByName(ctx, "weight")
	require.NoError(t, err)
	assert.Len(t, before, 1)

	et, err := s.AddEdgeType(ctx, "follows")
	require.NoError(t, err)
	_, err = s.AddEdgeProperty(ctx, et, "weight", grin.Float32)
	require.NoError(t, err)

	after, err := s.EdgePropertiesByName(ctx, "weight")
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestDisabledFeatureBypassesCache(t *testing.T) {
	ctx := context.Background()
	s, _ := grintest.Open(t, openCached, grin.Int64)

	_, err := s.VertexByOriginalIDOfInt64(ctx, 1)
	require.NoError(t, err)

	s.SetFeatures(grin.AllFeatures.Without(grin.FeatureVertexOriginalIDInt64))
	_, err = s.VertexByOriginalIDOfInt64(ctx, 1)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
}

// slowStore counts and delays original-ID lookups
type slowStore struct {
	grin.Store
	calls atomic.Int32
}

func (s *slowStore) VertexByOriginalIDOfInt64(ctx context.Context, id int64) (grin.Vertex, error) {
	s.calls.Add(1)
	time.Sleep(50 * time.Millisecond)
	return s.Store.VertexByOriginalIDOfInt64(ctx, id)
}

func TestConcurrentMissesCollapse(t *testing.T) {
	ctx := context.Background()
	inner := memgraph.New(testLogger())
	f, err := grintest.Populate(ctx, inner, grin.Int64)
	require.NoError(t, err)

	slow := &slowStore{Store: inner}
	g := New(slow, Options{}, testLogger())
	defer g.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := g.VertexByOriginalIDOfInt64(ctx, 3)
			assert.NoError(t, err)
			assert.Equal(t, f.People[2], v)
		}()
	}
	wg.Wait()

	assert.Less(t, slow.calls.Load(), int32(10))
}
