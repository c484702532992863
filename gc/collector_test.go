package gc_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cyclegc/gc"
	"github.com/hupe1980/cyclegc/testutil"
)

type recordingMetrics struct {
	passes          []gc.Stats
	finalizerErrors []error
	aborted         []error
}

func (m *recordingMetrics) RecordCollection(_ int, stats gc.Stats, _ time.Duration) {
	m.passes = append(m.passes, stats)
}

func (m *recordingMetrics) RecordFinalizerError(err error) {
	m.finalizerErrors = append(m.finalizerErrors, err)
}

func (m *recordingMetrics) RecordAbortedPass(_ int, err error) {
	m.aborted = append(m.aborted, err)
}

func newHeap(t *testing.T, opts ...gc.Option) (*gc.Collector, *testutil.Heap) {
	t.Helper()
	c := gc.New(opts...)
	return c, testutil.NewHeap(c)
}

func TestTrack(t *testing.T) {
	c, heap := newHeap(t)

	n := heap.New("a")
	assert.True(t, c.IsTracked(n))
	assert.Equal(t, 1, c.Len(0))

	c.Track(n)
	assert.Equal(t, 1, c.Len(0), "tracking twice is a no-op")

	u := heap.NewUntracked("u")
	assert.False(t, c.IsTracked(u))
	assert.Equal(t, 1, c.TrackedLen())
}

func TestUntrack(t *testing.T) {
	c, heap := newHeap(t)

	a, b, d := heap.New("a"), heap.New("b"), heap.New("d")
	c.Untrack(a)
	assert.False(t, c.IsTracked(a))
	assert.ElementsMatch(t, []gc.Object{b, d}, c.Objects(0))

	c.Untrack(a)
	c.Untrack(d)
	c.Untrack(b)
	assert.Equal(t, 0, c.TrackedLen())
}

func TestFreedNodesAreUntracked(t *testing.T) {
	c, heap := newHeap(t)

	a, b := heap.New("a"), heap.New("b")
	a.Link(b)
	heap.Drop(b)
	heap.Drop(a)

	assert.True(t, a.Freed())
	assert.True(t, b.Freed())
	assert.Equal(t, 0, c.TrackedLen())
}

func TestCollectGeneration_Invalid(t *testing.T) {
	c := gc.New()

	for _, gen := range []int{-1, gc.NumGenerations} {
		_, err := c.CollectGeneration(gen)
		require.ErrorIs(t, err, gc.ErrInvalidGeneration)
	}
	assert.Equal(t, [gc.NumGenerations]gc.Stats{}, c.Stats())
}

func TestCollectGeneration_PromotesSurvivors(t *testing.T) {
	c, heap := newHeap(t)
	heap.New("a")
	heap.New("b")

	stats, err := c.CollectGeneration(0)
	require.NoError(t, err)
	assert.Equal(t, gc.Stats{Collections: 1}, stats)
	assert.Equal(t, 0, c.Len(0))
	assert.Equal(t, 2, c.Len(1))

	_, err = c.CollectGeneration(1)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len(1))
	assert.Equal(t, 2, c.Len(2))

	_, err = c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len(2), "survivors of a full collection stay in the oldest generation")
}

func TestCollectGeneration_OnlyScansYoungerGenerations(t *testing.T) {
	c, heap := newHeap(t)

	old := heap.Cycle("old", 2)
	_, err := c.CollectGeneration(0)
	require.NoError(t, err)
	require.Equal(t, 0, heap.Live())

	// A cycle that became garbage after promotion is invisible to a young pass.
	a, b := heap.New("a"), heap.New("b")
	a.Link(b)
	b.Link(a)
	_, err = c.CollectGeneration(0)
	require.NoError(t, err)
	heap.Drop(a)
	heap.Drop(b)

	stats, err := c.CollectGeneration(0)
	require.NoError(t, err)
	assert.Zero(t, stats.Collected)
	assert.Equal(t, 2, heap.Live())

	stats, err = c.CollectGeneration(1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Collected)
	assert.Equal(t, 0, heap.Live())
	assert.True(t, old[0].Freed())
}

func TestMaybeCollect_Thresholds(t *testing.T) {
	c, heap := newHeap(t, gc.WithThresholds(2, 10, 10))
	heap.Cycle("c", 3)

	c.MaybeCollect()
	c.MaybeCollect()
	assert.Equal(t, [gc.NumGenerations]int{2, 0, 0}, c.Count())
	assert.Equal(t, 3, heap.Live())

	c.MaybeCollect()
	assert.Equal(t, [gc.NumGenerations]int{0, 1, 0}, c.Count())
	assert.Equal(t, 1, c.Stats()[0].Collections)
	assert.Equal(t, 3, c.Stats()[0].Collected)
	assert.Equal(t, 0, heap.Live())
}

func TestMaybeCollect_Cascade(t *testing.T) {
	c := gc.New(gc.WithThresholds(1, 1, 10))

	for range 6 {
		c.MaybeCollect()
	}

	stats := c.Stats()
	assert.Equal(t, 2, stats[0].Collections)
	assert.Equal(t, 1, stats[1].Collections)
	assert.Equal(t, 0, stats[2].Collections)
	assert.Equal(t, [gc.NumGenerations]int{0, 0, 1}, c.Count())
}

func TestMaybeCollect_Disabled(t *testing.T) {
	t.Run("SetEnabled", func(t *testing.T) {
		c := gc.New(gc.WithThresholds(1, 10, 10))
		c.SetEnabled(false)
		assert.False(t, c.Enabled())

		for range 5 {
			c.MaybeCollect()
		}
		assert.Equal(t, 5, c.Count()[0])
		assert.Zero(t, c.Stats()[0].Collections)

		_, err := c.CollectGeneration(0)
		require.NoError(t, err, "explicit collections ignore the enabled flag")
		assert.Equal(t, 1, c.Stats()[0].Collections)
	})

	t.Run("zero threshold", func(t *testing.T) {
		c := gc.New(gc.WithThresholds(0, 10, 10))
		for range 5 {
			c.MaybeCollect()
		}
		assert.Zero(t, c.Stats()[0].Collections)
	})
}

func TestSetThresholds(t *testing.T) {
	c := gc.New()
	assert.Equal(t, [gc.NumGenerations]int{gc.DefaultThreshold0, gc.DefaultThreshold1, gc.DefaultThreshold2}, c.Thresholds())

	c.SetThresholds(100, 5, 1)
	assert.Equal(t, [gc.NumGenerations]int{100, 5, 1}, c.Thresholds())
}

func TestCallbacks(t *testing.T) {
	c, heap := newHeap(t)

	type event struct {
		phase gc.Phase
		gen   int
		stats gc.Stats
	}
	var events []event
	unregister := c.RegisterCallback(func(phase gc.Phase, gen int, stats gc.Stats) {
		events = append(events, event{phase, gen, stats})
	})

	heap.Cycle("c", 2)
	_, err := c.CollectGeneration(1)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, event{gc.PhaseStart, 1, gc.Stats{}}, events[0])
	assert.Equal(t, event{gc.PhaseStop, 1, gc.Stats{Collections: 1, Collected: 2}}, events[1])

	unregister()
	_, err = c.Collect()
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestCallbacks_PanicIsContained(t *testing.T) {
	var buf bytes.Buffer
	c, heap := newHeap(t, gc.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	calls := 0
	c.RegisterCallback(func(gc.Phase, int, gc.Stats) { panic("callback") })
	c.RegisterCallback(func(gc.Phase, int, gc.Stats) { calls++ })

	heap.Cycle("c", 2)
	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Collected)
	assert.Equal(t, 2, calls)
	assert.Contains(t, buf.String(), "gc callback panicked")
}

func TestReentrantCollectionIsNoop(t *testing.T) {
	c, heap := newHeap(t, gc.WithThresholds(1, 10, 10))

	var (
		nested     gc.Stats
		nestedErr  error
		countAfter [gc.NumGenerations]int
		collecting bool
		collGen    int
	)
	c.RegisterCallback(func(phase gc.Phase, gen int, _ gc.Stats) {
		if phase != gc.PhaseStart {
			return
		}
		collGen, collecting = c.Collecting()
		nested, nestedErr = c.Collect()
		c.MaybeCollect()
		c.MaybeCollect()
		c.Freeze()
		countAfter = c.Count()
	})

	heap.Cycle("c", 2)
	_, err := c.CollectGeneration(0)
	require.NoError(t, err)

	assert.True(t, collecting)
	assert.Equal(t, 0, collGen)
	require.NoError(t, nestedErr)
	assert.Equal(t, gc.Stats{}, nested)
	assert.Equal(t, [gc.NumGenerations]int{0, 0, 0}, countAfter, "nested requests do not count allocations")
	assert.Zero(t, c.PermanentLen())
	assert.Equal(t, 1, c.Stats()[0].Collections)
	assert.Zero(t, c.Stats()[2].Collections)

	_, collecting = c.Collecting()
	assert.False(t, collecting)
}

func TestDebugStatsLogging(t *testing.T) {
	var buf bytes.Buffer
	c, heap := newHeap(t,
		gc.WithDebug(gc.DebugStats),
		gc.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	heap.Cycle("c", 2)
	_, err := c.Collect()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "gc pass done")
	assert.Contains(t, out, "collected=2")
	assert.Equal(t, gc.DebugStats, c.Debug())

	buf.Reset()
	c.SetDebug(0)
	_, err = c.Collect()
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestDebugLogRate(t *testing.T) {
	var buf bytes.Buffer
	c := gc.New(
		gc.WithDebug(gc.DebugStats),
		gc.WithDebugLogRate(0.001),
		gc.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	for range 5 {
		_, err := c.CollectGeneration(0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("gc pass done")))
}

func TestMetricsRecordEachPass(t *testing.T) {
	m := &recordingMetrics{}
	c, heap := newHeap(t, gc.WithMetrics(m))

	heap.Cycle("c", 4)
	_, err := c.CollectGeneration(0)
	require.NoError(t, err)
	_, err = c.CollectGeneration(0)
	require.NoError(t, err)

	require.Len(t, m.passes, 2)
	assert.Equal(t, 4, m.passes[0].Collected)
	assert.Zero(t, m.passes[1].Collected)
}
