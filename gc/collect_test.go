package gc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cyclegc/gc"
	"github.com/hupe1980/cyclegc/resource"
	"github.com/hupe1980/cyclegc/testutil"
	"github.com/hupe1980/cyclegc/trash"
)

func TestCollect_ReclaimsCycles(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"self reference", 1},
		{"pair", 2},
		{"ring", 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, heap := newHeap(t)
			nodes := heap.Cycle("n", tt.size)

			stats, err := c.Collect()
			require.NoError(t, err)
			assert.Equal(t, gc.Stats{Collections: 1, Collected: tt.size}, stats)
			assert.Equal(t, 0, heap.Live())
			assert.Equal(t, 0, c.TrackedLen())
			for _, n := range nodes {
				assert.True(t, n.Freed())
			}
		})
	}
}

func TestCollect_KeepsReachableCycles(t *testing.T) {
	c, heap := newHeap(t)

	a, b := heap.New("a"), heap.New("b")
	a.Link(b)
	b.Link(a)
	heap.Drop(b)

	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Zero(t, stats.Collected)
	assert.Equal(t, 2, heap.Live())

	heap.Drop(a)
	stats, err = c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Collected)
	assert.Equal(t, 0, heap.Live())
}

func TestCollect_UntrackedReferrerKeepsCycleAlive(t *testing.T) {
	c, heap := newHeap(t)

	nodes := heap.Cycle("n", 3)
	holder := heap.NewUntracked("holder")
	heap.Hold(nodes[1])
	holder.Link(nodes[1])
	heap.Drop(nodes[1])

	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Zero(t, stats.Collected)
	assert.Equal(t, 4, heap.Live())

	holder.Unlink(nodes[1])
	stats, err = c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Collected)
	assert.Equal(t, 1, heap.Live())
}

func TestCollect_GarbageReachableFromCycleIsFreed(t *testing.T) {
	c, heap := newHeap(t)

	nodes := heap.Cycle("n", 2)
	tail := heap.New("tail")
	nodes[0].Link(tail)
	heap.Drop(tail)

	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Collected)
	assert.True(t, tail.Freed())
}

func TestCollect_LongCycleStaysWithinTrashLimit(t *testing.T) {
	c, heap := newHeap(t)
	heap.Cycle("n", 10_000)

	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 10_000, stats.Collected)
	assert.Equal(t, 0, heap.Live())
	assert.LessOrEqual(t, c.Trash().MaxDepth(), trash.DefaultLimit)
	assert.Positive(t, c.Trash().Deferred())
	assert.Zero(t, c.Trash().Pending())
}

func TestCollect_FinalizerRunsOnce(t *testing.T) {
	c, heap := newHeap(t)

	nodes := heap.Cycle("n", 2)
	calls := 0
	nodes[0].OnFinalize = func(*testutil.Node) error {
		calls++
		return nil
	}

	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, gc.Stats{Collections: 1, Collected: 2}, stats)
	assert.Equal(t, 0, heap.Live())
}

func TestCollect_ResurrectedCycleIsUncollectable(t *testing.T) {
	c, heap := newHeap(t)

	nodes := heap.Cycle("n", 3)
	calls := 0
	nodes[0].OnFinalize = func(n *testutil.Node) error {
		calls++
		heap.Root(n)
		return nil
	}

	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, gc.Stats{Collections: 1, Uncollectable: 3}, stats)
	assert.Equal(t, 3, heap.Live())
	assert.ElementsMatch(t, []gc.Object{nodes[0], nodes[1], nodes[2]}, c.Garbage())
	assert.True(t, c.IsFinalized(nodes[0]))
	assert.Equal(t, 3, c.Len(2))

	// The garbage list keeps its entries alive even once the root is gone.
	heap.ReleaseRoots()
	stats, err = c.Collect()
	require.NoError(t, err)
	assert.Zero(t, stats.Collected)
	assert.Equal(t, 3, heap.Live())

	cleared := c.ClearGarbage()
	assert.Len(t, cleared, 3)
	assert.Empty(t, c.Garbage())

	stats, err = c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Collected)
	assert.Equal(t, 1, calls, "finalizers run at most once")
	assert.Equal(t, 0, heap.Live())
}

func TestCollect_QuarantineFinalizers(t *testing.T) {
	c, heap := newHeap(t, gc.WithFinalizerPolicy(gc.QuarantineFinalizers))

	guarded := heap.Cycle("g", 2)
	calls := 0
	guarded[1].OnFinalize = func(*testutil.Node) error {
		calls++
		return nil
	}
	heap.Cycle("plain", 2)

	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Zero(t, calls)
	assert.Equal(t, gc.Stats{Collections: 1, Collected: 2, Uncollectable: 2}, stats)
	assert.ElementsMatch(t, []gc.Object{guarded[0], guarded[1]}, c.Garbage())
	assert.Equal(t, 2, heap.Live())
	assert.False(t, c.IsFinalized(guarded[1]))
}

func TestCollect_FinalizerFailuresAreReported(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name     string
		finalize func(*testutil.Node) error
		check    func(t *testing.T, err error)
	}{
		{
			name:     "returned error",
			finalize: func(*testutil.Node) error { return errBoom },
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errBoom)
			},
		},
		{
			name:     "panic",
			finalize: func(*testutil.Node) error { panic("finalizer exploded") },
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "finalizer exploded")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &recordingMetrics{}
			c, heap := newHeap(t, gc.WithMetrics(m))

			nodes := heap.Cycle("n", 2)
			nodes[0].OnFinalize = tt.finalize
			nodes[1].OnFinalize = tt.finalize

			stats, err := c.Collect()
			require.NoError(t, err)
			assert.Equal(t, 2, stats.Collected, "the pass continues past failing finalizers")
			assert.Equal(t, 0, heap.Live())

			require.Len(t, m.finalizerErrors, 2)
			var ferr *gc.FinalizerError
			require.ErrorAs(t, m.finalizerErrors[0], &ferr)
			assert.Contains(t, []gc.Object{nodes[0], nodes[1]}, ferr.Object)
			tt.check(t, ferr)
		})
	}
}

func TestCollect_DebugSaveAll(t *testing.T) {
	c, heap := newHeap(t, gc.WithDebug(gc.DebugSaveAll))

	nodes := heap.Cycle("n", 3)
	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Collected)
	assert.Zero(t, stats.Uncollectable)
	assert.Equal(t, 3, heap.Live())
	assert.ElementsMatch(t, []gc.Object{nodes[0], nodes[1], nodes[2]}, c.Garbage())
	for _, n := range nodes {
		assert.Len(t, n.Refs(), 1, "saved objects keep their references")
	}

	c.SetDebug(0)
	c.ClearGarbage()
	stats, err = c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Collected)
	assert.Equal(t, 0, heap.Live())
}

func TestCollect_UntracksImmutableContainers(t *testing.T) {
	c, heap := newHeap(t)

	leaf := heap.New("leaf")
	leaf.Frozen = true

	mutable := heap.New("mutable")
	wrapper := heap.New("wrapper")
	wrapper.Link(mutable)
	wrapper.Frozen = true

	_, err := c.CollectGeneration(0)
	require.NoError(t, err)

	assert.False(t, c.IsTracked(leaf))
	assert.True(t, c.IsTracked(wrapper), "references a tracked object")
	assert.True(t, c.IsTracked(mutable))
	assert.Equal(t, 2, c.Len(1))

	c.Untrack(mutable)
	_, err = c.CollectGeneration(1)
	require.NoError(t, err)
	assert.False(t, c.IsTracked(wrapper))
	assert.Equal(t, 0, c.TrackedLen())
	assert.Equal(t, 3, heap.Live())
}

func TestCollect_AbortsWhenScratchExceedsBudget(t *testing.T) {
	m := &recordingMetrics{}
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 16})
	c, heap := newHeap(t, gc.WithMemoryAcquirer(rc), gc.WithMetrics(m))

	heap.Cycle("n", 3)
	var stops []gc.Stats
	c.RegisterCallback(func(phase gc.Phase, _ int, stats gc.Stats) {
		if phase == gc.PhaseStop {
			stops = append(stops, stats)
		}
	})

	stats, err := c.Collect()
	require.ErrorIs(t, err, gc.ErrPassAborted)
	require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Equal(t, gc.Stats{}, stats)

	assert.Equal(t, 3, heap.Live(), "an aborted pass frees nothing")
	assert.Equal(t, 3, c.Len(0))
	assert.Equal(t, 3, c.TrackedLen())
	assert.Equal(t, [gc.NumGenerations]int{0, 0, 0}, c.Count())
	assert.Zero(t, c.Stats()[2].Collections)
	assert.Zero(t, rc.MemoryUsage())
	assert.Len(t, m.aborted, 1)
	assert.Equal(t, []gc.Stats{{}}, stops)
}

func TestCollect_ReleasesScratchBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	c, heap := newHeap(t, gc.WithMemoryAcquirer(rc))

	heap.Cycle("n", 100)
	heap.New("survivor")

	stats, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 100, stats.Collected)
	assert.Zero(t, rc.MemoryUsage())
}

func TestCollect_ChurnConservesPopulation(t *testing.T) {
	rng := testutil.NewRNG(42)
	c, heap := newHeap(t, gc.WithThresholds(50, 5, 5))

	var held []*testutil.Node
	for step := range 5_000 {
		switch {
		case len(held) == 0 || rng.Chance(0.45):
			held = append(held, heap.New("n"))
			c.MaybeCollect()
		case rng.Chance(0.5):
			from := held[rng.Intn(len(held))]
			to := held[rng.Intn(len(held))]
			from.Link(to)
		default:
			i := rng.Intn(len(held))
			n := held[i]
			held[i] = held[len(held)-1]
			held = held[:len(held)-1]
			heap.Drop(n)
		}

		require.Equal(t, heap.Live(), c.TrackedLen(), "step %d", step)
		require.Equal(t, c.TrackedLen(), c.Len(0)+c.Len(1)+c.Len(2), "step %d", step)
	}

	for _, n := range held {
		assert.False(t, n.Freed())
	}
	for _, n := range held {
		heap.Drop(n)
	}

	_, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, 0, heap.Live(), "no cycle leaks")
	assert.Equal(t, 0, c.TrackedLen())
	assert.Positive(t, c.Stats()[0].Collections)
}
