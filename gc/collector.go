package gc

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/hupe1980/cyclegc/dynarray"
	"github.com/hupe1980/cyclegc/trash"
)

type state uint8

const (
	stateIdle state = iota
	stateCollecting
)

type generation struct {
	members   *dynarray.Array[Object]
	threshold int
	count     int
}

type callbackEntry struct {
	id int
	fn Callback
}

// Collector owns the generations of tracked objects and runs collection passes.
type Collector struct {
	opts options

	gens      [NumGenerations]generation
	permanent generation
	stats     [NumGenerations]Stats

	// Objects that survived a full collection, and objects promoted into generation 2 since.
	longLivedTotal   int
	longLivedPending int

	state         state
	collectingGen int

	garbage      *dynarray.Array[Object]
	trash        *trash.Stack
	callbacks    []callbackEntry
	nextCallback int
	debugLimiter *rate.Limiter
}

// New creates a Collector.
func New(opts ...Option) *Collector {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Collector{
		opts:         o,
		garbage:      newMembers(),
		debugLimiter: rate.NewLimiter(o.debugRate, 1),
	}
	for i := range c.gens {
		c.gens[i] = generation{members: newMembers(), threshold: o.thresholds[i]}
	}
	c.permanent = generation{members: newMembers()}

	var trashOpts []trash.Option
	if o.trashLimit > 0 {
		trashOpts = append(trashOpts, trash.WithLimit(o.trashLimit))
	}
	c.trash = trash.New(trashOpts...)
	return c
}

// newMembers creates an unbudgeted member list. Without an acquirer growth cannot fail.
func newMembers() *dynarray.Array[Object] {
	a, _ := dynarray.New[Object](0, nil)
	return a
}

// appendMember adds obj to g and records its position.
func appendMember(g *generation, genID int8, obj Object) {
	h := obj.GCHeader()
	h.gen = genID
	h.index = g.members.Len()
	_ = g.members.Append(obj)
}

// Track registers obj with generation 0. Tracking a tracked object is a no-op.
func (c *Collector) Track(obj Object) {
	h := obj.GCHeader()
	if h.has(flagTracked) {
		return
	}
	h.flags = flagTracked | (h.flags & (flagFinalized | flagGarbage))
	appendMember(&c.gens[0], 0, obj)
}

// Untrack removes obj from collector bookkeeping. Untracking an untracked object is a no-op.
//
// Objects must be untracked before they are freed. Untracking an object while a pass is
// scanning it is not allowed; untracking cyclic trash from a finalizer or destructor is.
func (c *Collector) Untrack(obj Object) {
	h := obj.GCHeader()
	if !h.has(flagTracked) {
		return
	}

	var g *generation
	switch {
	case h.gen == genUnreachable:
		// The pass owns the trash list and skips untracked entries.
		h.unset(flagTracked | flagCollecting | flagReachable)
		return
	case h.gen == genPermanent:
		g = &c.permanent
	default:
		g = &c.gens[h.gen]
	}

	if _, err := g.members.SwapPop(h.index); err != nil {
		panic(fmt.Sprintf("gc: untrack of %T: header points outside its generation: %v", obj, err))
	}
	if h.index < g.members.Len() {
		g.members.Get(h.index).GCHeader().index = h.index
	}
	h.unset(flagTracked | flagCollecting | flagReachable)
}

// IsTracked reports whether obj is tracked.
func (c *Collector) IsTracked(obj Object) bool {
	return obj.GCHeader().has(flagTracked)
}

// IsFinalized reports whether obj's finalizer has been run by the collector.
func (c *Collector) IsFinalized(obj Object) bool {
	return obj.GCHeader().has(flagFinalized)
}

// MaybeCollect counts one allocation and runs a collection if a threshold is exceeded.
// It is a no-op while a collection is running.
func (c *Collector) MaybeCollect() {
	if c.state != stateIdle {
		return
	}
	c.gens[0].count++
	if !c.opts.enabled || c.gens[0].threshold == 0 || c.gens[0].count <= c.gens[0].threshold {
		return
	}

	gen := c.selectGeneration()
	if _, err := c.collect(gen); err != nil {
		c.opts.logger.Warn("automatic collection failed", "generation", gen, "error", err)
	}
}

// selectGeneration returns the oldest generation whose count exceeds its threshold.
func (c *Collector) selectGeneration() int {
	for i := NumGenerations - 1; i > 0; i-- {
		if c.gens[i].count <= c.gens[i].threshold {
			continue
		}
		if i == NumGenerations-1 && !c.fullCollectionDue() {
			continue
		}
		return i
	}
	return 0
}

// fullCollectionDue reports whether pending long-lived objects exceed 25% of the total.
func (c *Collector) fullCollectionDue() bool {
	return 4*c.longLivedPending > c.longLivedTotal
}

// CollectGeneration collects generations 0..gen and returns the results of this pass.
// It works while automatic collection is disabled and is a no-op returning zero Stats
// while another pass is running.
func (c *Collector) CollectGeneration(gen int) (Stats, error) {
	if gen < 0 || gen >= NumGenerations {
		return Stats{}, fmt.Errorf("%w: %d", ErrInvalidGeneration, gen)
	}
	if c.state != stateIdle {
		return Stats{}, nil
	}
	return c.collect(gen)
}

// Collect runs a full collection.
func (c *Collector) Collect() (Stats, error) {
	return c.CollectGeneration(NumGenerations - 1)
}

// SetThresholds changes the generation thresholds.
func (c *Collector) SetThresholds(t0, t1, t2 int) {
	c.gens[0].threshold = t0
	c.gens[1].threshold = t1
	c.gens[2].threshold = t2
}

// Thresholds returns the generation thresholds.
func (c *Collector) Thresholds() [NumGenerations]int {
	return [NumGenerations]int{c.gens[0].threshold, c.gens[1].threshold, c.gens[2].threshold}
}

// SetEnabled turns automatic collection on or off.
func (c *Collector) SetEnabled(enabled bool) { c.opts.enabled = enabled }

// Enabled reports whether automatic collection is on.
func (c *Collector) Enabled() bool { return c.opts.enabled }

// SetDebug replaces the debug flags.
func (c *Collector) SetDebug(flags DebugFlags) { c.opts.debug = flags }

// Debug returns the debug flags.
func (c *Collector) Debug() DebugFlags { return c.opts.debug }

// Count returns the running count of each generation.
func (c *Collector) Count() [NumGenerations]int {
	return [NumGenerations]int{c.gens[0].count, c.gens[1].count, c.gens[2].count}
}

// Stats returns the cumulative statistics of each generation.
func (c *Collector) Stats() [NumGenerations]Stats { return c.stats }

// LongLived returns the long-lived total and pending counters.
func (c *Collector) LongLived() (total, pending int) {
	return c.longLivedTotal, c.longLivedPending
}

// Collecting reports whether a pass is running, and which generation it scans.
func (c *Collector) Collecting() (int, bool) {
	return c.collectingGen, c.state == stateCollecting
}

// Trash returns the collector's deferred-destruction stack. Object models route cascading
// frees through it so that clearing a long cycle never recurses deeply.
func (c *Collector) Trash() *trash.Stack { return c.trash }

// RegisterCallback adds fn to the callbacks invoked around every pass. The returned function
// removes it.
func (c *Collector) RegisterCallback(fn Callback) (unregister func()) {
	id := c.nextCallback
	c.nextCallback++
	c.callbacks = append(c.callbacks, callbackEntry{id: id, fn: fn})
	return func() {
		for i, e := range c.callbacks {
			if e.id == id {
				c.callbacks = append(c.callbacks[:i:i], c.callbacks[i+1:]...)
				return
			}
		}
	}
}

func (c *Collector) invokeCallbacks(phase Phase, gen int, stats Stats) {
	for _, e := range c.callbacks {
		c.invokeCallback(e.fn, phase, gen, stats)
	}
}

func (c *Collector) invokeCallback(fn Callback, phase Phase, gen int, stats Stats) {
	defer func() {
		if r := recover(); r != nil {
			c.opts.logger.Error("gc callback panicked", "phase", phase.String(), "generation", gen, "panic", r)
		}
	}()
	fn(phase, gen, stats)
}

func (c *Collector) debugf(flag DebugFlags, msg string, args ...any) {
	if c.opts.debug&flag == 0 {
		return
	}
	c.opts.logger.Log(context.Background(), slog.LevelInfo, msg, args...)
}
