package gc

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/cyclegc/dynarray"
)

// pass holds the scratch state of one collection.
type pass struct {
	gen   int
	young *generation
	old   *generation
	oldID int8

	// stack is the mark worklist. Every object is pushed at most once per marking, so the
	// capacity reserved up front is never exceeded.
	stack *dynarray.Array[Object]
	// doomed holds the cyclic trash after survivors have been promoted.
	doomed *dynarray.Array[Object]
	// unreachable holds positions in young that trial deletion could not reach.
	unreachable *roaring.Bitmap

	markVisitor func(Object)

	promoted  int
	untracked int
	finalized int
	stats     Stats
}

func (c *Collector) newPass(gen, size int) (*pass, error) {
	var opts []dynarray.Option
	if c.opts.acquirer != nil {
		opts = append(opts, dynarray.WithMemoryAcquirer(c.opts.acquirer))
	}

	stack, err := dynarray.New[Object](size, nil, opts...)
	if err != nil {
		return nil, err
	}
	doomed, err := dynarray.New[Object](size, nil, opts...)
	if err != nil {
		stack.Clear()
		return nil, err
	}

	p := &pass{
		gen:         gen,
		young:       &c.gens[gen],
		stack:       stack,
		doomed:      doomed,
		unreachable: roaring.New(),
	}
	if gen+1 < NumGenerations {
		p.old, p.oldID = &c.gens[gen+1], int8(gen+1)
	} else {
		p.old, p.oldID = &c.gens[gen], int8(gen)
	}
	p.markVisitor = func(r Object) {
		h := r.GCHeader()
		if h.collecting() && !h.has(flagReachable) {
			h.set(flagReachable)
			_ = p.stack.Append(r)
		}
	}
	return p, nil
}

func (p *pass) release() {
	p.stack.Clear()
	p.doomed.Clear()
}

func (c *Collector) collect(gen int) (Stats, error) {
	start := time.Now()
	c.state = stateCollecting
	c.collectingGen = gen
	defer func() { c.state = stateIdle }()

	c.invokeCallbacks(PhaseStart, gen, Stats{})

	size := 0
	for i := 0; i <= gen; i++ {
		size += c.gens[i].members.Len()
	}

	p, err := c.newPass(gen, size)
	if err != nil {
		err = fmt.Errorf("%w: generation %d: %w", ErrPassAborted, gen, err)
		c.opts.logger.Error("gc pass aborted", "generation", gen, "objects", size, "error", err)
		c.opts.metrics.RecordAbortedPass(gen, err)
		c.invokeCallbacks(PhaseStop, gen, Stats{})
		return Stats{}, err
	}
	defer p.release()

	if gen+1 < NumGenerations {
		c.gens[gen+1].count++
	}
	for i := 0; i <= gen; i++ {
		c.gens[i].count = 0
	}
	for i := 0; i < gen; i++ {
		c.merge(i, gen)
	}

	c.subtractInternalRefs(p.young.members)
	c.markFromRoots(p, p.young.members)
	for i, o := range p.young.members.All() {
		if !o.GCHeader().has(flagReachable) {
			p.unreachable.Add(uint32(i))
		}
	}
	c.moveSurvivors(p)

	if p.doomed.Len() > 0 {
		switch c.opts.policy {
		case QuarantineFinalizers:
			c.quarantineFinalizers(p)
		default:
			c.finalizeDoomed(p)
			if p.finalized > 0 {
				c.handleResurrected(p)
			}
		}
		c.deleteGarbage(p)
	}

	switch gen {
	case NumGenerations - 2:
		c.longLivedPending += p.promoted
	case NumGenerations - 1:
		c.longLivedPending = 0
		c.longLivedTotal = c.gens[gen].members.Len()
	}

	stats := p.stats
	stats.Collections = 1
	stats.Collected = p.doomed.Len() - stats.Uncollectable
	c.stats[gen].add(stats)

	elapsed := time.Since(start)
	c.opts.metrics.RecordCollection(gen, stats, elapsed)
	if c.opts.debug&DebugStats != 0 && c.debugLimiter.Allow() {
		c.opts.logger.Info("gc pass done",
			"generation", gen,
			"scanned", size,
			"collected", stats.Collected,
			"uncollectable", stats.Uncollectable,
			"untracked", p.untracked,
			"gen0", c.gens[0].members.Len(),
			"gen1", c.gens[1].members.Len(),
			"gen2", c.gens[2].members.Len(),
			"elapsed", elapsed,
		)
	}

	c.invokeCallbacks(PhaseStop, gen, stats)
	return stats, nil
}

// merge moves every member of generation from into generation to.
func (c *Collector) merge(from, to int) {
	src, dst := &c.gens[from], &c.gens[to]
	for _, o := range src.members.All() {
		appendMember(dst, int8(to), o)
	}
	src.members.Truncate(0)
}

// subtractInternalRefs leaves each member's scratch count equal to the references it
// receives from outside set.
func (c *Collector) subtractInternalRefs(set *dynarray.Array[Object]) {
	for _, o := range set.All() {
		h := o.GCHeader()
		h.refs = o.RefCount()
		if h.has(flagGarbage) {
			// The garbage list keeps its entries alive.
			h.refs++
		}
		h.set(flagCollecting)
		h.unset(flagReachable)
	}
	for _, o := range set.All() {
		o.VisitReferences(subtractRef)
	}
}

func subtractRef(r Object) {
	if h := r.GCHeader(); h.collecting() {
		h.refs--
	}
}

// markFromRoots marks every member with outside references, and everything they reach.
func (c *Collector) markFromRoots(p *pass, set *dynarray.Array[Object]) {
	p.stack.Truncate(0)
	for _, o := range set.All() {
		h := o.GCHeader()
		if !h.collecting() || h.has(flagReachable) || h.refs == 0 {
			continue
		}
		if h.refs < 0 {
			c.opts.logger.Error("reference count lower than internal references",
				"type", fmt.Sprintf("%T", o), "refcount", o.RefCount(), "adjusted", h.refs)
		}
		h.set(flagReachable)
		_ = p.stack.Append(o)
	}
	c.propagate(p)
}

func (c *Collector) propagate(p *pass) {
	for p.stack.Len() > 0 {
		o, _ := p.stack.Pop(p.stack.Len() - 1)
		o.VisitReferences(p.markVisitor)
	}
}

// moveSurvivors promotes reachable members to the old generation and parks the rest
// on the doomed list.
func (c *Collector) moveSurvivors(p *pass) {
	members := p.young.members
	kept := 0
	for i := 0; i < members.Len(); i++ {
		o := members.Get(i)
		h := o.GCHeader()
		if p.unreachable.Contains(uint32(i)) {
			h.gen = genUnreachable
			h.index = p.doomed.Len()
			_ = p.doomed.Append(o)
			continue
		}

		h.unset(flagCollecting | flagReachable)
		if c.canUntrack(o) {
			h.unset(flagTracked)
			p.untracked++
			continue
		}
		if p.old == p.young {
			// Compact in place; kept never overtakes i.
			_ = members.Set(kept, o)
			h.index = kept
			kept++
			continue
		}
		appendMember(p.old, p.oldID, o)
		p.promoted++
	}
	members.Truncate(kept)
}

// canUntrack reports whether o is an immutable container referencing only untracked objects.
func (c *Collector) canUntrack(o Object) bool {
	im, ok := o.(Immutable)
	if !ok || !im.ImmutableReferences() {
		return false
	}
	untrackable := true
	o.VisitReferences(func(r Object) {
		if r.GCHeader().has(flagTracked) {
			untrackable = false
		}
	})
	return untrackable
}

// quarantineFinalizers sends finalizable trash, and all trash it reaches, to the garbage list.
func (c *Collector) quarantineFinalizers(p *pass) {
	p.stack.Truncate(0)
	for _, o := range p.doomed.All() {
		h := o.GCHeader()
		if h.unreachable() && !h.has(flagReachable) && o.HasFinalizer() {
			h.set(flagReachable)
			_ = p.stack.Append(o)
		}
	}
	c.propagate(p)
	c.moveMarkedToGarbage(p)
}

// finalizeDoomed runs each pending finalizer once. Errors are reported and never stop the pass.
func (c *Collector) finalizeDoomed(p *pass) {
	for i := 0; i < p.doomed.Len(); i++ {
		o := p.doomed.Get(i)
		h := o.GCHeader()
		if !h.unreachable() || h.has(flagFinalized) || !o.HasFinalizer() {
			continue
		}
		h.set(flagFinalized)
		p.finalized++
		if err := runFinalizer(o); err != nil {
			ferr := &FinalizerError{Object: o, Err: err}
			c.opts.logger.Error("finalizer failed", "generation", p.gen, "type", fmt.Sprintf("%T", o), "error", err)
			c.opts.metrics.RecordFinalizerError(ferr)
		}
	}
}

func runFinalizer(o Object) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return o.Finalize()
}

// handleResurrected repeats trial deletion on the trash. Anything a finalizer made reachable
// again, and everything it reaches, becomes uncollectable.
func (c *Collector) handleResurrected(p *pass) {
	for _, o := range p.doomed.All() {
		h := o.GCHeader()
		if !h.unreachable() {
			continue
		}
		h.refs = o.RefCount()
		h.unset(flagReachable)
	}
	for _, o := range p.doomed.All() {
		if o.GCHeader().unreachable() {
			o.VisitReferences(subtractRef)
		}
	}
	c.markFromRoots(p, p.doomed)
	c.moveMarkedToGarbage(p)
}

// moveMarkedToGarbage moves marked trash to the old generation and the garbage list.
func (c *Collector) moveMarkedToGarbage(p *pass) {
	for _, o := range p.doomed.All() {
		h := o.GCHeader()
		if !h.unreachable() || !h.has(flagReachable) {
			continue
		}
		c.saveGarbage(p, o)
		p.stats.Uncollectable++
		c.debugf(DebugUncollectable, "gc: uncollectable", "type", fmt.Sprintf("%T", o), "generation", p.gen)
	}
}

func (c *Collector) saveGarbage(p *pass, o Object) {
	h := o.GCHeader()
	h.unset(flagCollecting | flagReachable)
	appendMember(p.old, p.oldID, o)
	if !h.has(flagGarbage) {
		h.set(flagGarbage)
		_ = c.garbage.Append(o)
	}
}

// deleteGarbage clears the references of the remaining trash so reference counting can free
// it. Frees that cascade from the clearing are routed through the trash stack by the object
// model and drain once the batch finishes.
func (c *Collector) deleteGarbage(p *pass) {
	b := clearBatch{c: c, p: p}
	if c.trash.Depth() >= c.trash.Limit() {
		// Already deep inside a destructor; the batch must not be parked past this pass.
		b.Destroy()
	} else {
		c.trash.Destroy(b)
	}

	// Whatever the object model kept alive goes back to the old generation.
	for _, o := range p.doomed.All() {
		h := o.GCHeader()
		if h.unreachable() {
			h.unset(flagCollecting | flagReachable)
			appendMember(p.old, p.oldID, o)
		}
	}
}

type clearBatch struct {
	c *Collector
	p *pass
}

func (b clearBatch) Destroy() {
	c, p := b.c, b.p
	for i := 0; i < p.doomed.Len(); i++ {
		o := p.doomed.Get(i)
		if !o.GCHeader().unreachable() {
			continue
		}
		if c.opts.debug&DebugSaveAll != 0 {
			c.saveGarbage(p, o)
			continue
		}
		c.debugf(DebugCollectable, "gc: collectable", "type", fmt.Sprintf("%T", o), "generation", p.gen)
		o.ClearReferences()
	}
}
