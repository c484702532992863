package gc

// Len returns the number of objects in generation gen, or 0 for an invalid generation.
func (c *Collector) Len(gen int) int {
	if gen < 0 || gen >= NumGenerations {
		return 0
	}
	return c.gens[gen].members.Len()
}

// PermanentLen returns the number of frozen objects.
func (c *Collector) PermanentLen() int { return c.permanent.members.Len() }

// FreezeCount is an alias of PermanentLen.
func (c *Collector) FreezeCount() int { return c.PermanentLen() }

// TrackedLen returns the number of tracked objects, frozen ones included.
func (c *Collector) TrackedLen() int {
	n := c.permanent.members.Len()
	for i := range c.gens {
		n += c.gens[i].members.Len()
	}
	return n
}

// Objects returns the members of generation gen, or of every ordinary generation when gen
// is negative. Frozen objects are not included.
func (c *Collector) Objects(gen int) []Object {
	if gen >= NumGenerations {
		return nil
	}
	var out []Object
	for i := range c.gens {
		if gen >= 0 && i != gen {
			continue
		}
		for _, o := range c.gens[i].members.All() {
			out = append(out, o)
		}
	}
	return out
}

// Referents returns the objects directly referenced by objs.
func (c *Collector) Referents(objs ...Object) []Object {
	var out []Object
	for _, o := range objs {
		o.VisitReferences(func(r Object) {
			out = append(out, r)
		})
	}
	return out
}

// Referrers returns the tracked objects in the ordinary generations that directly reference
// any of targets.
func (c *Collector) Referrers(targets ...Object) []Object {
	want := make(map[*Header]struct{}, len(targets))
	for _, t := range targets {
		want[t.GCHeader()] = struct{}{}
	}

	var out []Object
	for i := range c.gens {
		for _, o := range c.gens[i].members.All() {
			found := false
			o.VisitReferences(func(r Object) {
				if _, ok := want[r.GCHeader()]; ok {
					found = true
				}
			})
			if found {
				out = append(out, o)
			}
		}
	}
	return out
}

// Freeze moves every tracked object into the permanent generation, where collections
// never look. It is a no-op while a pass runs.
func (c *Collector) Freeze() {
	if c.state != stateIdle {
		return
	}
	for i := range c.gens {
		for _, o := range c.gens[i].members.All() {
			appendMember(&c.permanent, genPermanent, o)
		}
		c.gens[i].members.Truncate(0)
	}
	c.gens[0].count = 0
}

// Unfreeze moves the permanent generation back into the oldest generation.
// It is a no-op while a pass runs.
func (c *Collector) Unfreeze() {
	if c.state != stateIdle {
		return
	}
	oldest := &c.gens[NumGenerations-1]
	for _, o := range c.permanent.members.All() {
		appendMember(oldest, NumGenerations-1, o)
	}
	c.permanent.members.Truncate(0)
}

// Garbage returns a snapshot of the objects found uncollectable.
func (c *Collector) Garbage() []Object {
	out := make([]Object, 0, c.garbage.Len())
	for _, o := range c.garbage.All() {
		out = append(out, o)
	}
	return out
}

// ClearGarbage empties the garbage list and returns its former contents. The objects stay
// tracked; the next collection treats them like any other object.
func (c *Collector) ClearGarbage() []Object {
	out := c.Garbage()
	for _, o := range out {
		o.GCHeader().unset(flagGarbage)
	}
	c.garbage.Truncate(0)
	return out
}
