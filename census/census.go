package census

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/cyclegc/gc"
)

// Census is a snapshot of a collector.
type Census struct {
	TakenAt time.Time `json:"taken_at"`

	Enabled    bool                     `json:"enabled"`
	Debug      gc.DebugFlags            `json:"debug"`
	Thresholds [gc.NumGenerations]int   `json:"thresholds"`
	Counts     [gc.NumGenerations]int   `json:"counts"`
	Sizes      [gc.NumGenerations]int   `json:"sizes"`
	Permanent  int                      `json:"permanent"`
	Stats      [gc.NumGenerations]Stats `json:"stats"`

	LongLivedTotal   int `json:"long_lived_total"`
	LongLivedPending int `json:"long_lived_pending"`

	Garbage []TypeCount `json:"garbage,omitempty"`
	Trash   Trash       `json:"trash"`
}

// Stats mirrors gc.Stats with stable field names.
type Stats struct {
	Collections   int `json:"collections"`
	Collected     int `json:"collected"`
	Uncollectable int `json:"uncollectable"`
}

// TypeCount is one row of the garbage histogram.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Trash describes the collector's deferred-destruction stack.
type Trash struct {
	Limit    int    `json:"limit"`
	MaxDepth int    `json:"max_depth"`
	Pending  int    `json:"pending"`
	Deferred uint64 `json:"deferred"`
}

// Take captures the current state of c. It only reads collector state.
func Take(c *gc.Collector) *Census {
	cen := &Census{
		TakenAt:    time.Now().UTC(),
		Enabled:    c.Enabled(),
		Debug:      c.Debug(),
		Thresholds: c.Thresholds(),
		Counts:     c.Count(),
		Permanent:  c.PermanentLen(),
	}
	for gen, s := range c.Stats() {
		cen.Sizes[gen] = c.Len(gen)
		cen.Stats[gen] = Stats(s)
	}
	cen.LongLivedTotal, cen.LongLivedPending = c.LongLived()

	byType := make(map[string]int)
	for _, o := range c.Garbage() {
		byType[fmt.Sprintf("%T", o)]++
	}
	for typ, n := range byType {
		cen.Garbage = append(cen.Garbage, TypeCount{Type: typ, Count: n})
	}
	slices.SortFunc(cen.Garbage, func(a, b TypeCount) int {
		if n := cmp.Compare(b.Count, a.Count); n != 0 {
			return n
		}
		return cmp.Compare(a.Type, b.Type)
	})

	t := c.Trash()
	cen.Trash = Trash{
		Limit:    t.Limit(),
		MaxDepth: t.MaxDepth(),
		Pending:  t.Pending(),
		Deferred: t.Deferred(),
	}
	return cen
}

// Tracked returns the number of tracked objects in the census, frozen ones included.
func (c *Census) Tracked() int {
	n := c.Permanent
	for _, s := range c.Sizes {
		n += s
	}
	return n
}

// GarbageLen returns the total length of the garbage list.
func (c *Census) GarbageLen() int {
	n := 0
	for _, tc := range c.Garbage {
		n += tc.Count
	}
	return n
}
