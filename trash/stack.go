package trash

import (
	"github.com/hupe1980/cyclegc/dynarray"
)

// DefaultLimit is the nesting depth beyond which destruction is deferred.
const DefaultLimit = 50

// Destructible is an object whose teardown may cascade into other destructions.
type Destructible interface {
	Destroy()
}

// Option configures a Stack.
type Option func(*Stack)

// WithLimit sets the nesting limit. Values below 1 are ignored.
func WithLimit(limit int) Option {
	return func(s *Stack) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithMemoryAcquirer charges growth of the pending list to acquirer.
func WithMemoryAcquirer(acquirer dynarray.MemoryAcquirer) Option {
	return func(s *Stack) {
		s.acquirer = acquirer
	}
}

// Stack is the deferred-destruction worklist.
type Stack struct {
	limit    int
	depth    int
	maxDepth int
	deferred uint64
	acquirer dynarray.MemoryAcquirer
	pending  *dynarray.Array[Destructible]
}

// New creates a Stack.
func New(opts ...Option) *Stack {
	s := &Stack{limit: DefaultLimit}
	for _, opt := range opts {
		opt(s)
	}

	var arrOpts []dynarray.Option
	if s.acquirer != nil {
		arrOpts = append(arrOpts, dynarray.WithMemoryAcquirer(s.acquirer))
	}
	// Zero capacity never charges the acquirer, so this cannot fail.
	s.pending, _ = dynarray.New[Destructible](0, nil, arrOpts...)
	return s
}

// BeginDestroy enters a destruction of obj. It reports whether the caller should run the
// teardown inline and then call EndDestroy. When it returns false obj has been parked and
// the caller must return without calling EndDestroy.
func (s *Stack) BeginDestroy(obj Destructible) bool {
	if s.depth >= s.limit {
		if err := s.pending.Append(obj); err == nil {
			s.deferred++
			return false
		}
		// The worklist could not grow; fall through and destroy inline.
	}
	s.enter()
	return true
}

// EndDestroy leaves a destruction started by BeginDestroy. The outermost call drains every
// parked object before returning.
func (s *Stack) EndDestroy() {
	if s.depth == 0 {
		panic("trash: EndDestroy without matching BeginDestroy")
	}
	s.depth--
	if s.depth > 0 {
		return
	}
	for s.pending.Len() > 0 {
		obj, _ := s.pending.Pop(s.pending.Len() - 1)
		s.enter()
		obj.Destroy()
		s.depth--
	}
}

// Destroy runs obj.Destroy under the nesting guard.
func (s *Stack) Destroy(obj Destructible) {
	if !s.BeginDestroy(obj) {
		return
	}
	obj.Destroy()
	s.EndDestroy()
}

// Depth returns the current nesting depth.
func (s *Stack) Depth() int { return s.depth }

// MaxDepth returns the deepest nesting observed.
func (s *Stack) MaxDepth() int { return s.maxDepth }

// Pending returns the number of parked objects.
func (s *Stack) Pending() int { return s.pending.Len() }

// Deferred returns how many destructions have been parked in total.
func (s *Stack) Deferred() uint64 { return s.deferred }

// Limit returns the nesting limit.
func (s *Stack) Limit() int { return s.limit }

func (s *Stack) enter() {
	s.depth++
	if s.depth > s.maxDepth {
		s.maxDepth = s.depth
	}
}
