package cyclegc

import (
	"context"
	"sync"
)

// ThreadState is a goroutine's attachment to a Runtime. Its ID is the smallest thread
// slot free at attach time and is reused after Detach.
type ThreadState struct {
	rt   *Runtime
	id   int32
	once sync.Once
}

// AttachThread assigns a thread slot.
func (r *Runtime) AttachThread() (*ThreadState, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	id, err := r.threads.Alloc()
	r.mu.Unlock()

	err = translateError(err)
	r.metrics.RecordThreadAttach(err)
	r.logger.LogThreadAttach(context.Background(), id, err)
	if err != nil {
		return nil, err
	}
	return &ThreadState{rt: r, id: id}, nil
}

// ID returns the thread slot.
func (t *ThreadState) ID() int32 { return t.id }

// Runtime returns the runtime the thread is attached to.
func (t *ThreadState) Runtime() *Runtime { return t.rt }

// Detach returns the thread slot. Only the first call has an effect.
func (t *ThreadState) Detach() {
	t.once.Do(func() {
		t.rt.mu.Lock()
		if !t.rt.closed {
			t.rt.threads.Free(t.id)
		}
		t.rt.mu.Unlock()
		t.rt.metrics.RecordThreadDetach()
		t.rt.logger.LogThreadDetach(context.Background(), t.id)
	})
}

// ActiveThreads returns the number of attached threads.
func (r *Runtime) ActiveThreads() int {
	return r.threads.Outstanding()
}
