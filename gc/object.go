package gc

// Object is a container that can take part in reference cycles.
type Object interface {
	// GCHeader returns the collector's per-object storage. It must return the same pointer
	// for the lifetime of the object.
	GCHeader() *Header

	// RefCount returns the number of references currently held to the object.
	RefCount() int

	// VisitReferences calls visit once per outgoing reference to another Object.
	VisitReferences(visit func(Object))

	// ClearReferences drops every outgoing reference. It is used to break doomed cycles.
	ClearReferences()

	// HasFinalizer reports whether Finalize does any work.
	HasFinalizer() bool

	// Finalize runs the object's finalizer. It is called at most once per object.
	Finalize() error
}

// Immutable is implemented by containers whose references never change after construction.
// Such a container cannot become part of a cycle once everything it references is untracked,
// so the collector untracks it when it survives a collection in that state.
type Immutable interface {
	ImmutableReferences() bool
}

const (
	flagTracked uint8 = 1 << iota
	flagFinalized
	flagCollecting
	flagReachable
	flagGarbage
)

const (
	genPermanent   int8 = NumGenerations
	genUnreachable int8 = NumGenerations + 1
)

// Header is the collector's storage inside each tracked object. The zero value is an
// untracked object.
type Header struct {
	flags uint8
	gen   int8
	// index is the position in the owning generation's member array.
	index int
	// refs is scratch space valid only while a collection runs.
	refs int
}

func (h *Header) has(f uint8) bool { return h.flags&f != 0 }

func (h *Header) set(f uint8) { h.flags |= f }

func (h *Header) unset(f uint8) { h.flags &^= f }

// collecting reports whether the object is a live member of the set being scanned.
func (h *Header) collecting() bool {
	return h.flags&(flagTracked|flagCollecting) == flagTracked|flagCollecting
}

// unreachable reports whether the object still sits in the trash of the running pass.
func (h *Header) unreachable() bool {
	return h.has(flagTracked) && h.gen == genUnreachable
}
