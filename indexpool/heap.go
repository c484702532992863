package indexpool

// minHeap is a binary min-heap of int32 over a slice whose capacity is managed by the pool.
// push never grows the slice.
type minHeap struct {
	items []int32
}

func (h *minHeap) len() int { return len(h.items) }

func (h *minHeap) capacity() int { return cap(h.items) }

// push assumes len < cap.
func (h *minHeap) push(v int32) {
	h.items = append(h.items, v)
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) pop() int32 {
	n := len(h.items)
	root := h.items[0]
	last := h.items[n-1]
	h.items = h.items[:n-1]
	if n-1 > 0 {
		h.items[0] = last
		h.siftDown(0)
	}
	return root
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if h.items[p] <= h.items[i] {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && h.items[r] < h.items[l] {
			best = r
		}
		if h.items[i] <= h.items[best] {
			return
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}

// grow replaces the backing array with one of capacity newCap, keeping the contents.
func (h *minHeap) grow(newCap int) {
	items := make([]int32, len(h.items), newCap)
	copy(items, h.items)
	h.items = items
}
