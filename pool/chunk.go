package pool

import "github.com/vrampool/gpumempool/rawmem"

// Unit is the allocator's rounding and alignment granularity (spec.md §3).
const Unit = 512

// chunk is a contiguous subrange of a parent raw allocation, linked into a
// doubly-linked neighbor list along that parent so adjacent chunks can be
// discovered in O(1) during coalescing.
type chunk struct {
	parent    *rawmem.Raw
	offset    int64
	size      int64
	streamTag uintptr
	inUse     bool
	prev      *chunk
	next      *chunk
}

func (c *chunk) address() uintptr {
	return c.parent.Base() + uintptr(c.offset)
}

// split divides a free chunk into a head of size n, returned to the caller,
// and a tail re-entered into the free list — spec.md §4.3, verbatim. If n
// consumes the whole chunk, the tail is nil and the original chunk object
// is returned unchanged as the head.
func split(c *chunk, n int64) (head, tail *chunk) {
	if n == c.size {
		return c, nil
	}

	head = &chunk{
		parent:    c.parent,
		offset:    c.offset,
		size:      n,
		streamTag: c.streamTag,
		prev:      c.prev,
	}
	tail = &chunk{
		parent:    c.parent,
		offset:    c.offset + n,
		size:      c.size - n,
		streamTag: c.streamTag,
		next:      c.next,
	}
	head.next = tail
	tail.prev = head

	if head.prev != nil {
		head.prev.next = head
	}
	if tail.next != nil {
		tail.next.prev = tail
	}
	return head, tail
}

// merge combines two adjacent free chunks of the same parent and stream tag
// into one. Callers must remove a and b from their free lists before
// calling merge and reinsert the result afterward (spec.md §4.3).
func merge(a, b *chunk) *chunk {
	m := &chunk{
		parent:    a.parent,
		offset:    a.offset,
		size:      a.size + b.size,
		streamTag: a.streamTag,
		prev:      a.prev,
		next:      b.next,
	}
	if m.prev != nil {
		m.prev.next = m
	}
	if m.next != nil {
		m.next.prev = m
	}
	return m
}
