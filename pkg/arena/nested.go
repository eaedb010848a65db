package arena

import "github.com/gofreelist/blockarena/pkg/xunsafe"

// NewNested carves a fresh arena of n bytes out of parent, for independent
// use as an allocator in its own right. The nested arena's header is
// written into the memory parent handed back, rather than occupying any
// separate bookkeeping of its own: tearing it down with [Arena.Free] is
// ordinary FreeBlock on that same address, handled by parent's own
// coalescing.
func NewNested(parent *Arena, n int) *Arena {
	if parent == nil {
		return nil
	}
	return NewNestedAligned(parent, n, parent.v.alignment())
}

// NewNestedAligned is NewNested with an explicit default block alignment
// for the nested arena.
func NewNestedAligned(parent *Arena, n, align int) *Arena {
	if parent == nil || n <= 0 || n < minArenaSize() || !representableAlignment(align) {
		return nil
	}

	ptr := parent.AllocAligned(n, align)
	if ptr == nil {
		return nil
	}

	hdr := xunsafe.Addr[header](uintptr(ptr))
	v := initArenaHeader(hdr, n, align)
	v.setIsNested(true)

	return &Arena{buf: parent.buf, v: v}
}
