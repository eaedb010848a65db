// Package arena carves user allocations out of a single contiguous byte
// buffer. One buffer supports three allocation disciplines at once: a
// general free-list allocator with best-fit reuse and coalescing (see
// [Arena.Alloc]), a linear bump sub-allocator ([NewBump]), and nested arenas
// that live as a single block inside a parent arena ([NewNested]).
//
// # Layout
//
// Every arena, block and bump header shares one physical, four-machine-word
// layout (see header in layout.go): the first word packs a size and an
// alignment exponent, the second a "prev" pointer with tag bits, and the
// remaining two words are reinterpreted depending on role (free-tree
// children, owning-arena pointer + XOR magic, or arena tail/free-root). This
// is what lets the physical list walk every header uniformly regardless of
// what it currently holds.
//
// # Memory safety
//
// Addresses inside an arena — block headers, the arena header, user
// pointers — are carried as plain uintptr-derived values ([Block],
// internal arenaView), which the garbage collector does not trace. An
// [Arena] value's buf field is the only GC-traced reference anchoring the
// whole region; as long as that Arena value, or any pointer obtained from
// it, remains reachable, the backing array cannot be collected. Letting
// every reference to an Arena go out of scope while pointers obtained from
// it are still in use is a use-after-free, exactly as in a C allocator.
//
// # Failure model
//
// Every fallible operation returns nil, false, or a zero value; none panic
// on bad input or out-of-space conditions. internal/debug.Assert is reserved
// for conditions that indicate a bug in this package itself, and only fires
// in debug builds.
package arena

import (
	"unsafe"

	"github.com/gofreelist/blockarena/internal/debug"
	"github.com/gofreelist/blockarena/pkg/xunsafe"
	"github.com/gofreelist/blockarena/pkg/zc"
)

// Arena owns a contiguous byte buffer carved into a physical list of block
// headers, plus a free tree of best-fit candidates. Arena must not be
// copied after use; see [xunsafe.NoCopy].
type Arena struct {
	_   xunsafe.NoCopy
	buf []byte
	v   arenaView
}

func minArenaSize() int { return HeaderSize*2 + MinBufferSize }

// initArenaHeader installs a fresh arena header (capacity bytes total,
// default-alignment align) at hdr, with a single free tail block covering
// the whole payload, and returns the resulting view.
func initArenaHeader(hdr xunsafe.Addr[header], capacity, align int) arenaView {
	v := arenaView(hdr)
	*v.ptr() = header{}
	v.setCapacity(capacity)
	v.setAlignment(align)

	first := v.firstBlock()
	v.writeFirstBlockDetector(first)

	*first.ptr() = header{}
	first.SetAlignment(align)
	first.SetSize(0)
	first.SetIsFree(true)
	first.SetPrev(nilBlock)

	v.setTail(first)
	v.setFreeRoot(nilBlock)

	return v
}

// NewStatic installs an arena of n bytes (the default alignment, 16) inside
// the caller-owned buffer buf. It returns nil if buf is too small to hold
// even one minimum-size block.
func NewStatic(buf []byte, n int) *Arena {
	return NewStaticAligned(buf, n, DefaultAlignment)
}

// NewStaticAligned is NewStatic with an explicit default alignment for
// blocks allocated without their own alignment request.
func NewStaticAligned(buf []byte, n int, align int) *Arena {
	if buf == nil || n <= 0 || n > len(buf) || !representableAlignment(align) {
		return nil
	}
	if n < minArenaSize() {
		return nil
	}

	hdr := xunsafe.Addr[header](uintptr(unsafe.Pointer(&buf[0])))
	v := initArenaHeader(hdr, n, align)
	if v.tailFree() < 0 {
		return nil
	}
	return &Arena{buf: buf, v: v}
}

// NewDynamic is NewStatic over a buffer obtained from the host allocator
// (see obtain in host.go); the arena is tagged is_dynamic so [Arena.Free]
// releases the buffer back to the host.
func NewDynamic(n int) *Arena {
	return NewDynamicAligned(n, DefaultAlignment)
}

// NewDynamicAligned is NewDynamic with an explicit default block alignment.
func NewDynamicAligned(n int, align int) *Arena {
	if n <= 0 || !representableAlignment(align) {
		return nil
	}
	buf, ok := obtain(n + minArenaSize() + align)
	if !ok {
		return nil
	}
	a := NewStaticAligned(buf, len(buf), align)
	if a == nil {
		release(buf)
		return nil
	}
	a.v.setIsDynamic(true)
	return a
}

// Capacity returns the arena's total byte capacity, including its own
// header and every block header within it.
func (a *Arena) Capacity() int {
	if a == nil {
		return 0
	}
	return a.v.capacity()
}

// Alignment returns the default alignment new allocations use when no
// explicit alignment is requested.
func (a *Arena) Alignment() int {
	if a == nil {
		return 0
	}
	return a.v.alignment()
}

// Alloc carves n payload bytes out of a, aligned to a's default alignment.
// It returns nil if n is non-positive or no free space remains.
func (a *Arena) Alloc(n int) unsafe.Pointer {
	if a == nil {
		return nil
	}
	return a.AllocAligned(n, a.v.alignment())
}

// AllocAligned is Alloc with an explicit payload alignment. align must be a
// representable power of two (see [representableAlignment]); align <= 0
// requests a's default alignment.
func (a *Arena) AllocAligned(n, align int) unsafe.Pointer {
	if a == nil || n <= 0 {
		return nil
	}
	if align <= 0 {
		align = a.v.alignment()
	}
	return allocFrom(a.v, n, align)
}

// Calloc allocates room for count elements of size bytes each and zeroes
// it. It returns nil on overflow of count*size as well as on the ordinary
// Alloc failure modes.
func (a *Arena) Calloc(count, size int) unsafe.Pointer {
	if a == nil || count <= 0 || size <= 0 {
		return nil
	}
	total := count * size
	if total/count != size {
		return nil
	}
	ptr := a.Alloc(total)
	if ptr == nil {
		return nil
	}
	clearBytes(uintptr(ptr), total)
	return ptr
}

// IsDynamic reports whether this arena's buffer was obtained from the host
// allocator (and will be released by [Arena.Free]).
func (a *Arena) IsDynamic() bool { return a != nil && a.v.isDynamic() }

// IsNested reports whether this arena's backing storage is a block owned by
// a parent arena (and will be returned to it by [Arena.Free]).
func (a *Arena) IsNested() bool { return a != nil && a.v.isNested() }

// Reset collapses the arena back to a single free tail block covering the
// entire payload, as if freshly created. Every pointer previously obtained
// from this arena, or any sub-allocator rooted in it, becomes invalid.
func (a *Arena) Reset() {
	if a == nil {
		return
	}
	wasDynamic, wasNested := a.v.isDynamic(), a.v.isNested()
	a.v = initArenaHeader(a.v.addr(), a.v.capacity(), a.v.alignment())
	a.v.setIsDynamic(wasDynamic)
	a.v.setIsNested(wasNested)
}

// ResetZero is Reset followed by zeroing the entire payload.
func (a *Arena) ResetZero() {
	if a == nil {
		return
	}
	a.Reset()
	first := a.v.firstBlock()
	start, end := first.Payload(), a.v.end()
	if end > start {
		clearBytes(start, int(end-start))
	}
}

// Free releases this arena: it returns the backing buffer to the host if
// the arena is dynamic, or returns the backing block to the parent if the
// arena is nested. It is a no-op for a static, non-nested arena (the caller
// owns that buffer), for a nil Arena, and for a dynamic arena that has
// already been freed.
func (a *Arena) Free() {
	if a == nil || a.buf == nil {
		return
	}
	switch {
	case a.v.isNested():
		FreeBlock(unsafe.Pointer(uintptr(a.v.addr())))
	case a.v.isDynamic():
		release(a.buf)
		a.buf = nil
	}
}

// FreeRegions returns every currently free payload region in a, each
// expressed as a byte offset and length within a's own backing buffer: the
// free tree's contents in Triple-Key order, followed by the trailing tail
// region if it is still free. It is meant for diagnostics and tests, not
// the allocation hot path.
func (a *Arena) FreeRegions() []zc.View {
	if a == nil || len(a.buf) == 0 {
		return nil
	}
	base := uintptr(a.v.addr())

	var out []zc.View
	for b := range inorder(a.v.freeRoot()) {
		out = append(out, zc.Raw(int(b.Payload()-base), b.Size()))
	}
	if tail := a.v.tail(); !tail.IsNil() && tail.IsFree() {
		out = append(out, zc.Raw(int(tail.Payload()-base), a.v.tailFree()))
	}
	return out
}

func clearBytes(addr uintptr, n int) {
	if n <= 0 {
		return
	}
	debug.Assert(n >= 0, "clearBytes: negative length %d", n)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	clear(dst)
}
