package arena

import (
	"unsafe"

	"github.com/gofreelist/blockarena/pkg/xunsafe"
)

// bumpView is the bump role's reinterpretation of the shared header: word0
// still packs capacity and alignment, but word2 holds the owning arena's
// header address and word3 the current allocation offset in place of the
// free-tree fields a Block or arenaView would keep there.
type bumpView xunsafe.Addr[header]

func (v bumpView) addr() xunsafe.Addr[header] { return xunsafe.Addr[header](v) }

func (v bumpView) ptr() *header { return v.addr().AssertValid() }

func (v bumpView) capacity() int {
	size, _ := splitWord(v.ptr().word0)
	return size
}

func (v bumpView) setCapacity(n int) {
	h := v.ptr()
	_, exp := splitWord(h.word0)
	h.word0 = packWord(n, exp)
}

func (v bumpView) alignment() int {
	_, exp := splitWord(v.ptr().word0)
	return expToAlign(exp)
}

func (v bumpView) setAlignment(align int) {
	h := v.ptr()
	size, _ := splitWord(h.word0)
	h.word0 = packWord(size, alignToExp(align))
}

func (v bumpView) setParent(a xunsafe.Addr[header]) { v.ptr().word2 = uintptr(a) }

func (v bumpView) offset() int { return int(v.ptr().word3) }

func (v bumpView) setOffset(n int) { v.ptr().word3 = uintptr(n) }

// Bump is a linear sub-allocator: it carves a fixed-size region out of a
// parent [Arena] once, then hands out strictly increasing offsets within it
// with no per-allocation bookkeeping and no individual frees. Use it for a
// batch of short-lived values that all die together.
type Bump struct {
	_   xunsafe.NoCopy
	buf []byte // shares the parent arena's backing array, keeping it reachable
	v   bumpView
}

// NewBump carves n usable bytes for bump allocation out of parent, at
// parent's default alignment. It returns nil if parent is nil, n is
// non-positive, or parent has no room left.
func NewBump(parent *Arena, n int) *Bump {
	if parent == nil {
		return nil
	}
	return NewBumpAligned(parent, n, parent.v.alignment())
}

// NewBumpAligned is NewBump with an explicit default alignment for values
// allocated from it without their own alignment request.
func NewBumpAligned(parent *Arena, n, align int) *Bump {
	if parent == nil || n <= 0 || !representableAlignment(align) {
		return nil
	}
	ptr := parent.AllocAligned(n+HeaderSize, align)
	if ptr == nil {
		return nil
	}

	hdr := xunsafe.Addr[header](uintptr(ptr))
	v := bumpView(hdr)
	*v.ptr() = header{}
	v.setCapacity(n)
	v.setAlignment(align)
	v.setParent(parent.v.addr())
	v.setOffset(0)

	return &Bump{buf: parent.buf, v: v}
}

// Capacity returns the total usable byte count bp was created with.
func (bp *Bump) Capacity() int {
	if bp == nil {
		return 0
	}
	return bp.v.capacity()
}

// Used returns the number of bytes handed out so far, including any
// alignment padding between allocations.
func (bp *Bump) Used() int {
	if bp == nil {
		return 0
	}
	return bp.v.offset()
}

// Alloc hands out n bytes at bp's default alignment. It returns nil once
// bp's capacity is exhausted.
func (bp *Bump) Alloc(n int) unsafe.Pointer {
	if bp == nil {
		return nil
	}
	return bp.AllocAligned(n, bp.v.alignment())
}

// AllocAligned is Alloc with an explicit alignment for this one value.
func (bp *Bump) AllocAligned(n, align int) unsafe.Pointer {
	if bp == nil || n <= 0 || !representableAlignment(align) {
		return nil
	}

	base := uintptr(bp.v.addr()) + uintptr(HeaderSize)
	raw := base + uintptr(bp.v.offset())
	aligned := uintptr(roundUp(int(raw), align))
	pad := int(aligned - raw)

	newOffset := bp.v.offset() + pad + n
	if newOffset > bp.v.capacity() {
		return nil
	}
	bp.v.setOffset(newOffset)
	return unsafe.Pointer(aligned)
}

// Reset rewinds bp to empty without returning its backing block to the
// parent arena; every pointer previously handed out becomes invalid.
func (bp *Bump) Reset() {
	if bp != nil {
		bp.v.setOffset(0)
	}
}

// Trim shrinks bp's backing block down to only what has actually been used
// (header plus offset, rounded up to the parent arena's alignment),
// returning the unused remainder to the parent arena as free space. It is a
// no-op if the remainder is too small to hold a block of its own.
func (bp *Bump) Trim() {
	if bp == nil {
		return
	}
	backingAddr := uintptr(bp.v.addr())
	backing, ok := blockFromUserPtr(backingAddr)
	if !ok {
		return
	}
	hdr, ok := resolveArena(backingAddr)
	if !ok {
		return
	}
	av := arenaView(hdr)

	used := roundUp(HeaderSize+bp.v.offset(), av.alignment())
	remainder := backing.Size() - used
	if remainder < HeaderSize+MinBufferSize {
		return
	}

	origNext := av.next(backing)
	backing.SetSize(used)

	free := Block(backing.Payload() + uintptr(used))
	*free.ptr() = header{}
	free.SetAlignment(av.alignment())
	free.SetSize(remainder - HeaderSize)
	free.SetPrev(backing)

	if origNext.IsNil() {
		av.setTail(free)
	} else {
		origNext.SetPrev(free)
	}

	bp.v.setCapacity(bp.v.offset())
	freeBlockCore(av, free)
}

// Free returns bp's entire backing block to the parent arena. Every pointer
// previously handed out by bp becomes invalid.
func (bp *Bump) Free() {
	if bp == nil {
		return
	}
	FreeBlock(unsafe.Pointer(uintptr(bp.v.addr())))
}
