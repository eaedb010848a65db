package arena

import (
	"github.com/gofreelist/blockarena/pkg/xunsafe"
)

// Block is a handle to a block header living inside some arena's buffer. It
// is a plain address, not a garbage-collector-visible pointer: see the
// memory-safety note on [Arena].
type Block xunsafe.Addr[header]

// nilBlock is the zero Block, used as "no block" throughout the package.
const nilBlock Block = 0

func (b Block) addr() xunsafe.Addr[header] { return xunsafe.Addr[header](b) }

func (b Block) IsNil() bool { return b == nilBlock }

func (b Block) ptr() *header {
	return b.addr().AssertValid()
}

// Addr returns the raw machine address of this block's header.
func (b Block) Addr() uintptr { return uintptr(b) }

// Payload returns the address of the first byte a user pointer derived from
// this block would point to.
func (b Block) Payload() uintptr { return uintptr(b) + uintptr(HeaderSize) }

// Size returns the block's payload byte count.
func (b Block) Size() int {
	size, _ := splitWord(b.ptr().word0)
	return size
}

// SetSize sets the block's payload byte count, preserving the alignment
// exponent bits.
func (b Block) SetSize(n int) {
	h := b.ptr()
	_, exp := splitWord(h.word0)
	h.word0 = packWord(n, exp)
}

// Alignment returns the block's required payload alignment.
func (b Block) Alignment() int {
	_, exp := splitWord(b.ptr().word0)
	return expToAlign(exp)
}

// SetAlignment stores the exponent for align, which the caller guarantees is
// a power of two in the representable range.
func (b Block) SetAlignment(align int) {
	h := b.ptr()
	size, _ := splitWord(h.word0)
	h.word0 = packWord(size, alignToExp(align))
}

// Prev returns the physically previous block, or nilBlock for the first
// block of an arena.
func (b Block) Prev() Block {
	addr, _ := splitTagged(b.ptr().word1, flagMask)
	return Block(addr)
}

// SetPrev sets the physically previous block, preserving the tag bits.
func (b Block) SetPrev(p Block) {
	h := b.ptr()
	_, flags := splitTagged(h.word1, flagMask)
	h.word1 = packTagged(uintptr(p), flags, flagMask)
}

// IsFree reports whether this block is currently in the free tree or is the
// tail (the two "free" states); it is the discriminant between the block's
// two header variants.
func (b Block) IsFree() bool {
	_, flags := splitTagged(b.ptr().word1, flagMask)
	return flags&flagFree != 0
}

// SetIsFree sets or clears the free flag.
func (b Block) SetIsFree(free bool) {
	h := b.ptr()
	addr, flags := splitTagged(h.word1, flagMask)
	if free {
		flags |= flagFree
	} else {
		flags &^= flagFree
	}
	h.word1 = packTagged(addr, flags, flagMask)
}

func (b Block) color() color {
	_, flags := splitTagged(b.ptr().word1, flagMask)
	return flags&flagColor != 0
}

func (b Block) setColor(c color) {
	h := b.ptr()
	addr, flags := splitTagged(h.word1, flagMask)
	if c {
		flags |= flagColor
	} else {
		flags &^= flagColor
	}
	h.word1 = packTagged(addr, flags, flagMask)
}

// --- Free variant: child pointers into the free tree. ---

func (b Block) left() Block  { return Block(b.ptr().word2) }
func (b Block) right() Block { return Block(b.ptr().word3) }

func (b Block) setLeft(c Block)  { b.ptr().word2 = uintptr(c) }
func (b Block) setRight(c Block) { b.ptr().word3 = uintptr(c) }

// --- Occupied variant: owning arena and XOR magic. ---

// arenaHeader returns the occupied variant's owning-arena pointer, as raw header
// address. Use [resolveArena] to correctly unwind nested arenas.
func (b Block) arenaHeader() xunsafe.Addr[header] { return xunsafe.Addr[header](b.ptr().word2) }

func (b Block) setArenaHeader(a xunsafe.Addr[header]) { b.ptr().word2 = uintptr(a) }

func (b Block) magic() uintptr { return b.ptr().word3 }

func (b Block) setMagic(userPtr uintptr) { b.ptr().word3 = Sentinel ^ userPtr }

func (b Block) validMagic(userPtr uintptr) bool { return b.magic()^userPtr == Sentinel }
