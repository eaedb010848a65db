package arena

import "github.com/gofreelist/blockarena/pkg/xunsafe"

// arenaView is the "arena as header" role described in the data model: the
// same four-word physical layout as [Block], reinterpreted as capacity,
// alignment, tail pointer and free-tree root. Every top-level arena, nested
// arena and bump sub-allocator header is addressed this way internally.
type arenaView xunsafe.Addr[header]

func (v arenaView) addr() xunsafe.Addr[header] { return xunsafe.Addr[header](v) }

func (v arenaView) ptr() *header { return v.addr().AssertValid() }

func (v arenaView) isNil() bool { return v == 0 }

func (v arenaView) capacity() int {
	size, _ := splitWord(v.ptr().word0)
	return size
}

func (v arenaView) setCapacity(n int) {
	h := v.ptr()
	_, exp := splitWord(h.word0)
	h.word0 = packWord(n, exp)
}

func (v arenaView) alignment() int {
	_, exp := splitWord(v.ptr().word0)
	return expToAlign(exp)
}

func (v arenaView) setAlignment(align int) {
	h := v.ptr()
	size, _ := splitWord(h.word0)
	h.word0 = packWord(size, alignToExp(align))
}

func (v arenaView) tail() Block {
	addr, _ := splitTagged(v.ptr().word2, tailMask)
	return Block(addr)
}

func (v arenaView) setTail(b Block) {
	h := v.ptr()
	_, flags := splitTagged(h.word2, tailMask)
	h.word2 = packTagged(uintptr(b), flags, tailMask)
}

func (v arenaView) isDynamic() bool {
	_, flags := splitTagged(v.ptr().word2, tailMask)
	return flags&tailDynamic != 0
}

func (v arenaView) setIsDynamic(on bool) {
	h := v.ptr()
	addr, flags := splitTagged(h.word2, tailMask)
	if on {
		flags |= tailDynamic
	} else {
		flags &^= tailDynamic
	}
	h.word2 = packTagged(addr, flags, tailMask)
}

func (v arenaView) isNested() bool {
	_, flags := splitTagged(v.ptr().word2, tailMask)
	return flags&tailNested != 0
}

func (v arenaView) setIsNested(on bool) {
	h := v.ptr()
	addr, flags := splitTagged(h.word2, tailMask)
	if on {
		flags |= tailNested
	} else {
		flags &^= tailNested
	}
	h.word2 = packTagged(addr, flags, tailMask)
}

func (v arenaView) freeRoot() Block { return Block(v.ptr().word3) }

func (v arenaView) setFreeRoot(b Block) { v.ptr().word3 = uintptr(b) }

// end returns the address one past the last byte owned by this arena.
func (v arenaView) end() uintptr { return uintptr(v.addr()) + uintptr(v.capacity()) }

// tailFree returns the number of unused bytes available after the tail
// block's header, i.e. the tail's "free payload" per the glossary. It
// reports 0 once the tail itself has become occupied (the arena is
// completely exhausted, the boundary case where consuming the final bytes
// of a minimum-size arena leaves no room for a further tail header).
func (v arenaView) tailFree() int {
	t := v.tail()
	if !t.IsFree() {
		return 0
	}
	return int(v.end() - (uintptr(t) + uintptr(HeaderSize)))
}
