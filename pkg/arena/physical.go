package arena

import (
	"unsafe"

	"github.com/gofreelist/blockarena/pkg/xunsafe"
)

func loadWord(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func storeWord(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

// nextUnsafe computes the physically next header without range-checking the
// result; callers must know the block is not the tail.
func (b Block) nextUnsafe() Block {
	return Block(uintptr(b) + uintptr(HeaderSize) + uintptr(b.Size()))
}

// next returns the block physically following b within v's active range, or
// nilBlock if b is the tail.
func (v arenaView) next(b Block) Block {
	if b == v.tail() {
		return nilBlock
	}
	return b.nextUnsafe()
}

// firstBlock computes the address of v's first block header, accounting for
// the alignment padding possibly inserted between the arena header and it.
func (v arenaView) firstBlock() Block {
	raw := int(v.addr()) + HeaderSize + HeaderSize
	aligned := roundUp(raw, v.alignment())
	return Block(uintptr(aligned - HeaderSize))
}

// writeFirstBlockDetector records, in the word immediately preceding first,
// how to recover v's own address by walking backward from first when first
// has no physical predecessor (the "first-block terminal case" of user
// pointer resolution). When there is no padding between the arena header and
// first, no write is necessary: the arena header's own last word (always a
// word-aligned pointer, so its low bit is naturally 0) already serves as the
// "no padding" signal.
func (v arenaView) writeFirstBlockDetector(first Block) {
	detectorAddr := uintptr(first) - uintptr(wordSize)
	if detectorAddr == uintptr(v.addr())+uintptr(HeaderSize)-uintptr(wordSize) {
		return // no padding: detector slot is the arena's own free_tree_root word.
	}
	delta := detectorAddr - uintptr(v.addr())
	storeWord(detectorAddr, delta<<1|1)
}

// firstBlockTerminalArena recovers the arena (or nested-arena/bump) header
// immediately preceding first, which has no physical predecessor.
func firstBlockTerminalArena(first Block) xunsafe.Addr[header] {
	detectorAddr := uintptr(first) - uintptr(wordSize)
	v := loadWord(detectorAddr)
	if v&1 == 0 {
		return xunsafe.Addr[header](uintptr(first) - uintptr(HeaderSize))
	}
	delta := v >> 1
	return xunsafe.Addr[header](detectorAddr - delta)
}

// blockFromUserPtr decodes a user pointer into the block header that
// describes it, per §4.B's two scenarios. It returns ok == false for any
// pointer that does not decode to a plausible block (the common outcome for
// a foreign or corrupt pointer passed to FreeBlock).
func blockFromUserPtr(userPtr uintptr) (Block, bool) {
	if userPtr == 0 || userPtr%uintptr(wordSize) != 0 {
		return nilBlock, false
	}
	wordBefore := loadWord(userPtr - uintptr(wordSize))
	if wordBefore^userPtr == Sentinel {
		return Block(userPtr - uintptr(HeaderSize)), true
	}
	blockAddr := wordBefore ^ userPtr
	if blockAddr == 0 || blockAddr%uintptr(wordSize) != 0 {
		return nilBlock, false
	}
	return Block(blockAddr), true
}

// resolveArena finds the header of the arena that owns userPtr, without
// requiring every occupied block to store a direct pointer to it whenever
// walking through a nested arena boundary.
func resolveArena(userPtr uintptr) (xunsafe.Addr[header], bool) {
	cur, ok := blockFromUserPtr(userPtr)
	if !ok {
		return 0, false
	}
	for {
		v := arenaView(cur.addr())
		if !cur.IsFree() && !v.isNested() {
			return cur.arenaHeader(), true
		}
		prev := cur.Prev()
		if prev.IsNil() {
			return firstBlockTerminalArena(cur), true
		}
		cur = prev
	}
}
