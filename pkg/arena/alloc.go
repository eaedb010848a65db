package arena

import "unsafe"

// allocFrom is the shared entry point for both public Alloc paths: try the
// free tree's best fit first, then fall back to carving off the arena's
// tail.
func allocFrom(v arenaView, size, align int) unsafe.Pointer {
	if size <= 0 || !representableAlignment(align) {
		return nil
	}
	if best := findBestFit(v.freeRoot(), size, align); best.IsSome() {
		return splitAndReturn(v, best.Unwrap(), size, align)
	}
	return allocFromTail(v, size, align)
}

// splitAndReturn carves size bytes, aligned to align, out of the free block
// b (still in the free tree; it is detached here) and returns the resulting
// user pointer. b's physical footprint is repartitioned into an optional head
// free block (if the alignment padding needed is itself big enough to stand
// alone), the occupied block, and an optional tail free block (if what is
// left over clears HEADER+MIN_BUFFER_SIZE); anything smaller is absorbed
// into the occupied block as internal padding.
func splitAndReturn(v arenaView, b Block, size, align int) unsafe.Pointer {
	v.setFreeRoot(detachByPtr(v.freeRoot(), b))

	origNext := v.next(b)
	oldSize := b.Size()
	raw := b.Payload()
	aligned := uintptr(roundUp(int(raw), align))
	headPad := int(aligned - raw)

	occ := b
	avail := oldSize

	if headPad >= HeaderSize+MinBufferSize {
		b.SetSize(headPad - HeaderSize)
		b.SetAlignment(v.alignment())
		v.setFreeRoot(insert(v.freeRoot(), b))

		occ = Block(aligned - uintptr(HeaderSize))
		*occ.ptr() = header{}
		occ.SetPrev(b)

		avail = oldSize - headPad
		headPad = 0
	}

	userAddr := aligned
	used := roundUp(headPad+size, wordSize)
	remainder := avail - used

	if headPad > 0 {
		storeWord(userAddr-uintptr(wordSize), uintptr(occ)^userAddr)
	}

	var next Block
	if remainder >= HeaderSize+MinBufferSize {
		occ.SetSize(used)
		free := Block(occ.Payload() + uintptr(used))
		*free.ptr() = header{}
		free.SetAlignment(v.alignment())
		free.SetSize(remainder - HeaderSize)
		free.SetIsFree(true)
		free.SetPrev(occ)
		v.setFreeRoot(insert(v.freeRoot(), free))
		next = free
	} else {
		occ.SetSize(avail)
		next = occ
	}

	occ.SetAlignment(align)
	occ.SetIsFree(false)
	occ.setArenaHeader(v.addr())
	occ.setMagic(userAddr)
	origNext.SetPrev(next)

	return unsafe.Pointer(userAddr)
}

// allocFromTail carves size bytes off the arena's trailing free region. If
// aligning the tail's payload to align would itself waste enough bytes to
// form a standalone free block, the old tail keeps that padding as a free
// block in the free tree and a new tail is placed right before the aligned
// payload first. What remains after the allocation either becomes a fresh
// zero-size free tail (the common case) or, if it is smaller than
// HEADER+MIN_BUFFER_SIZE, is folded entirely into this allocation — the
// arena's last few bytes, with no block left to place after it.
func allocFromTail(v arenaView, size, align int) unsafe.Pointer {
	tail := v.tail()
	if tail.IsNil() || !tail.IsFree() {
		return nil
	}

	raw := tail.Payload()
	aligned := uintptr(roundUp(int(raw), align))
	headPad := int(aligned - raw)

	if headPad >= HeaderSize+MinBufferSize {
		tail.SetSize(headPad - HeaderSize)
		tail.SetAlignment(v.alignment())
		v.setFreeRoot(insert(v.freeRoot(), tail))

		newTail := Block(aligned - uintptr(HeaderSize))
		*newTail.ptr() = header{}
		newTail.SetAlignment(v.alignment())
		newTail.SetSize(0)
		newTail.SetIsFree(true)
		newTail.SetPrev(tail)
		v.setTail(newTail)

		tail = newTail
		headPad = 0
	}

	free := v.tailFree()
	if headPad+size > free {
		return nil
	}

	userAddr := aligned
	tailPad := padding(int(userAddr)+size, v.alignment())
	remainder := free - headPad - size - tailPad

	occ := tail
	var allocSize int
	makesNewTail := remainder >= HeaderSize+MinBufferSize
	if makesNewTail {
		allocSize = headPad + size + tailPad
	} else {
		allocSize = free
	}

	if headPad > 0 {
		storeWord(userAddr-uintptr(wordSize), uintptr(occ)^userAddr)
	}

	occ.SetSize(allocSize)
	occ.SetAlignment(align)
	occ.SetIsFree(false)
	occ.setArenaHeader(v.addr())
	occ.setMagic(userAddr)

	if makesNewTail {
		newTail := Block(occ.Payload() + uintptr(allocSize))
		*newTail.ptr() = header{}
		newTail.SetAlignment(v.alignment())
		newTail.SetSize(0)
		newTail.SetIsFree(true)
		newTail.SetPrev(occ)
		v.setTail(newTail)
	}

	return unsafe.Pointer(userAddr)
}

// FreeBlock returns a pointer previously handed out by an [Arena], [Bump],
// or nested arena back to its owning arena, coalescing it with any free
// physical neighbor. It silently does nothing for nil, foreign, or
// already-free pointers.
func FreeBlock(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	userAddr := uintptr(ptr)
	b, ok := blockFromUserPtr(userAddr)
	if !ok || b.IsNil() || b.IsFree() || !b.validMagic(userAddr) {
		return
	}
	hdr, ok := resolveArena(userAddr)
	if !ok {
		return
	}
	freeBlockCore(arenaView(hdr), b)
}

// freeBlockCore marks b free and coalesces it with its physical neighbors:
// a free predecessor absorbs b, and b in turn absorbs a free successor, or
// is folded back into the tail if its successor is the tail itself.
func freeBlockCore(v arenaView, b Block) {
	poisonPayload(b)
	b.SetIsFree(true)
	wasTail := b == v.tail()

	if prev := b.Prev(); !prev.IsNil() && prev.IsFree() {
		v.setFreeRoot(detachByPtr(v.freeRoot(), prev))
		prev.SetSize(prev.Size() + HeaderSize + b.Size())
		b = prev
		if wasTail {
			v.setTail(b)
		}
	}

	if b == v.tail() {
		b.SetSize(0)
		return
	}

	next := b.nextUnsafe()
	switch {
	case next == v.tail() && next.IsFree():
		b.SetSize(0)
		v.setTail(b)
		return
	case next.IsFree():
		v.setFreeRoot(detachByPtr(v.freeRoot(), next))
		b.SetSize(b.Size() + HeaderSize + next.Size())
		b.nextUnsafe().SetPrev(b)
	default:
		next.SetPrev(b)
	}

	v.setFreeRoot(insert(v.freeRoot(), b))
}
