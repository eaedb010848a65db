//go:build poison

package arena

import "unsafe"

const poisonByte = 0xCD

// poisonPayload overwrites a freed block's payload so a read through a
// stale pointer observes garbage instead of a plausible leftover value.
func poisonPayload(b Block) {
	n := b.Size()
	if n <= 0 {
		return
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(b.Payload())), n)
	for i := range buf {
		buf[i] = poisonByte
	}
}
