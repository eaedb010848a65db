//go:build go1.20

package xunsafe

import (
	"fmt"
	"unsafe"

	"github.com/gofreelist/blockarena/pkg/xunsafe/layout"
)

// Addr is an untyped machine address that remembers the pointee type T for
// the purposes of scaling arithmetic and casting back to a real pointer.
//
// Addr is a plain integer, not a pointer: the garbage collector does not
// trace it and holding one does not keep the pointee alive. Callers are
// responsible for keeping the underlying allocation reachable for as long
// as an Addr into it is used, e.g. via [KeepAlive] or by storing the Addr
// alongside an owning pointer.
type Addr[T any] uintptr

// AddrOf returns the address of p.
func AddrOf[T any](p *T) Addr[T] {
	return Addr[T](unsafe.Pointer(p))
}

// EndOf returns the address immediately past the last element of s.
func EndOf[S ~[]E, E any](s S) Addr[E] {
	return AddrOf(unsafe.SliceData(s)).Add(len(s))
}

// AssertValid converts this address back into a pointer.
//
// It is named AssertValid to call out that the caller is asserting that the
// address is either nil or currently points at a live, correctly-typed T.
func (a Addr[T]) AssertValid() *T {
	return (*T)(unsafe.Pointer(uintptr(a)))
}

// IsNil returns whether this address is zero.
func (a Addr[T]) IsNil() bool { return a == 0 }

// Add adds n, scaled by the size of T, to this address.
func (a Addr[T]) Add(n int) Addr[T] {
	return a.ByteAdd(n * layout.Size[T]())
}

// ByteAdd adds n raw bytes to this address, without scaling by sizeof(T).
func (a Addr[T]) ByteAdd(n int) Addr[T] {
	return Addr[T](uintptr(int(a) + n))
}

// Sub returns (a - b), scaled by the size of T.
func (a Addr[T]) Sub(b Addr[T]) int {
	return int(a-b) / layout.Size[T]()
}

// ByteSub returns the raw, unscaled byte difference (a - b).
func (a Addr[T]) ByteSub(b Addr[T]) int {
	return int(a - b)
}

// Padding returns the number of bytes that must be added to this address to
// reach the next multiple of align, which must be a power of two.
func (a Addr[T]) Padding(align int) int {
	return layout.Padding(int(a), align)
}

// RoundUpTo rounds this address up to the next multiple of align, which must
// be a power of two.
func (a Addr[T]) RoundUpTo(align int) Addr[T] {
	return Addr[T](layout.RoundUp(int(a), align))
}

// RoundDownTo rounds this address down to the previous multiple of align,
// which must be a power of two.
func (a Addr[T]) RoundDownTo(align int) Addr[T] {
	return Addr[T](layout.RoundDown(int(a), align))
}

// SignBit returns the high bit of the machine word backing this address.
func (a Addr[T]) SignBit() bool {
	return a.SignBitMask() != 0
}

// SignBitMask returns 0 if SignBit is unset, or all-ones otherwise.
func (a Addr[T]) SignBitMask() Addr[T] {
	return Addr[T](int(a) >> (unsafe.Sizeof(uintptr(0))*8 - 1))
}

// ClearSignBit returns this address with its high bit forced to zero.
func (a Addr[T]) ClearSignBit() Addr[T] {
	return a &^ (1 << (unsafe.Sizeof(uintptr(0))*8 - 1))
}

func (a Addr[T]) String() string { return fmt.Sprintf("%#x", uintptr(a)) }

func (a Addr[T]) Format(s fmt.State, verb rune) {
	switch verb {
	case 'x':
		_, _ = fmt.Fprintf(s, "%x", uintptr(a))
	default:
		_, _ = fmt.Fprintf(s, "%#x", uintptr(a))
	}
}
