//go:build poison

package arena

import (
	"testing"
	"unsafe"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPoisonOnFree(t *testing.T) {
	Convey("Given a block freed under the poison build tag", t, func() {
		buf := make([]byte, 4096)
		a := NewStatic(buf, len(buf))
		So(a, ShouldNotBeNil)

		p := a.Alloc(64)
		So(p, ShouldNotBeNil)
		s := unsafe.Slice((*byte)(p), 64)
		for i := range s {
			s[i] = byte(i + 1)
		}

		FreeBlock(p)

		Convey("its payload is overwritten with the poison byte", func() {
			for _, b := range s {
				So(b, ShouldEqual, byte(poisonByte))
			}
		})
	})
}
