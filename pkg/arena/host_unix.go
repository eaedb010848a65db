//go:build unix

package arena

import (
	"golang.org/x/sys/unix"
)

// init switches the dynamic-arena host backend to anonymous mmap on unix
// builds, so memory obtained for a dynamic arena genuinely lives outside the
// Go heap rather than being backed by a make()'d slice.
func init() {
	obtain = mmapObtain
	release = mmapRelease
}

func mmapObtain(n int) ([]byte, bool) {
	if n <= 0 {
		return nil, false
	}
	buf, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false
	}
	return buf, true
}

func mmapRelease(buf []byte) {
	if len(buf) == 0 {
		return
	}
	_ = unix.Munmap(buf)
}
