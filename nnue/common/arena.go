package common

import (
	"fmt"
	"unsafe"
)

// Arena is a cache-line aligned scratch buffer for one propagation call.
// Each layer of a chain takes a fixed, non-overlapping region of it.
type Arena struct {
	raw []byte
	buf []byte
}

// NewArena returns an arena whose Bytes are size bytes long and start on a
// CacheLineSize boundary.
func NewArena(size int) *Arena {
	raw := make([]byte, size+CacheLineSize)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(unsafe.SliceData(raw))) % CacheLineSize); rem != 0 {
		off = CacheLineSize - rem
	}
	return &Arena{raw: raw, buf: raw[off : off+size : off+size]}
}

// Bytes returns the aligned region.
func (a *Arena) Bytes() []byte {
	return a.buf
}

// Len returns the usable size in bytes.
func (a *Arena) Len() int {
	return len(a.buf)
}

// Aligned reports whether b starts on a cache line.
func Aligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%CacheLineSize == 0
}

// Int32View reinterprets the first 4*n bytes of b as n int32 values.
// b must be at least 4-byte aligned, which every region handed out from an
// Arena is.
func Int32View(b []byte, n int) []int32 {
	if n == 0 {
		return nil
	}
	if len(b) < 4*n {
		panic(fmt.Sprintf("common: int32 view of %d values needs %d bytes, have %d", n, 4*n, len(b)))
	}
	p := unsafe.Pointer(&b[0])
	if uintptr(p)%4 != 0 {
		panic("common: int32 view over misaligned buffer")
	}
	return unsafe.Slice((*int32)(p), n)
}
