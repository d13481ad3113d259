package common

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestCeilToMultiple(t *testing.T) {
	tests := []struct{ n, base, want int }{
		{0, 32, 0},
		{1, 32, 32},
		{8, 32, 32},
		{32, 32, 32},
		{33, 32, 64},
		{512, 32, 512},
		{4, 64, 64},
		{128, 64, 128},
	}
	for _, tt := range tests {
		if got := CeilToMultiple(tt.n, tt.base); got != tt.want {
			t.Errorf("CeilToMultiple(%d, %d) = %d, want %d", tt.n, tt.base, got, tt.want)
		}
	}
}

func TestArenaAlignment(t *testing.T) {
	for _, size := range []int{0, 1, 63, 64, 65, 1000, 4096} {
		a := NewArena(size)
		if a.Len() != size || len(a.Bytes()) != size {
			t.Errorf("size %d: Len = %d", size, a.Len())
		}
		if cap(a.Bytes()) != size {
			t.Errorf("size %d: cap = %d", size, cap(a.Bytes()))
		}
		if !Aligned(a.Bytes()) {
			t.Errorf("size %d: not aligned", size)
		}
	}
}

func TestInt32View(t *testing.T) {
	a := NewArena(64)
	v := Int32View(a.Bytes(), 4)
	v[0] = 1
	v[3] = -1
	b := a.Bytes()
	if b[0] != 1 || b[12] != 0xFF || b[15] != 0xFF {
		t.Errorf("view does not alias the buffer: % x", b[:16])
	}

	if Int32View(b, 0) != nil {
		t.Error("empty view is not nil")
	}

	defer func() {
		if recover() == nil {
			t.Error("short buffer did not panic")
		}
	}()
	Int32View(b[:15], 4)
}

func TestInt32ViewMisaligned(t *testing.T) {
	a := NewArena(64)
	defer func() {
		if recover() == nil {
			t.Error("misaligned buffer did not panic")
		}
	}()
	Int32View(a.Bytes()[1:], 4)
}

func TestLittleEndianRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLittleEndian(&buf, uint32(0x7AF32F16)); err != nil {
		t.Fatal(err)
	}
	if err := WriteLittleEndianSlice(&buf, []int32{-1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := WriteLittleEndianSlice(&buf, []int8{-128, 127}); err != nil {
		t.Fatal(err)
	}

	want := []byte{0x16, 0x2F, 0xF3, 0x7A, 0xFF, 0xFF, 0xFF, 0xFF, 0x02, 0x00, 0x00, 0x00, 0x80, 0x7F}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("encoded % x, want % x", buf.Bytes(), want)
	}

	v, err := ReadLittleEndian[uint32](&buf)
	if err != nil || v != 0x7AF32F16 {
		t.Errorf("ReadLittleEndian = %08x, %v", v, err)
	}
	i32 := make([]int32, 2)
	if err := ReadLittleEndianSlice(&buf, i32); err != nil || i32[0] != -1 || i32[1] != 2 {
		t.Errorf("ReadLittleEndianSlice = %v, %v", i32, err)
	}

	// One byte left for a two-byte slice.
	buf.Truncate(1)
	i8 := make([]int8, 2)
	if err := ReadLittleEndianSlice(&buf, i8); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("short read: err = %v, want io.ErrUnexpectedEOF", err)
	}
}
