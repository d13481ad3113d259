// I/O utilities for the NNUE binary format.

package common

import (
	"encoding/binary"
	"io"
)

// MaxSimdWidth is the padding unit for layer inputs in bytes.
// Every kernel's chunk size divides it, except the 512-bit path which
// checks divisibility by 2*MaxSimdWidth itself.
const MaxSimdWidth = 32

// CacheLineSize is the alignment of propagation buffers and the rounding
// unit of every layer's buffer region.
const CacheLineSize = 64

// Integer constrains the element types that appear in parameter streams.
type Integer interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32
}

// CeilToMultiple rounds n up to be a multiple of base.
func CeilToMultiple(n, base int) int {
	return (n + base - 1) / base * base
}

// ReadLittleEndian reads a value from a stream in little-endian order.
func ReadLittleEndian[T Integer](r io.Reader) (T, error) {
	var result T
	err := binary.Read(r, binary.LittleEndian, &result)
	return result, err
}

// ReadLittleEndianSlice fills out with values read in little-endian order.
// A stream that ends part-way through returns io.ErrUnexpectedEOF.
func ReadLittleEndianSlice[T Integer](r io.Reader, out []T) error {
	return binary.Read(r, binary.LittleEndian, out)
}

// WriteLittleEndian writes a value to a stream in little-endian order.
func WriteLittleEndian[T Integer](w io.Writer, value T) error {
	return binary.Write(w, binary.LittleEndian, value)
}

// WriteLittleEndianSlice writes values in little-endian order.
func WriteLittleEndianSlice[T Integer](w io.Writer, values []T) error {
	return binary.Write(w, binary.LittleEndian, values)
}
