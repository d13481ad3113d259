package layers

import (
	"fmt"
	"io"

	"github.com/hailam/nnueaffine/nnue/common"
)

// InputSliceHashValue returns the hash value for an InputSlice layer.
func InputSliceHashValue(outputDims int) uint32 {
	return 0xEC42E90D ^ uint32(outputDims)
}

// InputSlice exposes a window of the transformed feature vector as the
// first layer of a chain. It owns no parameters. Its buffer region holds a
// zero-padded copy of the window for callers whose feature slice ends before
// the padded width.
type InputSlice struct {
	outputDims     int
	offset         int
	paddedDims     int
	selfBufferSize int
}

// NewInputSlice returns a slice of outputDims features starting at offset.
func NewInputSlice(outputDims, offset int) (*InputSlice, error) {
	if outputDims <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: input slice of %d at offset %d", ErrInvalidDimensions, outputDims, offset)
	}
	return &InputSlice{
		outputDims:     outputDims,
		offset:         offset,
		paddedDims:     common.CeilToMultiple(outputDims, common.MaxSimdWidth),
		selfBufferSize: common.CeilToMultiple(outputDims, common.CacheLineSize),
	}, nil
}

func (s *InputSlice) OutputDimensions() int { return s.outputDims }

func (s *InputSlice) BufferSize() int { return s.selfBufferSize }

func (s *InputSlice) HashValue() uint32 { return InputSliceHashValue(s.outputDims) }

func (s *InputSlice) ReadParameters(io.Reader) error { return nil }

func (s *InputSlice) WriteParameters(io.Writer) error { return nil }

// Propagate returns the window features[offset:offset+OutputDimensions]
// with capacity for the padded width. When features has that capacity the
// window aliases it and the padding bytes are whatever follows; otherwise
// the window is copied into buf and the padding is zeroed.
func (s *InputSlice) Propagate(features []uint8, buf []byte) []uint8 {
	window := features[s.offset : s.offset+s.outputDims]
	if cap(window) >= s.paddedDims {
		return window
	}
	out := buf[:s.paddedDims:s.selfBufferSize]
	n := copy(out, window)
	clear(out[n:])
	return out[:s.outputDims]
}
