// Layer interfaces shared by every link of a propagation chain.

package layers

import (
	"errors"
	"io"
)

var (
	// ErrInvalidDimensions is returned when a layer would have no outputs
	// or a negative offset.
	ErrInvalidDimensions = errors.New("layers: invalid dimensions")

	// ErrInvalidOutputDimensions is returned when an affine layer's output
	// dimension is neither 1 nor a multiple of the output block size.
	ErrInvalidOutputDimensions = errors.New("layers: output dimensions must be 1 or a multiple of 4")

	// ErrParameterShape is returned when parameters handed to SetParameters
	// do not match the layer shape.
	ErrParameterShape = errors.New("layers: parameter shape mismatch")
)

// Layer is one link of a chain. Every layer exclusively owns its
// predecessor, down to the input slice.
type Layer interface {
	// OutputDimensions is the number of values this layer produces.
	OutputDimensions() int

	// BufferSize is the scratch size in bytes needed by this layer and all
	// of its predecessors.
	BufferSize() int

	// HashValue is the structural fingerprint of the chain ending here.
	HashValue() uint32

	// ReadParameters loads the chain's parameters, innermost layer first.
	ReadParameters(r io.Reader) error

	// WriteParameters is the inverse of ReadParameters.
	WriteParameters(w io.Writer) error
}

// ByteLayer produces quantized uint8 activations.
//
// The returned slice has length OutputDimensions and capacity of at least
// CeilToMultiple(OutputDimensions, MaxSimdWidth), so a consumer can read the
// padded width.
type ByteLayer interface {
	Layer
	Propagate(features []uint8, buf []byte) []uint8
}

// Int32Layer produces int32 accumulators.
type Int32Layer interface {
	Layer
	Propagate(features []uint8, buf []byte) []int32
}
