// AffineTransform (fully connected) layer.

package layers

import (
	"fmt"
	"io"

	"github.com/hailam/nnueaffine/nnue/common"
)

// AffineTransformHashValue returns the hash value for an AffineTransform layer.
func AffineTransformHashValue(prevHash uint32, outputDims int) uint32 {
	hashValue := uint32(0xCC03DAE4)
	hashValue += uint32(outputDims)
	hashValue ^= prevHash >> 1
	hashValue ^= prevHash << 31
	return hashValue
}

// Option configures an AffineTransform at construction.
type Option func(*AffineTransform)

// WithKernel makes the layer use k instead of DefaultKernel.
func WithKernel(k Kernel) Option {
	return func(a *AffineTransform) {
		a.kernel = k
	}
}

// AffineTransform represents a fully connected layer:
// output = weights * input + biases, with int8 weights, uint8 inputs and
// int32 biases and outputs.
//
// Weights are stored output-major; each row is PaddedInputDimensions long and
// its tail past InputDimensions is zero.
type AffineTransform struct {
	prev ByteLayer

	inputDims       int
	paddedInputDims int
	outputDims      int
	selfBufferSize  int

	biases  []int32
	weights []int8

	kernel Kernel
	affine AffineFunc
}

// NewAffineTransform creates an affine layer on top of prev. outputDims must
// be 1 or a multiple of 4.
func NewAffineTransform(prev ByteLayer, outputDims int, opts ...Option) (*AffineTransform, error) {
	if outputDims <= 0 {
		return nil, fmt.Errorf("%w: affine layer with %d outputs", ErrInvalidDimensions, outputDims)
	}
	if outputDims != 1 && outputDims%4 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOutputDimensions, outputDims)
	}

	inputDims := prev.OutputDimensions()
	paddedInput := common.CeilToMultiple(inputDims, common.MaxSimdWidth)

	a := &AffineTransform{
		prev:            prev,
		inputDims:       inputDims,
		paddedInputDims: paddedInput,
		outputDims:      outputDims,
		selfBufferSize:  common.CeilToMultiple(outputDims*4, common.CacheLineSize),
		biases:          make([]int32, outputDims),
		weights:         make([]int8, outputDims*paddedInput),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.kernel == nil {
		a.kernel = DefaultKernel()
	}
	a.affine = a.kernel.Select(a.Shape())
	return a, nil
}

// MustAffineTransform is like NewAffineTransform but panics on an invalid shape.
// It is meant for fixed network definitions.
func MustAffineTransform(prev ByteLayer, outputDims int, opts ...Option) *AffineTransform {
	a, err := NewAffineTransform(prev, outputDims, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Previous returns the predecessor layer.
func (a *AffineTransform) Previous() ByteLayer { return a.prev }

func (a *AffineTransform) InputDimensions() int { return a.inputDims }

func (a *AffineTransform) PaddedInputDimensions() int { return a.paddedInputDims }

func (a *AffineTransform) OutputDimensions() int { return a.outputDims }

// SelfBufferSize is the size of this layer's own output region.
func (a *AffineTransform) SelfBufferSize() int { return a.selfBufferSize }

func (a *AffineTransform) BufferSize() int { return a.prev.BufferSize() + a.selfBufferSize }

// Shape returns the layer geometry handed to its kernel.
func (a *AffineTransform) Shape() Shape {
	return Shape{
		InputDimensions:       a.inputDims,
		PaddedInputDimensions: a.paddedInputDims,
		OutputDimensions:      a.outputDims,
	}
}

// Kernel returns the kernel this layer propagates with.
func (a *AffineTransform) Kernel() Kernel { return a.kernel }

// HashValue chains this layer's output dimension onto the predecessor's hash.
func (a *AffineTransform) HashValue() uint32 {
	return AffineTransformHashValue(a.prev.HashValue(), a.outputDims)
}

// Biases returns the bias vector. Callers must not modify it.
func (a *AffineTransform) Biases() []int32 { return a.biases }

// Weights returns the padded, output-major weight matrix. Callers must not
// modify it.
func (a *AffineTransform) Weights() []int8 { return a.weights }

// SetParameters copies biases and weights into the layer. weights must be
// OutputDimensions*PaddedInputDimensions long; padding columns are zeroed.
func (a *AffineTransform) SetParameters(biases []int32, weights []int8) error {
	if len(biases) != a.outputDims || len(weights) != a.outputDims*a.paddedInputDims {
		return fmt.Errorf("%w: want %d biases and %d weights, got %d and %d",
			ErrParameterShape, a.outputDims, a.outputDims*a.paddedInputDims, len(biases), len(weights))
	}
	copy(a.biases, biases)
	copy(a.weights, weights)
	a.maskPadding(a.weights)
	return nil
}

// ReadParameters reads the predecessor's parameters, then this layer's
// biases (int32) and weights (int8), all little-endian. Nothing is read and
// nothing changes if the predecessor fails; this layer's arrays are only
// replaced once its whole block has been read.
func (a *AffineTransform) ReadParameters(r io.Reader) error {
	if err := a.prev.ReadParameters(r); err != nil {
		return err
	}

	biases := make([]int32, a.outputDims)
	if err := common.ReadLittleEndianSlice(r, biases); err != nil {
		return fmt.Errorf("affine %dx%d: failed to read biases: %w", a.outputDims, a.inputDims, err)
	}

	weights := make([]int8, a.outputDims*a.paddedInputDims)
	if err := common.ReadLittleEndianSlice(r, weights); err != nil {
		return fmt.Errorf("affine %dx%d: failed to read weights: %w", a.outputDims, a.inputDims, err)
	}

	a.maskPadding(weights)
	copy(a.biases, biases)
	copy(a.weights, weights)
	return nil
}

// WriteParameters writes the predecessor's parameters followed by this
// layer's block, in the layout ReadParameters expects.
func (a *AffineTransform) WriteParameters(w io.Writer) error {
	if err := a.prev.WriteParameters(w); err != nil {
		return err
	}
	if err := common.WriteLittleEndianSlice(w, a.biases); err != nil {
		return fmt.Errorf("affine %dx%d: failed to write biases: %w", a.outputDims, a.inputDims, err)
	}
	if err := common.WriteLittleEndianSlice(w, a.weights); err != nil {
		return fmt.Errorf("affine %dx%d: failed to write weights: %w", a.outputDims, a.inputDims, err)
	}
	return nil
}

// maskPadding zeroes the columns past InputDimensions so that whatever the
// predecessor leaves in its padding bytes has no effect on any kernel.
func (a *AffineTransform) maskPadding(weights []int8) {
	if a.paddedInputDims == a.inputDims {
		return
	}
	for i := 0; i < a.outputDims; i++ {
		row := weights[i*a.paddedInputDims : (i+1)*a.paddedInputDims]
		clear(row[a.inputDims:])
	}
}

// Propagate runs the predecessor into the tail of buf, then writes
// OutputDimensions int32 values at the head of buf and returns them.
// buf must be at least BufferSize bytes and 4-byte aligned.
func (a *AffineTransform) Propagate(features []uint8, buf []byte) []int32 {
	input := a.prev.Propagate(features, buf[a.selfBufferSize:])
	output := common.Int32View(buf, a.outputDims)
	a.affine(output, input[:a.paddedInputDims], a.weights, a.biases)
	return output
}
