// Network architecture definition.

package nnue

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hailam/nnueaffine/nnue/common"
	"github.com/hailam/nnueaffine/nnue/layers"
)

// Default layer sizes: 512 transformed features, two hidden layers of 32.
const (
	DefaultInputDimensions = 512
	DefaultHidden1         = 32
	DefaultHidden2         = 32
)

// DefaultHidden returns the default hidden layer sizes.
func DefaultHidden() []int {
	return []int{DefaultHidden1, DefaultHidden2}
}

// Architecture is a layer chain
//
//	InputSlice(input) -> Affine(h0) -> ClippedReLU -> ... -> Affine(hN) -> ClippedReLU -> Affine(1)
//
// whose outermost layer yields the raw network output.
type Architecture struct {
	InputDimensions int
	Hidden          []int

	Input *layers.InputSlice

	// Affines are the affine layers from input to output; the last one has
	// a single output.
	Affines []*layers.AffineTransform

	output *layers.AffineTransform
	opts   []layers.Option
}

// NewArchitecture builds the chain. Every hidden size must be a multiple of 4.
func NewArchitecture(inputDims int, hidden []int, opts ...layers.Option) (*Architecture, error) {
	input, err := layers.NewInputSlice(inputDims, 0)
	if err != nil {
		return nil, err
	}

	arch := &Architecture{
		InputDimensions: inputDims,
		Hidden:          append([]int(nil), hidden...),
		Input:           input,
		opts:            opts,
	}

	var prev layers.ByteLayer = input
	for i, h := range hidden {
		fc, err := layers.NewAffineTransform(prev, h, opts...)
		if err != nil {
			return nil, fmt.Errorf("hidden layer %d: %w", i, err)
		}
		arch.Affines = append(arch.Affines, fc)
		prev = layers.NewClippedReLU(fc)
	}

	out, err := layers.NewAffineTransform(prev, 1, opts...)
	if err != nil {
		return nil, fmt.Errorf("output layer: %w", err)
	}
	arch.Affines = append(arch.Affines, out)
	arch.output = out

	return arch, nil
}

// NewDefaultArchitecture builds the 512-32-32-1 chain.
func NewDefaultArchitecture(opts ...layers.Option) (*Architecture, error) {
	return NewArchitecture(DefaultInputDimensions, DefaultHidden(), opts...)
}

// ParseDimensions parses "512,32,32" into an input size and hidden sizes.
func ParseDimensions(s string) (int, []int, error) {
	parts := strings.Split(s, ",")
	dims := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, nil, fmt.Errorf("invalid dimension %q: %w", p, err)
		}
		dims = append(dims, v)
	}
	if len(dims) == 0 {
		return 0, nil, fmt.Errorf("empty dimensions")
	}
	return dims[0], dims[1:], nil
}

// String formats the dimensions the way ParseDimensions reads them, with
// the final single output appended.
func (n *Architecture) String() string {
	parts := []string{strconv.Itoa(n.InputDimensions)}
	for _, h := range n.Hidden {
		parts = append(parts, strconv.Itoa(h))
	}
	parts = append(parts, "1")
	return strings.Join(parts, "-")
}

// Output returns the outermost layer.
func (n *Architecture) Output() *layers.AffineTransform { return n.output }

// HashValue returns the structural hash of the whole chain.
func (n *Architecture) HashValue() uint32 { return n.output.HashValue() }

// BufferSize is the arena size one propagation needs.
func (n *Architecture) BufferSize() int { return n.output.BufferSize() }

// FeatureSize is the padded input width. Feature vectors with this much
// capacity are read in place; shorter ones are copied into the arena.
func (n *Architecture) FeatureSize() int {
	return common.CeilToMultiple(n.InputDimensions, common.MaxSimdWidth)
}

// ReadParameters reads all layer parameters from a stream.
func (n *Architecture) ReadParameters(r io.Reader) error {
	return n.output.ReadParameters(r)
}

// WriteParameters writes all layer parameters to a stream.
func (n *Architecture) WriteParameters(w io.Writer) error {
	return n.output.WriteParameters(w)
}

// ParameterSize is the number of bytes ReadParameters consumes.
func (n *Architecture) ParameterSize() int {
	size := 0
	for _, fc := range n.Affines {
		size += 4*fc.OutputDimensions() + fc.OutputDimensions()*fc.PaddedInputDimensions()
	}
	return size
}

// Propagate runs the chain and returns the raw output value.
// buf must be at least BufferSize bytes and cache-line aligned.
func (n *Architecture) Propagate(features []uint8, buf []byte) int32 {
	return n.output.Propagate(features, buf)[0]
}

// Clone returns an architecture with the same shape and parameters. opts
// replace the options the original was built with.
func (n *Architecture) Clone(opts ...layers.Option) (*Architecture, error) {
	if len(opts) == 0 {
		opts = n.opts
	}
	c, err := NewArchitecture(n.InputDimensions, n.Hidden, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(n.ParameterSize())
	if err := n.WriteParameters(&buf); err != nil {
		return nil, err
	}
	if err := c.ReadParameters(&buf); err != nil {
		return nil, err
	}
	return c, nil
}
