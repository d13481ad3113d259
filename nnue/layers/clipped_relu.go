// ClippedReLU activation layer.

package layers

import (
	"io"

	"github.com/hailam/nnueaffine/nnue/common"
)

// WeightScaleBits is the fixed-point shift applied before clamping.
const WeightScaleBits = 6

// ClippedReLUHashValue returns the hash value for a ClippedReLU layer.
func ClippedReLUHashValue(prevHash uint32) uint32 {
	return 0x538D24C7 + prevHash
}

// ClippedReLU maps int32 accumulators to clamp(x >> WeightScaleBits, 0, 127).
// Its output range is what lets the affine kernels use saturating 16-bit
// pair sums without ever saturating.
type ClippedReLU struct {
	prev           Int32Layer
	dims           int
	selfBufferSize int
}

// NewClippedReLU wraps prev.
func NewClippedReLU(prev Int32Layer) *ClippedReLU {
	dims := prev.OutputDimensions()
	return &ClippedReLU{
		prev:           prev,
		dims:           dims,
		selfBufferSize: common.CeilToMultiple(dims, common.CacheLineSize),
	}
}

// Previous returns the wrapped layer.
func (c *ClippedReLU) Previous() Int32Layer { return c.prev }

func (c *ClippedReLU) OutputDimensions() int { return c.dims }

func (c *ClippedReLU) BufferSize() int { return c.prev.BufferSize() + c.selfBufferSize }

func (c *ClippedReLU) HashValue() uint32 { return ClippedReLUHashValue(c.prev.HashValue()) }

// ReadParameters reads the predecessor's parameters; this layer has none.
func (c *ClippedReLU) ReadParameters(r io.Reader) error { return c.prev.ReadParameters(r) }

func (c *ClippedReLU) WriteParameters(w io.Writer) error { return c.prev.WriteParameters(w) }

// Propagate applies the activation into the head of buf.
func (c *ClippedReLU) Propagate(features []uint8, buf []byte) []uint8 {
	input := c.prev.Propagate(features, buf[c.selfBufferSize:])
	output := buf[:c.dims:c.selfBufferSize]

	n := c.dims
	i := 0
	for ; i+4 <= n; i += 4 {
		output[i] = clip(input[i])
		output[i+1] = clip(input[i+1])
		output[i+2] = clip(input[i+2])
		output[i+3] = clip(input[i+3])
	}
	for ; i < n; i++ {
		output[i] = clip(input[i])
	}
	return output
}

func clip(v int32) uint8 {
	v >>= WeightScaleBits
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
