//go:build arm64 && !purego

package layers

import "fmt"

// NEON is the native Advanced SIMD kernel. Per 16-byte chunk it multiplies
// the low halves with smull, accumulates the high halves with smlal2 and
// folds the 16-bit products into four int32 lanes with sadalp. Inputs are
// read as signed bytes, which is exact for activations in [0, 127].
var NEON Kernel = neonAsm{}

type neonAsm struct{}

func (neonAsm) Name() string { return "neon" }

func (neonAsm) Width() int { return 16 }

func (k neonAsm) Select(s Shape) AffineFunc {
	padded, out := s.PaddedInputDimensions, s.OutputDimensions
	if padded%k.Width() != 0 {
		panic(fmt.Sprintf("layers: neon needs a padded width that is a multiple of 16, got %d", padded))
	}
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		_ = output[out-1]
		_ = biases[out-1]
		_ = input[padded-1]
		_ = weights[out*padded-1]
		affineNEON(&output[0], &input[0], &weights[0], &biases[0], padded, out)
	}
}

// affineNEON computes out rows of the affine transform. padded must be a
// positive multiple of 16.
//
//go:noescape
func affineNEON(output *int32, input *uint8, weights *int8, biases *int32, padded, out int)
