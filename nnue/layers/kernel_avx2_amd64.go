//go:build amd64 && !purego

package layers

import "fmt"

// AVX2 is the native 256-bit kernel. Each output row is one accumulator fed
// by vpmaddubsw against the unsigned activations and vpmaddwd with ones, then
// reduced horizontally and added to the bias.
var AVX2 Kernel = avx2Asm{}

type avx2Asm struct{}

func (avx2Asm) Name() string { return "avx2" }

func (avx2Asm) Width() int { return 32 }

func (k avx2Asm) Select(s Shape) AffineFunc {
	padded, out := s.PaddedInputDimensions, s.OutputDimensions
	if padded%k.Width() != 0 {
		panic(fmt.Sprintf("layers: avx2 needs a padded width that is a multiple of 32, got %d", padded))
	}
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		_ = output[out-1]
		_ = biases[out-1]
		_ = input[padded-1]
		_ = weights[out*padded-1]
		affineAVX2(&output[0], &input[0], &weights[0], &biases[0], padded, out)
	}
}

// affineAVX2 computes out rows of the affine transform. padded must be a
// positive multiple of 32.
//
//go:noescape
func affineAVX2(output *int32, input *uint8, weights *int8, biases *int32, padded, out int)
