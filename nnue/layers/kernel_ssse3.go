package layers

// SSSE3Model is the 128-bit pmaddubsw sequence with four-row output blocking.
var SSSE3Model Kernel = ssse3Kernel{}

type ssse3Kernel struct{}

func (ssse3Kernel) Name() string { return "ssse3-model" }

func (ssse3Kernel) Width() int { return 16 }

func (k ssse3Kernel) Select(s Shape) AffineFunc {
	switch {
	case s.OutputDimensions%4 == 0:
		return blocked128(s, false)
	case s.OutputDimensions == 1:
		return single128(s, false)
	}
	return unreachableShape(k, s)
}

func blocked128(s Shape, vnni bool) AffineFunc {
	padded, out := s.PaddedInputDimensions, s.OutputDimensions
	numChunks := padded / 16
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		for i := 0; i < out; i += 4 {
			row0 := weights[(i+0)*padded : (i+1)*padded]
			row1 := weights[(i+1)*padded : (i+2)*padded]
			row2 := weights[(i+2)*padded : (i+3)*padded]
			row3 := weights[(i+3)*padded : (i+4)*padded]

			var sum0, sum1, sum2, sum3 xmm
			for j := 0; j < numChunks; j++ {
				lo, hi := 16*j, 16*j+16
				in := input[lo:hi]
				sum0 = addDpbusd128(sum0, in, row0[lo:hi], vnni)
				sum1 = addDpbusd128(sum1, in, row1[lo:hi], vnni)
				sum2 = addDpbusd128(sum2, in, row2[lo:hi], vnni)
				sum3 = addDpbusd128(sum3, in, row3[lo:hi], vnni)
			}
			store4(output[i:], haddx4128(sum0, sum1, sum2, sum3, loadBias4(biases[i:])))
		}
	}
}

func single128(s Shape, vnni bool) AffineFunc {
	numChunks := s.PaddedInputDimensions / 16
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		var sum xmm
		for j := 0; j < numChunks; j++ {
			lo, hi := 16*j, 16*j+16
			sum = addDpbusd128(sum, input[lo:hi], weights[lo:hi], vnni)
		}
		output[0] = hadd128(sum, biases[0])
	}
}
