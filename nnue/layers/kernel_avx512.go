package layers

var (
	// AVX512Model is the 512-bit sequence. A zmm register takes 64 input bytes, so
	// shapes whose padded width is not a multiple of 64 run the 256-bit path.
	AVX512Model Kernel = avx512Kernel{}

	// AVX512VNNIModel is AVX512Model with vpdpbusd.
	AVX512VNNIModel Kernel = avx512Kernel{vnni: true}
)

type avx512Kernel struct {
	vnni bool
}

func (k avx512Kernel) Name() string {
	if k.vnni {
		return "avx512-vnni-model"
	}
	return "avx512-model"
}

func (avx512Kernel) Width() int { return 64 }

func (k avx512Kernel) Select(s Shape) AffineFunc {
	wide := s.PaddedInputDimensions%k.Width() == 0
	switch {
	case s.OutputDimensions%4 == 0 && wide:
		return blocked512(s, k.vnni)
	case s.OutputDimensions%4 == 0:
		return blocked256(s, k.vnni)
	case s.OutputDimensions == 1 && wide:
		return single512(s, k.vnni)
	case s.OutputDimensions == 1:
		return single256(s, k.vnni)
	}
	return unreachableShape(k, s)
}

func blocked512(s Shape, vnni bool) AffineFunc {
	padded, out := s.PaddedInputDimensions, s.OutputDimensions
	numChunks := padded / 64
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		for i := 0; i < out; i += 4 {
			row0 := weights[(i+0)*padded : (i+1)*padded]
			row1 := weights[(i+1)*padded : (i+2)*padded]
			row2 := weights[(i+2)*padded : (i+3)*padded]
			row3 := weights[(i+3)*padded : (i+4)*padded]

			var sum0, sum1, sum2, sum3 zmm
			for j := 0; j < numChunks; j++ {
				lo, hi := 64*j, 64*j+64
				in := input[lo:hi]
				addDpbusd512(&sum0, in, row0[lo:hi], vnni)
				addDpbusd512(&sum1, in, row1[lo:hi], vnni)
				addDpbusd512(&sum2, in, row2[lo:hi], vnni)
				addDpbusd512(&sum3, in, row3[lo:hi], vnni)
			}
			store4(output[i:], haddx4512(sum0, sum1, sum2, sum3, loadBias4(biases[i:])))
		}
	}
}

func single512(s Shape, vnni bool) AffineFunc {
	numChunks := s.PaddedInputDimensions / 64
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		var sum zmm
		for j := 0; j < numChunks; j++ {
			lo, hi := 64*j, 64*j+64
			addDpbusd512(&sum, input[lo:hi], weights[lo:hi], vnni)
		}
		output[0] = hadd512(sum, biases[0])
	}
}
