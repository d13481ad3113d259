package layers

var (
	// AVX2Model is the 256-bit vpmaddubsw/vpmaddwd sequence.
	AVX2Model Kernel = avx2Kernel{}

	// AVX2VNNIModel replaces the multiply pair with a fused vpdpbusd.
	AVX2VNNIModel Kernel = avx2Kernel{vnni: true}
)

type avx2Kernel struct {
	vnni bool
}

func (k avx2Kernel) Name() string {
	if k.vnni {
		return "avx2-vnni-model"
	}
	return "avx2-model"
}

func (avx2Kernel) Width() int { return 32 }

func (k avx2Kernel) Select(s Shape) AffineFunc {
	switch {
	case s.OutputDimensions%4 == 0:
		return blocked256(s, k.vnni)
	case s.OutputDimensions == 1:
		return single256(s, k.vnni)
	}
	return unreachableShape(k, s)
}

func blocked256(s Shape, vnni bool) AffineFunc {
	padded, out := s.PaddedInputDimensions, s.OutputDimensions
	numChunks := padded / 32
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		for i := 0; i < out; i += 4 {
			row0 := weights[(i+0)*padded : (i+1)*padded]
			row1 := weights[(i+1)*padded : (i+2)*padded]
			row2 := weights[(i+2)*padded : (i+3)*padded]
			row3 := weights[(i+3)*padded : (i+4)*padded]

			var sum0, sum1, sum2, sum3 ymm
			for j := 0; j < numChunks; j++ {
				lo, hi := 32*j, 32*j+32
				in := input[lo:hi]
				addDpbusd256(&sum0, in, row0[lo:hi], vnni)
				addDpbusd256(&sum1, in, row1[lo:hi], vnni)
				addDpbusd256(&sum2, in, row2[lo:hi], vnni)
				addDpbusd256(&sum3, in, row3[lo:hi], vnni)
			}
			store4(output[i:], haddx4256(sum0, sum1, sum2, sum3, loadBias4(biases[i:])))
		}
	}
}

func single256(s Shape, vnni bool) AffineFunc {
	numChunks := s.PaddedInputDimensions / 32
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		var sum ymm
		for j := 0; j < numChunks; j++ {
			lo, hi := 32*j, 32*j+32
			addDpbusd256(&sum, input[lo:hi], weights[lo:hi], vnni)
		}
		output[0] = hadd256(sum, biases[0])
	}
}
