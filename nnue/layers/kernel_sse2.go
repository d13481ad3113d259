package layers

// SSE2Model widens bytes to 16 bits and uses pmaddwd. It has no unsigned-by-signed
// byte multiply, so it handles every output row on its own with the bias
// preloaded into lane 0 of the low accumulator.
var SSE2Model Kernel = sse2Kernel{}

type sse2Kernel struct{}

func (sse2Kernel) Name() string { return "sse2-model" }

func (sse2Kernel) Width() int { return 16 }

func (k sse2Kernel) Select(s Shape) AffineFunc {
	padded, out := s.PaddedInputDimensions, s.OutputDimensions
	numChunks := padded / k.Width()
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		for i := 0; i < out; i++ {
			row := weights[i*padded : (i+1)*padded]
			sumLo := xmm{biases[i]}
			var sumHi xmm
			for j := 0; j < numChunks; j++ {
				r := row[16*j : 16*j+16]
				in := input[16*j : 16*j+16]
				rowLo, rowHi := signExtend(r)
				inLo, inHi := zeroExtend(in)
				sumLo = sumLo.add(maddwd(rowLo, inLo))
				sumHi = sumHi.add(maddwd(rowHi, inHi))
			}
			sum := sumLo.add(sumHi)
			sum = sum.add(shuffle32(sum, 0x4E))
			// pshuflw with 1,0,3,2 swaps the two low int32 lanes.
			sum = sum.add(xmm{sum[1], sum[0], sum[2], sum[3]})
			output[i] = sum[0]
		}
	}
}

// signExtend is the punpck{l,h}bw of a row against its pcmpgtb sign mask.
func signExtend(b []int8) (lo, hi i16x8) {
	for k := 0; k < 8; k++ {
		lo[k] = int16(b[k])
		hi[k] = int16(b[8+k])
	}
	return lo, hi
}

// zeroExtend is the punpck{l,h}bw of input bytes against zero.
func zeroExtend(b []uint8) (lo, hi i16x8) {
	for k := 0; k < 8; k++ {
		lo[k] = int16(b[k])
		hi[k] = int16(b[8+k])
	}
	return lo, hi
}
