package layers

// Scalar is the portable reference kernel. It reads only the real input
// width, so padding bytes are never touched.
var Scalar Kernel = scalarKernel{}

type scalarKernel struct{}

func (scalarKernel) Name() string { return "scalar" }

func (scalarKernel) Width() int { return 1 }

func (scalarKernel) Select(s Shape) AffineFunc {
	in, padded, out := s.InputDimensions, s.PaddedInputDimensions, s.OutputDimensions
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		for i := 0; i < out; i++ {
			offset := i * padded
			output[i] = biases[i] + dotProductInt8Uint8(weights[offset:offset+in], input[:in])
		}
	}
}

// dotProductInt8Uint8 is sum(weights[i] * inputs[i]) over len(weights).
func dotProductInt8Uint8(weights []int8, inputs []uint8) int32 {
	n := len(weights)
	inputs = inputs[:n]
	var sum int32
	i := 0
	for ; i+4 <= n; i += 4 {
		sum += int32(weights[i]) * int32(inputs[i])
		sum += int32(weights[i+1]) * int32(inputs[i+1])
		sum += int32(weights[i+2]) * int32(inputs[i+2])
		sum += int32(weights[i+3]) * int32(inputs[i+3])
	}
	for ; i < n; i++ {
		sum += int32(weights[i]) * int32(inputs[i])
	}
	return sum
}
