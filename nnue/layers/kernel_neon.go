package layers

// NEONModel multiplies 8-byte halves with vmull_s8/vmlal_s8 into 16-bit lanes and
// pairwise-accumulates them into 32 bits with vpadalq_s16. Inputs are read as
// signed bytes, which is exact for activations in [0, 127].
var NEONModel Kernel = neonKernel{}

type neonKernel struct{}

func (neonKernel) Name() string { return "neon-model" }

func (neonKernel) Width() int { return 16 }

func (k neonKernel) Select(s Shape) AffineFunc {
	padded, out := s.PaddedInputDimensions, s.OutputDimensions
	numChunks := padded / k.Width()
	return func(output []int32, input []uint8, weights []int8, biases []int32) {
		for i := 0; i < out; i++ {
			row := weights[i*padded : (i+1)*padded]
			sum := xmm{biases[i]}
			for j := 0; j < numChunks; j++ {
				a, b := 16*j, 16*j+8
				product := vmullS8(input[a:a+8], row[a:a+8])
				product = vmlalS8(product, input[b:b+8], row[b:b+8])
				sum = vpadalqS16(sum, product)
			}
			output[i] = sum[0] + sum[1] + sum[2] + sum[3]
		}
	}
}

func vmullS8(a []uint8, b []int8) i16x8 {
	var p i16x8
	for k := 0; k < 8; k++ {
		p[k] = int16(int8(a[k])) * int16(b[k])
	}
	return p
}

// vmlalS8 accumulates with 16-bit wraparound.
func vmlalS8(acc i16x8, a []uint8, b []int8) i16x8 {
	for k := 0; k < 8; k++ {
		acc[k] += int16(int8(a[k])) * int16(b[k])
	}
	return acc
}

func vpadalqS16(acc xmm, p i16x8) xmm {
	for k := 0; k < 4; k++ {
		acc[k] += int32(p[2*k]) + int32(p[2*k+1])
	}
	return acc
}
