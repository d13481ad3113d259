// Register models for the -model kernels.
//
// Each model works on the same lane shapes the hardware instructions do, so
// the accumulation order, the 16-bit intermediate sums and the horizontal
// reductions match the instruction sequences they stand for. Models run in
// portable Go on any host and are never selected automatically.

package layers

import "math"

// xmm is a 128-bit register viewed as four int32 lanes.
type xmm [4]int32

// ymm is a 256-bit register: two independent 128-bit lanes.
type ymm [2]xmm

// zmm is a 512-bit register: four independent 128-bit lanes.
type zmm [4]xmm

// i16x8 is a 128-bit register viewed as eight int16 lanes.
type i16x8 [8]int16

func (a xmm) add(b xmm) xmm {
	return xmm{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// shuffle32 is pshufd: lane i takes source lane (imm >> 2i) & 3.
func shuffle32(a xmm, imm uint8) xmm {
	return xmm{a[imm&3], a[(imm>>2)&3], a[(imm>>4)&3], a[(imm>>6)&3]}
}

// hadd32 is phaddd: adjacent pairs of a, then adjacent pairs of b.
func hadd32(a, b xmm) xmm {
	return xmm{a[0] + a[1], a[2] + a[3], b[0] + b[1], b[2] + b[3]}
}

func unpacklo32(a, b xmm) xmm { return xmm{a[0], b[0], a[1], b[1]} }

func unpackhi32(a, b xmm) xmm { return xmm{a[2], b[2], a[3], b[3]} }

func unpacklo64(a, b xmm) xmm { return xmm{a[0], a[1], b[0], b[1]} }

func unpackhi64(a, b xmm) xmm { return xmm{a[2], a[3], b[2], b[3]} }

func sat16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// maddubs is pmaddubsw over 16 bytes: unsigned a times signed b, adjacent
// products summed with signed saturation.
func maddubs(a []uint8, b []int8) i16x8 {
	_ = a[15]
	_ = b[15]
	var p i16x8
	for k := 0; k < 8; k++ {
		p[k] = sat16(int32(a[2*k])*int32(b[2*k]) + int32(a[2*k+1])*int32(b[2*k+1]))
	}
	return p
}

// maddwd is pmaddwd: int16 lanes multiplied and adjacent pairs summed to int32.
func maddwd(a, b i16x8) xmm {
	var r xmm
	for k := 0; k < 4; k++ {
		r[k] = int32(a[2*k])*int32(b[2*k]) + int32(a[2*k+1])*int32(b[2*k+1])
	}
	return r
}

var ones16 = i16x8{1, 1, 1, 1, 1, 1, 1, 1}

// dpbusd is vpdpbusd over 16 bytes: each int32 lane accumulates four
// unsigned-by-signed byte products with no intermediate saturation.
func dpbusd(acc xmm, a []uint8, b []int8) xmm {
	_ = a[15]
	_ = b[15]
	for k := 0; k < 4; k++ {
		s := acc[k]
		for t := 4 * k; t < 4*k+4; t++ {
			s += int32(a[t]) * int32(b[t])
		}
		acc[k] = s
	}
	return acc
}

// addDpbusd128 accumulates one 16-byte chunk into acc, using the fused VNNI
// form or the maddubs/madd pair.
func addDpbusd128(acc xmm, a []uint8, b []int8, vnni bool) xmm {
	if vnni {
		return dpbusd(acc, a, b)
	}
	return acc.add(maddwd(maddubs(a, b), ones16))
}

func addDpbusd256(acc *ymm, a []uint8, b []int8, vnni bool) {
	acc[0] = addDpbusd128(acc[0], a[0:16], b[0:16], vnni)
	acc[1] = addDpbusd128(acc[1], a[16:32], b[16:32], vnni)
}

func addDpbusd512(acc *zmm, a []uint8, b []int8, vnni bool) {
	for l := 0; l < 4; l++ {
		acc[l] = addDpbusd128(acc[l], a[16*l:16*l+16], b[16*l:16*l+16], vnni)
	}
}

// hadd128 folds the four lanes of sum and adds bias.
func hadd128(sum xmm, bias int32) int32 {
	sum = sum.add(shuffle32(sum, 0x4E))
	sum = sum.add(shuffle32(sum, 0xB1))
	return sum[0] + bias
}

// haddx4128 reduces four accumulators to one register holding their four
// totals, plus bias.
func haddx4128(s0, s1, s2, s3 xmm, bias xmm) xmm {
	s0 = hadd32(s0, s1)
	s2 = hadd32(s2, s3)
	s0 = hadd32(s0, s2)
	return s0.add(bias)
}

func hadd256(sum ymm, bias int32) int32 {
	return hadd128(sum[0].add(sum[1]), 0) + bias
}

// haddx4256 is haddx4128 with vphaddd's per-lane behaviour: each 128-bit
// lane is reduced on its own and the two halves are added last.
func haddx4256(s0, s1, s2, s3 ymm, bias xmm) xmm {
	var r ymm
	for l := 0; l < 2; l++ {
		a := hadd32(s0[l], s1[l])
		b := hadd32(s2[l], s3[l])
		r[l] = hadd32(a, b)
	}
	return r[0].add(r[1]).add(bias)
}

// hadd512 is a full reduction of all sixteen lanes.
func hadd512(sum zmm, bias int32) int32 {
	lo := sum[0].add(sum[2])
	hi := sum[1].add(sum[3])
	return hadd128(lo.add(hi), 0) + bias
}

// haddx4512 transposes the four accumulators with 32- and 64-bit unpacks so
// that lane k of every 128-bit block holds a partial sum of accumulator k,
// then folds the four blocks together.
func haddx4512(s0, s1, s2, s3 zmm, bias xmm) xmm {
	var r zmm
	for l := 0; l < 4; l++ {
		s01 := unpacklo32(s0[l], s1[l]).add(unpackhi32(s0[l], s1[l]))
		s23 := unpacklo32(s2[l], s3[l]).add(unpackhi32(s2[l], s3[l]))
		r[l] = unpacklo64(s01, s23).add(unpackhi64(s01, s23))
	}
	lo := r[0].add(r[2])
	hi := r[1].add(r[3])
	return lo.add(hi).add(bias)
}

// loadBias4 reads four biases as one register.
func loadBias4(b []int32) xmm {
	return xmm{b[0], b[1], b[2], b[3]}
}

func store4(dst []int32, v xmm) {
	dst[0], dst[1], dst[2], dst[3] = v[0], v[1], v[2], v[3]
}
