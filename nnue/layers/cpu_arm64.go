//go:build arm64 && !purego

package layers

// Advanced SIMD is part of every arm64 target Go supports.
func nativeKernels() []Kernel {
	return []Kernel{NEON}
}
