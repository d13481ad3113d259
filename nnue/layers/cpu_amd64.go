//go:build amd64 && !purego

package layers

import "golang.org/x/sys/cpu"

// nativeKernels reports AVX2 when the CPU and OS support it. HasAVX2 already
// accounts for the OS saving the ymm state.
func nativeKernels() []Kernel {
	if cpu.X86.HasAVX2 {
		return []Kernel{AVX2}
	}
	return nil
}
