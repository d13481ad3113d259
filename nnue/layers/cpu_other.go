//go:build (!amd64 && !arm64) || purego

package layers

func nativeKernels() []Kernel {
	return nil
}
