// Kernel strategies for the affine transform.

package layers

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/go-logr/logr"
)

// KernelEnv names the environment variable that overrides kernel detection.
const KernelEnv = "NNUE_KERNEL"

// Shape is the static geometry of an affine layer.
type Shape struct {
	InputDimensions       int
	PaddedInputDimensions int
	OutputDimensions      int
}

// AffineFunc computes output[i] = biases[i] + Σ_j weights[i*P+j] * input[j]
// for the shape it was selected for. input must hold the padded width.
type AffineFunc func(output []int32, input []uint8, weights []int8, biases []int32)

// Kernel is one implementation of the affine dot-product-and-bias. All
// kernels produce identical results for inputs in [0, 127]. Native kernels
// are assembly for the host instruction set; kernels named "*-model" emulate
// one in portable Go.
type Kernel interface {
	// Name identifies the kernel, e.g. "avx2" or "avx2-vnni-model".
	Name() string

	// Width is the native register width in bytes.
	Width() int

	// Select picks the code path for a shape. It is called once per layer.
	Select(s Shape) AffineFunc
}

// models reproduce the vector instruction sequences lane by lane. They are
// slower than Scalar and exist so the equivalence tests and the verify
// command can check every tier's arithmetic on any host.
var models = []Kernel{
	SSE2Model,
	SSSE3Model,
	NEONModel,
	AVX2Model,
	AVX2VNNIModel,
	AVX512Model,
	AVX512VNNIModel,
}

var registry = slices.Concat([]Kernel{Scalar}, nativeKernels(), models)

// Kernels returns every available kernel: the scalar reference, then the
// native kernels the host can run, then the models.
func Kernels() []Kernel {
	out := make([]Kernel, len(registry))
	copy(out, registry)
	return out
}

// KernelByName looks up a kernel by name, ignoring case.
func KernelByName(name string) (Kernel, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range registry {
		if k.Name() == name {
			return k, true
		}
	}
	return nil, false
}

var (
	logMu  sync.Mutex
	logger = logr.Discard()

	defaultOnce   sync.Once
	defaultKernel Kernel
)

// SetLogger sets the logger used for kernel selection messages.
func SetLogger(l logr.Logger) {
	logMu.Lock()
	logger = l.WithName("layers")
	logMu.Unlock()
}

func getLogger() logr.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return logger
}

// NativeKernels returns the assembly kernels compiled into this binary that
// the host CPU supports, widest first.
func NativeKernels() []Kernel {
	return nativeKernels()
}

// DetectKernel returns the widest native kernel the host supports, or Scalar
// when there is none. Models are never detected.
func DetectKernel() Kernel {
	if ks := nativeKernels(); len(ks) > 0 {
		return ks[0]
	}
	return Scalar
}

// DefaultKernel returns the kernel new layers use when none is given. It is
// resolved once: NNUE_KERNEL if it names a kernel, otherwise DetectKernel.
func DefaultKernel() Kernel {
	defaultOnce.Do(func() {
		log := getLogger()
		defaultKernel = DetectKernel()
		if name := os.Getenv(KernelEnv); name != "" {
			k, ok := KernelByName(name)
			if !ok {
				log.Info("ignoring unknown kernel override", "env", KernelEnv, "value", name, "using", defaultKernel.Name())
				return
			}
			defaultKernel = k
		}
		log.V(1).Info("selected affine kernel", "kernel", defaultKernel.Name(), "width", defaultKernel.Width())
	})
	return defaultKernel
}

func unreachableShape(k Kernel, s Shape) AffineFunc {
	panic(fmt.Sprintf("layers: %s kernel has no path for %d outputs", k.Name(), s.OutputDimensions))
}
