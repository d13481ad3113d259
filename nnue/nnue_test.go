package nnue

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"

	"github.com/hailam/nnueaffine/nnue/common"
	"github.com/hailam/nnueaffine/nnue/layers"
)

func newRandomArch(t testing.TB, seed int64, opts ...layers.Option) *Architecture {
	t.Helper()
	arch, err := NewArchitecture(64, []int{16, 8}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := RandomizeParameters(arch, seed); err != nil {
		t.Fatal(err)
	}
	return arch
}

func TestDefaultArchitecture(t *testing.T) {
	arch, err := NewDefaultArchitecture(layers.WithKernel(layers.Scalar))
	if err != nil {
		t.Fatal(err)
	}
	if arch.String() != "512-32-32-1" {
		t.Errorf("String = %q", arch.String())
	}
	if len(arch.Affines) != 3 || arch.Output() != arch.Affines[2] {
		t.Fatalf("unexpected layer list: %d affines", len(arch.Affines))
	}

	// Output(1) 64 + ReLU(32) 64 + Affine(32) 128 + ReLU(32) 64 + Affine(32) 128
	// + InputSlice(512) 512.
	if got, want := arch.BufferSize(), 64+64+128+64+128+512; got != want {
		t.Errorf("BufferSize = %d, want %d", got, want)
	}
	if got, want := arch.ParameterSize(), (4*32+32*512)+(4*32+32*32)+(4+32); got != want {
		t.Errorf("ParameterSize = %d, want %d", got, want)
	}

	// Hash chain written out by hand.
	h := layers.InputSliceHashValue(512)
	h = layers.AffineTransformHashValue(h, 32)
	h = layers.ClippedReLUHashValue(h)
	h = layers.AffineTransformHashValue(h, 32)
	h = layers.ClippedReLUHashValue(h)
	h = layers.AffineTransformHashValue(h, 1)
	if arch.HashValue() != h {
		t.Errorf("HashValue = %08x, want %08x", arch.HashValue(), h)
	}

	t.Logf("512-32-32-1 hash: %08x", arch.HashValue())
}

func TestArchitectureInvalidHidden(t *testing.T) {
	if _, err := NewArchitecture(512, []int{30}); !errors.Is(err, layers.ErrInvalidOutputDimensions) {
		t.Errorf("hidden 30: err = %v", err)
	}
	if _, err := NewArchitecture(0, nil); !errors.Is(err, layers.ErrInvalidDimensions) {
		t.Errorf("input 0: err = %v", err)
	}
}

func TestParseDimensions(t *testing.T) {
	in, hidden, err := ParseDimensions("512, 32,32")
	if err != nil {
		t.Fatal(err)
	}
	if in != 512 || !cmp.Equal(hidden, []int{32, 32}) {
		t.Errorf("got %d %v", in, hidden)
	}

	in, hidden, err = ParseDimensions("64")
	if err != nil || in != 64 || len(hidden) != 0 {
		t.Errorf("single dimension: %d %v %v", in, hidden, err)
	}

	if _, _, err := ParseDimensions("512,x"); err == nil {
		t.Error("accepted a non-numeric dimension")
	}
}

func TestNetworkSaveLoad(t *testing.T) {
	src := newRandomArch(t, 1, layers.WithKernel(layers.Scalar))
	net := NewNetwork(src)
	net.NetDescription = "test network"

	path := filepath.Join(t.TempDir(), "test.nnue")
	if err := net.Save(path); err != nil {
		t.Fatal(err)
	}

	dst, err := NewArchitecture(64, []int{16, 8})
	if err != nil {
		t.Fatal(err)
	}
	loaded := NewNetwork(dst)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.NetDescription != "test network" || loaded.CurrentFile != path {
		t.Errorf("description %q, file %q", loaded.NetDescription, loaded.CurrentFile)
	}

	for i := range src.Affines {
		if diff := cmp.Diff(src.Affines[i].Weights(), dst.Affines[i].Weights()); diff != "" {
			t.Errorf("layer %d weights:\n%s", i, diff)
		}
		if diff := cmp.Diff(src.Affines[i].Biases(), dst.Affines[i].Biases()); diff != "" {
			t.Errorf("layer %d biases:\n%s", i, diff)
		}
	}

	rng := rand.New(rand.NewSource(2))
	a := common.NewArena(src.BufferSize())
	for i := 0; i < 32; i++ {
		features := RandomFeatures(src, rng)
		if want, got := src.Propagate(features, a.Bytes()), dst.Propagate(features, a.Bytes()); want != got {
			t.Errorf("vector %d: %d after reload, want %d", i, got, want)
		}
	}
}

func encodeNetwork(t *testing.T, arch *Architecture, desc string) []byte {
	t.Helper()
	net := NewNetwork(arch)
	net.NetDescription = desc
	var buf bytes.Buffer
	if err := net.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNetworkFileLayout(t *testing.T) {
	arch := newRandomArch(t, 1)
	data := encodeNetwork(t, arch, "abc")

	if got := binary.LittleEndian.Uint32(data[0:]); got != Version {
		t.Errorf("version = %08x", got)
	}
	if got := binary.LittleEndian.Uint32(data[4:]); got != arch.HashValue() {
		t.Errorf("hash = %08x", got)
	}
	if got := binary.LittleEndian.Uint32(data[8:]); got != 3 {
		t.Errorf("description length = %d", got)
	}
	if string(data[12:15]) != "abc" {
		t.Errorf("description = %q", data[12:15])
	}
	if got := binary.LittleEndian.Uint32(data[15:]); got != arch.HashValue() {
		t.Errorf("layer stack hash = %08x", got)
	}
	if got, want := len(data), 19+arch.ParameterSize(); got != want {
		t.Errorf("file size = %d, want %d", got, want)
	}

	header, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Header{Version: Version, Hash: arch.HashValue(), Description: "abc"}, header); diff != "" {
		t.Errorf("header mismatch:\n%s", diff)
	}
}

func TestNetworkLoadErrors(t *testing.T) {
	arch := newRandomArch(t, 1)
	good := encodeNetwork(t, arch, "")

	corrupt := func(f func(b []byte) []byte) []byte {
		return f(append([]byte(nil), good...))
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"version", corrupt(func(b []byte) []byte { b[0]++; return b }), ErrVersionMismatch},
		{"header hash", corrupt(func(b []byte) []byte { b[4]++; return b }), ErrHashMismatch},
		{"stack hash", corrupt(func(b []byte) []byte { b[12]++; return b }), ErrHashMismatch},
		{"trailing", append(append([]byte(nil), good...), 0), ErrTrailingData},
		{"truncated", good[:len(good)-1], io.ErrUnexpectedEOF},
		{"empty", nil, io.EOF},
		{"description", corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:], maxDescriptionSize+1)
			return b
		}), ErrDescriptionTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst, err := NewArchitecture(64, []int{16, 8})
			if err != nil {
				t.Fatal(err)
			}
			err = NewNetwork(dst).LoadFromReader(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsFormatError(err) {
				t.Errorf("IsFormatError(%v) = false", err)
			}
		})
	}

	// A file for a different shape is rejected by hash before any
	// parameters are read.
	other, err := NewArchitecture(64, []int{16, 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := NewNetwork(other).LoadFromReader(bytes.NewReader(good)); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("other shape: err = %v", err)
	}
}

func TestNetworkLoadReadErrorAfterParameters(t *testing.T) {
	arch := newRandomArch(t, 1)
	good := encodeNetwork(t, arch, "")
	errDisk := errors.New("disk failure")

	dst, err := NewArchitecture(64, []int{16, 8})
	if err != nil {
		t.Fatal(err)
	}
	r := io.MultiReader(bytes.NewReader(good), iotest.ErrReader(errDisk))
	err = NewNetwork(dst).LoadFromReader(r)
	if !errors.Is(err, errDisk) {
		t.Fatalf("err = %v, want %v", err, errDisk)
	}
	if IsFormatError(err) {
		t.Errorf("IsFormatError(%v) = true for an I/O failure", err)
	}
}

func TestNetworkLoadMissingFile(t *testing.T) {
	arch := newRandomArch(t, 1)
	err := NewNetwork(arch).Load(filepath.Join(t.TempDir(), "missing.nnue"))
	if err == nil {
		t.Fatal("no error for a missing file")
	}
	if IsFormatError(err) {
		t.Errorf("missing file reported as format error: %v", err)
	}
}

func TestArchitectureClone(t *testing.T) {
	src := newRandomArch(t, 4, layers.WithKernel(layers.Scalar))
	c, err := src.Clone(layers.WithKernel(layers.SSSE3Model))
	if err != nil {
		t.Fatal(err)
	}
	if c.Output().Kernel().Name() != "ssse3-model" {
		t.Errorf("clone kernel = %s", c.Output().Kernel().Name())
	}
	if c.HashValue() != src.HashValue() {
		t.Error("clone hash differs")
	}

	same, err := src.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if same.Output().Kernel().Name() != "scalar" {
		t.Errorf("clone without options uses %s", same.Output().Kernel().Name())
	}
}

func TestEvaluatorConcurrent(t *testing.T) {
	arch := newRandomArch(t, 9)
	eval := NewEvaluator(arch)

	rng := rand.New(rand.NewSource(10))
	inputs := make([][]uint8, 64)
	want := make([]int32, len(inputs))
	a := common.NewArena(arch.BufferSize())
	for i := range inputs {
		inputs[i] = RandomFeatures(arch, rng)
		want[i] = arch.Propagate(inputs[i], a.Bytes())
	}

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for round := 0; round < 200; round++ {
				i := (round + g) % len(inputs)
				if got := eval.Evaluate(inputs[i]); got != want[i] {
					errs <- "mismatch"
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}

	out := eval.EvaluateInto(inputs[0], a)
	if len(out) != 1 || out[0] != want[0] {
		t.Errorf("EvaluateInto = %v, want [%d]", out, want[0])
	}
}

func TestRandomizeParametersDeterministic(t *testing.T) {
	a := newRandomArch(t, 42)
	b := newRandomArch(t, 42)
	c := newRandomArch(t, 43)

	if !cmp.Equal(a.Output().Weights(), b.Output().Weights()) {
		t.Error("same seed produced different weights")
	}
	if cmp.Equal(a.Affines[0].Weights(), c.Affines[0].Weights()) {
		t.Error("different seeds produced identical weights")
	}
}

func TestVerifyKernels(t *testing.T) {
	arch := newRandomArch(t, 5)
	reports, err := VerifyKernels(context.Background(), arch, layers.Kernels(), 50, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != len(layers.Kernels()) {
		t.Fatalf("%d reports", len(reports))
	}
	for _, r := range reports {
		if !r.OK() {
			t.Errorf("%s: %d mismatches, layer %d: want %v got %v", r.Kernel, r.Mismatches, r.Layer, r.Expected, r.Got)
		}
		if r.Rounds != 50 {
			t.Errorf("%s: %d rounds", r.Kernel, r.Rounds)
		}
	}
}

func TestVerifyKernelsCanceled(t *testing.T) {
	arch := newRandomArch(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := VerifyKernels(ctx, arch, layers.Kernels(), 10, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func BenchmarkEvaluateDefault(b *testing.B) {
	arch, err := NewDefaultArchitecture()
	if err != nil {
		b.Fatal(err)
	}
	if err := RandomizeParameters(arch, 1); err != nil {
		b.Fatal(err)
	}
	features := RandomFeatures(arch, rand.New(rand.NewSource(1)))
	a := common.NewArena(arch.BufferSize())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		arch.Propagate(features, a.Bytes())
	}
}
