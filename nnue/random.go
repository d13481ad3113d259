package nnue

import (
	"math/rand"
)

// RandomizeParameters fills every affine layer with deterministic
// pseudo-random weights in [-128, 127] and biases in [-8192, 8191].
func RandomizeParameters(arch *Architecture, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	for _, fc := range arch.Affines {
		biases := make([]int32, fc.OutputDimensions())
		for i := range biases {
			biases[i] = int32(rng.Intn(1<<14)) - 1<<13
		}
		weights := make([]int8, fc.OutputDimensions()*fc.PaddedInputDimensions())
		for i := range weights {
			weights[i] = int8(rng.Intn(256) - 128)
		}
		if err := fc.SetParameters(biases, weights); err != nil {
			return err
		}
	}
	return nil
}

// RandomFeatures returns a feature vector of arch.FeatureSize() bytes. Real
// features are in [0, 127], the activation range; the padding tail is
// filled with arbitrary bytes since no kernel may depend on it.
func RandomFeatures(arch *Architecture, rng *rand.Rand) []uint8 {
	features := make([]uint8, arch.FeatureSize())
	for i := range features {
		if i < arch.InputDimensions {
			features[i] = uint8(rng.Intn(128))
		} else {
			features[i] = uint8(rng.Intn(256))
		}
	}
	return features
}
