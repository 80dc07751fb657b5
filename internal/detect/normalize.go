// SPDX-License-Identifier: MIT
package detect

import (
	"fmt"

	"clapper/internal/audio"
	"clapper/internal/config"

	"gonum.org/v1/gonum/floats"
)

// Normalizer derives the feature window from raw codes into a buffer it
// owns. Apply does not allocate.
type Normalizer struct {
	policy string
	out    []float64
}

// NewNormalizer returns a normalizer for windows of size samples using one
// of the config.Normalize* policies.
func NewNormalizer(policy string, size int) (*Normalizer, error) {
	switch policy {
	case config.NormalizeRaw, config.NormalizeMean, config.NormalizeMinMax:
	default:
		return nil, fmt.Errorf("unknown normalization policy %q", policy)
	}
	return &Normalizer{policy: policy, out: make([]float64, size)}, nil
}

// Policy returns the configured policy name.
func (n *Normalizer) Policy() string {
	return n.policy
}

// Apply returns the feature window for codes. The slice is reused by the
// next call.
//
//   - raw: codes as floats
//   - mean: DC removed
//   - minmax: rescaled to [-1, 1]; a flat window maps to all zeros
func (n *Normalizer) Apply(codes []audio.Sample) []float64 {
	if cap(n.out) < len(codes) {
		n.out = make([]float64, len(codes))
	}
	out := n.out[:len(codes)]
	if len(out) == 0 {
		return out
	}
	for i, c := range codes {
		out[i] = float64(c)
	}

	switch n.policy {
	case config.NormalizeMean:
		floats.AddConst(-floats.Sum(out)/float64(len(out)), out)
	case config.NormalizeMinMax:
		lo, hi := floats.Min(out), floats.Max(out)
		if hi == lo {
			for i := range out {
				out[i] = 0
			}
			break
		}
		floats.AddConst(-lo, out)
		floats.Scale(2/(hi-lo), out)
		floats.AddConst(-1, out)
	}
	return out
}
