package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Scaler standardises features with the statistics learned at training time.
type Scaler struct {
	FeatureNames []string  `json:"feature_names,omitempty"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// LoadScaler reads a scaler artifact exported as JSON.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scaler: %w", err)
	}

	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: failed to parse scaler: %v", ErrInvalidArtifact, err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Scaler) validate() error {
	if len(s.Mean) != FeatureCount {
		return fmt.Errorf("%w: scaler has %d means, expected %d", ErrInvalidArtifact, len(s.Mean), FeatureCount)
	}
	if len(s.Scale) != FeatureCount {
		return fmt.Errorf("%w: scaler has %d scales, expected %d", ErrInvalidArtifact, len(s.Scale), FeatureCount)
	}

	if len(s.FeatureNames) > 0 {
		if len(s.FeatureNames) != FeatureCount {
			return fmt.Errorf("%w: scaler lists %d features, expected %d", ErrInvalidArtifact, len(s.FeatureNames), FeatureCount)
		}
		for i, name := range s.FeatureNames {
			if name != FeatureNames[i] {
				return fmt.Errorf("%w: scaler feature %d is %q, expected %q", ErrInvalidArtifact, i, name, FeatureNames[i])
			}
		}
	}

	for i := 0; i < FeatureCount; i++ {
		if math.IsNaN(s.Mean[i]) || math.IsInf(s.Mean[i], 0) || math.IsNaN(s.Scale[i]) || math.IsInf(s.Scale[i], 0) {
			return fmt.Errorf("%w: scaler statistics for %q are not finite", ErrInvalidArtifact, FeatureNames[i])
		}
		// A zero scale marks a constant feature; it is left unscaled.
		if s.Scale[i] == 0 {
			s.Scale[i] = 1
		}
	}

	return nil
}

// Transform returns (x - mean) / scale for every feature.
func (s *Scaler) Transform(f Features) Features {
	var out Features
	for i, v := range f {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out
}
