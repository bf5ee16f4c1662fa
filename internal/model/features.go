package model

import "fmt"

// Features assembles the request into the canonical feature vector.
func (r *PredictionRequest) Features() (Features, error) {
	values := [FeatureCount]*float64{
		r.OrbitAxis,
		r.Eccentricity,
		r.Inclination,
		r.PerihelionDistance,
		r.AphelionDistance,
		r.MinOrbitIntersectionDistance,
		r.MeanAnomaly,
		r.PerihelionArgument,
		r.NodeLongitude,
		r.OrbitalPeriod,
	}

	var f Features
	for i, v := range values {
		if v == nil {
			return f, fmt.Errorf("missing feature %q", FeatureNames[i])
		}
		f[i] = *v
	}
	return f, nil
}

// Float32 converts the vector to the element type of the classifier input.
func (f Features) Float32() []float32 {
	out := make([]float32, FeatureCount)
	for i, v := range f {
		out[i] = float32(v)
	}
	return out
}
