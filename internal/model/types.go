package model

// FeatureCount is the number of orbital parameters the classifier consumes.
const FeatureCount = 10

// FeatureNames lists the request fields in the order the scaler and the
// classifier were fitted on.
var FeatureNames = [FeatureCount]string{
	"orbit_axis",
	"eccentricity",
	"inclination",
	"perihelion_distance",
	"aphelion_distance",
	"min_orbit_intersection_distance",
	"mean_anomaly",
	"perihelion_argument",
	"node_longitude",
	"orbital_period",
}

// Metadata describes the tensors of the exported classifier graph.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

// DefaultMetadata is used when no metadata sidecar accompanies the model.
func DefaultMetadata() Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, FeatureCount},
		OutputShape: []int64{1, 1},
	}
}

// PredictionRequest carries the orbital parameters of one asteroid.
// Fields are pointers so that a missing value can be told apart from zero.
type PredictionRequest struct {
	OrbitAxis                    *float64 `json:"orbit_axis"`
	Eccentricity                 *float64 `json:"eccentricity"`
	Inclination                  *float64 `json:"inclination"`
	PerihelionDistance           *float64 `json:"perihelion_distance"`
	AphelionDistance             *float64 `json:"aphelion_distance"`
	MinOrbitIntersectionDistance *float64 `json:"min_orbit_intersection_distance"`
	MeanAnomaly                  *float64 `json:"mean_anomaly"`
	PerihelionArgument           *float64 `json:"perihelion_argument"`
	NodeLongitude                *float64 `json:"node_longitude"`
	OrbitalPeriod                *float64 `json:"orbital_period"`
}

// Features is the fixed-order input vector of the pipeline.
type Features [FeatureCount]float64

// PredictionResponse is the result returned to the caller.
type PredictionResponse struct {
	ImpactRisk            int     `json:"impact_risk"`
	PredictionProbability float64 `json:"prediction_probability"`
}
