package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Brownie44l1/impact-api/internal/model"
)

var (
	errMissing    = validation.NewError("missing", "Field required")
	errFloatType  = validation.NewError("float_type", "Input should be a valid number")
	errFloatParse = validation.NewError("float_parsing", "Input should be a valid number, unable to parse string as a number")
	errFinite     = validation.NewError("finite_number", "Input should be a finite number")
)

// decodePredictionRequest parses and validates a request body. Every field
// must be present and coerce to a finite float; unknown fields are ignored.
func decodePredictionRequest(body []byte) (*model.PredictionRequest, []ValidationError) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, []ValidationError{{
			Loc:  []string{"body"},
			Msg:  "Input should be a valid JSON object",
			Type: "json_invalid",
		}}
	}

	req := &model.PredictionRequest{}
	targets := [model.FeatureCount]**float64{
		&req.OrbitAxis,
		&req.Eccentricity,
		&req.Inclination,
		&req.PerihelionDistance,
		&req.AphelionDistance,
		&req.MinOrbitIntersectionDistance,
		&req.MeanAnomaly,
		&req.PerihelionArgument,
		&req.NodeLongitude,
		&req.OrbitalPeriod,
	}

	typeErrs := validation.Errors{}
	for i, name := range model.FeatureNames {
		value, ok := raw[name]
		if !ok {
			continue
		}
		v, err := parseNumber(value)
		if err != nil {
			typeErrs[name] = err
			continue
		}
		*targets[i] = &v
	}

	err := validatePredictionRequest(req)

	var fieldErrs validation.Errors
	if err != nil && !errors.As(err, &fieldErrs) {
		return nil, []ValidationError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
	}

	var out []ValidationError
	for _, name := range model.FeatureNames {
		fieldErr, ok := typeErrs[name]
		if !ok {
			fieldErr, ok = fieldErrs[name]
		}
		if !ok {
			continue
		}
		out = append(out, toValidationError(name, fieldErr))
	}

	if len(out) > 0 {
		return nil, out
	}
	return req, nil
}

// parseNumber coerces a field to a float. Numbers, numeric strings and
// booleans (as 1 and 0) are accepted; null, arrays and objects are not.
func parseNumber(value json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return 0, errFloatType
	}

	var v float64
	switch c := trimmed[0]; {
	case c == '-' || (c >= '0' && c <= '9'):
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return 0, errFloatType
		}
	case c == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, errFloatParse
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, errFloatParse
		}
		v = parsed
	case bytes.Equal(trimmed, []byte("true")):
		return 1, nil
	case bytes.Equal(trimmed, []byte("false")):
		return 0, nil
	default:
		return 0, errFloatType
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errFinite
	}
	return v, nil
}

// validatePredictionRequest reports fields absent from the payload.
// Field names in the returned errors follow the json tags.
func validatePredictionRequest(req *model.PredictionRequest) error {
	required := validation.NotNil.ErrorObject(errMissing)

	return validation.ValidateStruct(req,
		validation.Field(&req.OrbitAxis, required),
		validation.Field(&req.Eccentricity, required),
		validation.Field(&req.Inclination, required),
		validation.Field(&req.PerihelionDistance, required),
		validation.Field(&req.AphelionDistance, required),
		validation.Field(&req.MinOrbitIntersectionDistance, required),
		validation.Field(&req.MeanAnomaly, required),
		validation.Field(&req.PerihelionArgument, required),
		validation.Field(&req.NodeLongitude, required),
		validation.Field(&req.OrbitalPeriod, required),
	)
}

func toValidationError(field string, err error) ValidationError {
	ve := ValidationError{
		Loc:  []string{"body", field},
		Msg:  err.Error(),
		Type: "value_error",
	}

	var vErr validation.Error
	if errors.As(err, &vErr) {
		ve.Msg = vErr.Message()
		ve.Type = vErr.Code()
	}

	return ve
}
