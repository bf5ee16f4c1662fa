package model

import "errors"

var (
	ErrModelNotLoaded  = errors.New("model is not loaded")
	ErrScalerNotLoaded = errors.New("scaler is not loaded")
	ErrInvalidArtifact = errors.New("invalid artifact")
	ErrInference       = errors.New("inference failed")
)
