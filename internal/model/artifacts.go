package model

import "log/slog"

// ArtifactPaths locates the files produced by the training pipeline.
type ArtifactPaths struct {
	ModelPath    string
	MetadataPath string
	ScalerPath   string
	LibraryPath  string
}

// Artifacts holds the classifier and scaler for the life of the process.
// Either slot may be empty when its file failed to load; callers go through
// the accessors, which report the empty state as an error.
type Artifacts struct {
	classifier Classifier
	scaler     *Scaler
}

// NewArtifacts wraps already loaded artifacts. Nil leaves a slot empty.
func NewArtifacts(classifier Classifier, scaler *Scaler) *Artifacts {
	return &Artifacts{classifier: classifier, scaler: scaler}
}

// LoadArtifacts loads both artifacts once. Failures are logged and never
// returned: an unavailable model is reported per request instead.
func LoadArtifacts(paths ArtifactPaths, logger *slog.Logger) *Artifacts {
	a := &Artifacts{}

	classifier, err := NewONNXClassifier(paths.ModelPath, paths.MetadataPath, paths.LibraryPath)
	if err != nil {
		logger.Error("Error loading model",
			slog.String("path", paths.ModelPath),
			slog.Any("err", err))
	} else {
		a.classifier = classifier
		logger.Info("Model loaded successfully",
			slog.String("path", paths.ModelPath),
			slog.String("input", classifier.Metadata.InputName),
			slog.String("output", classifier.Metadata.OutputName))
	}

	scaler, err := LoadScaler(paths.ScalerPath)
	if err != nil {
		logger.Error("Error loading scaler",
			slog.String("path", paths.ScalerPath),
			slog.Any("err", err))
	} else {
		a.scaler = scaler
		logger.Info("Scaler loaded successfully", slog.String("path", paths.ScalerPath))
	}

	return a
}

func (a *Artifacts) Classifier() (Classifier, error) {
	if a == nil || a.classifier == nil {
		return nil, ErrModelNotLoaded
	}
	return a.classifier, nil
}

func (a *Artifacts) Scaler() (*Scaler, error) {
	if a == nil || a.scaler == nil {
		return nil, ErrScalerNotLoaded
	}
	return a.scaler, nil
}

// Ready reports the first missing artifact, if any.
func (a *Artifacts) Ready() error {
	if _, err := a.Classifier(); err != nil {
		return err
	}
	_, err := a.Scaler()
	return err
}

func (a *Artifacts) Close() {
	if a != nil && a.classifier != nil {
		a.classifier.Close()
	}
}
