package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Classifier produces the impact probability for one scaled feature vector.
type Classifier interface {
	Predict(input []float32) (float32, error)
	Close()
}

// ONNXClassifier runs the exported network through onnxruntime.
type ONNXClassifier struct {
	// The session is bound to a single input/output tensor pair,
	// so copy, Run and read must not interleave.
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNXClassifier loads the model graph and prepares its tensors.
// An empty metadataPath, or one that does not exist, selects DefaultMetadata.
// libraryPath overrides the location of the onnxruntime shared library.
func NewONNXClassifier(modelPath, metadataPath, libraryPath string) (*ONNXClassifier, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}

	metadata, err := loadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	initialized := false
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		initialized = true
	}
	release := func() {
		if initialized {
			ort.DestroyEnvironment()
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		release()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		release()
		return nil, fmt.Errorf("%w: failed to create ONNX session: %v", ErrInvalidArtifact, err)
	}

	return &ONNXClassifier{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func loadMetadata(path string) (Metadata, error) {
	if path == "" {
		return DefaultMetadata(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultMetadata(), nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	metadata := DefaultMetadata()
	if err := json.Unmarshal(data, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("%w: failed to parse metadata: %v", ErrInvalidArtifact, err)
	}

	if metadata.InputShape, err = batchOfOne(metadata.InputShape); err != nil {
		return Metadata{}, fmt.Errorf("%w: model input: %v", ErrInvalidArtifact, err)
	}
	if metadata.OutputShape, err = batchOfOne(metadata.OutputShape); err != nil {
		return Metadata{}, fmt.Errorf("%w: model output: %v", ErrInvalidArtifact, err)
	}
	if n := elements(metadata.InputShape); n != FeatureCount {
		return Metadata{}, fmt.Errorf("%w: model input holds %d values, expected %d", ErrInvalidArtifact, n, FeatureCount)
	}
	if elements(metadata.OutputShape) < 1 {
		return Metadata{}, fmt.Errorf("%w: model output shape %v is empty", ErrInvalidArtifact, metadata.OutputShape)
	}

	return metadata, nil
}

// batchOfOne fixes a dynamic leading batch dimension (-1) to a single row.
// Any other dimension must be positive.
func batchOfOne(shape []int64) ([]int64, error) {
	out := make([]int64, len(shape))
	for i, dim := range shape {
		switch {
		case dim > 0:
			out[i] = dim
		case i == 0 && dim == -1:
			out[i] = 1
		default:
			return nil, fmt.Errorf("dimension %d of shape %v is not positive", i, shape)
		}
	}
	return out, nil
}

func elements(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, dim := range shape {
		n *= dim
	}
	return n
}

// Predict runs the network and returns the first output value.
func (c *ONNXClassifier) Predict(input []float32) (float32, error) {
	if len(input) != FeatureCount {
		return 0, fmt.Errorf("expected %d inputs, got %d", FeatureCount, len(input))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.inputTensor.GetData(), input)

	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("session run: %w", err)
	}

	return c.outputTensor.GetData()[0], nil
}

func (c *ONNXClassifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	ort.DestroyEnvironment()
}
