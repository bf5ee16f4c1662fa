package model

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ImpactThreshold separates a predicted impact from no impact.
const ImpactThreshold = 0.5

const probabilityDecimals = 4

const tracerName = "github.com/Brownie44l1/impact-api/internal/model"

// InferenceObserver receives the duration of every scale+infer step.
type InferenceObserver interface {
	ObserveInference(d time.Duration)
}

// Predictor runs the validate-scale-infer-threshold pipeline.
type Predictor struct {
	artifacts  *Artifacts
	cache      *cache.Cache
	maxEntries int
	observer   InferenceObserver
	tracer     trace.Tracer
}

type PredictorOption func(*Predictor)

// WithCache memoises responses per feature vector. Once maxEntries vectors
// are held, new results are not stored until entries expire.
func WithCache(ttl, cleanupInterval time.Duration, maxEntries int) PredictorOption {
	return func(p *Predictor) {
		p.cache = cache.New(ttl, cleanupInterval)
		p.maxEntries = maxEntries
	}
}

func WithObserver(o InferenceObserver) PredictorOption {
	return func(p *Predictor) {
		p.observer = o
	}
}

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) PredictorOption {
	return func(p *Predictor) {
		p.tracer = tp.Tracer(tracerName)
	}
}

func NewPredictor(artifacts *Artifacts, opts ...PredictorOption) *Predictor {
	p := &Predictor{
		artifacts: artifacts,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ready reports whether both artifacts are available.
func (p *Predictor) Ready() error {
	return p.artifacts.Ready()
}

// Predict classifies one asteroid.
func (p *Predictor) Predict(ctx context.Context, f Features) (*PredictionResponse, error) {
	classifier, err := p.artifacts.Classifier()
	if err != nil {
		return nil, err
	}
	scaler, err := p.artifacts.Scaler()
	if err != nil {
		return nil, err
	}

	_, span := p.tracer.Start(ctx, "model.Predict")
	defer span.End()

	key := cacheKey(f)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			resp := cached.(PredictionResponse)
			span.SetAttributes(attribute.Bool("cache_hit", true), attribute.Int("impact_risk", resp.ImpactRisk))
			return &resp, nil
		}
	}

	start := time.Now()
	raw, err := infer(classifier, scaler.Transform(f))
	if p.observer != nil {
		p.observer.ObserveInference(time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	probability := float64(raw)
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		err := fmt.Errorf("%w: probability %v outside [0, 1]", ErrInference, probability)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := PredictionResponse{PredictionProbability: round(probability, probabilityDecimals)}
	if resp.PredictionProbability > ImpactThreshold {
		resp.ImpactRisk = 1
	}

	span.SetAttributes(
		attribute.Bool("cache_hit", false),
		attribute.Int("impact_risk", resp.ImpactRisk),
		attribute.Float64("prediction_probability", resp.PredictionProbability))

	if p.cache != nil && p.cache.ItemCount() < p.maxEntries {
		p.cache.SetDefault(key, resp)
	}

	return &resp, nil
}

// infer converts classifier panics into errors so a broken model
// cannot take the process down.
func infer(c Classifier, scaled Features) (out float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInference, r)
		}
	}()

	out, err = c.Predict(scaled.Float32())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	return out, nil
}

func round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

func cacheKey(f Features) string {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Status reports which artifacts are loaded.
func (p *Predictor) Status() (modelLoaded, scalerLoaded bool) {
	_, modelErr := p.artifacts.Classifier()
	_, scalerErr := p.artifacts.Scaler()
	return modelErr == nil, scalerErr == nil
}
