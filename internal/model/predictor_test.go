package model_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Brownie44l1/impact-api/internal/model"
)

type durationRecorder struct {
	observed []time.Duration
}

func (d *durationRecorder) ObserveInference(dur time.Duration) {
	d.observed = append(d.observed, dur)
}

// sigmoidOfSum stands in for a trained network: deterministic, in (0, 1).
func sigmoidOfSum(input []float32) (float32, error) {
	var sum float64
	for _, v := range input {
		sum += float64(v)
	}
	return float32(1 / (1 + math.Exp(-sum/100))), nil
}

var _ = Describe("Predictor", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("availability", func() {
		It("fails when the classifier is not loaded", func() {
			p := model.NewPredictor(model.NewArtifacts(nil, identityScaler()))

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).To(MatchError(model.ErrModelNotLoaded))
		})

		It("fails when the scaler is not loaded", func() {
			c := constantClassifier(0.9)
			p := model.NewPredictor(model.NewArtifacts(c, nil))

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).To(MatchError(model.ErrScalerNotLoaded))
			Expect(c.calls()).To(Equal(0))
		})

		It("reports loaded artifacts", func() {
			p := model.NewPredictor(model.NewArtifacts(constantClassifier(0.9), nil))

			modelLoaded, scalerLoaded := p.Status()
			Expect(modelLoaded).To(BeTrue())
			Expect(scalerLoaded).To(BeFalse())
			Expect(p.Ready()).To(MatchError(model.ErrScalerNotLoaded))
		})
	})

	Describe("pipeline", func() {
		It("feeds the scaled vector to the classifier", func() {
			c := constantClassifier(0.2)
			scaler := &model.Scaler{
				Mean:  []float64{0.5, 0, 0, 0, 0, 0, 0, 0, 0, 0.1},
				Scale: []float64{2, 1, 1, 1, 1, 1, 1, 1, 1, 2},
			}
			p := model.NewPredictor(model.NewArtifacts(c, scaler))

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(c.inputs).To(HaveLen(1))
			Expect(c.inputs[0]).To(HaveLen(model.FeatureCount))
			Expect(c.inputs[0][0]).To(Equal(float32(1.0)))
			Expect(c.inputs[0][1]).To(Equal(float32(0.1)))
			Expect(c.inputs[0][9]).To(Equal(float32(2.0)))
		})

		It("is deterministic for identical input", func() {
			c := &fakeClassifier{predict: sigmoidOfSum}
			p := model.NewPredictor(model.NewArtifacts(c, identityScaler()))

			first, err := p.Predict(ctx, exampleFeatures())
			Expect(err).NotTo(HaveOccurred())
			second, err := p.Predict(ctx, exampleFeatures())
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
			Expect(c.calls()).To(Equal(2))
		})

		DescribeTable("thresholds and rounds the probability",
			func(raw float32, risk int, probability float64) {
				p := model.NewPredictor(model.NewArtifacts(constantClassifier(raw), identityScaler()))

				resp, err := p.Predict(ctx, exampleFeatures())
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.ImpactRisk).To(Equal(risk))
				Expect(resp.PredictionProbability).To(Equal(probability))
			},
			Entry("certain impact", float32(1), 1, 1.0),
			Entry("certain miss", float32(0), 0, 0.0),
			Entry("exactly the threshold", float32(0.5), 0, 0.5),
			Entry("just above, rounding back to the threshold", float32(0.50004), 0, 0.5),
			Entry("just above the threshold", float32(0.50006), 1, 0.5001),
			Entry("below the threshold", float32(0.0123456), 0, 0.0123),
			Entry("above the threshold", float32(0.87654321), 1, 0.8765),
		)
	})

	Describe("failures", func() {
		It("wraps classifier errors", func() {
			c := &fakeClassifier{predict: func([]float32) (float32, error) {
				return 0, errors.New("boom")
			}}
			p := model.NewPredictor(model.NewArtifacts(c, identityScaler()))

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).To(MatchError(model.ErrInference))
			Expect(err.Error()).To(ContainSubstring("boom"))
		})

		It("recovers from a classifier panic", func() {
			c := &fakeClassifier{predict: func([]float32) (float32, error) {
				panic("tensor shape mismatch")
			}}
			p := model.NewPredictor(model.NewArtifacts(c, identityScaler()))

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).To(MatchError(model.ErrInference))
			Expect(err.Error()).To(ContainSubstring("tensor shape mismatch"))
		})

		DescribeTable("rejects probabilities outside [0, 1]",
			func(raw float32) {
				p := model.NewPredictor(model.NewArtifacts(constantClassifier(raw), identityScaler()))

				_, err := p.Predict(ctx, exampleFeatures())
				Expect(err).To(MatchError(model.ErrInference))
			},
			Entry("NaN", float32(math.NaN())),
			Entry("negative", float32(-0.1)),
			Entry("above one", float32(1.2)),
			Entry("logit instead of probability", float32(3.7)),
		)
	})

	Describe("cache", func() {
		It("skips inference for a repeated vector", func() {
			c := &fakeClassifier{predict: sigmoidOfSum}
			p := model.NewPredictor(model.NewArtifacts(c, identityScaler()),
				model.WithCache(time.Minute, time.Minute, 100))

			first, err := p.Predict(ctx, exampleFeatures())
			Expect(err).NotTo(HaveOccurred())
			second, err := p.Predict(ctx, exampleFeatures())
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
			Expect(c.calls()).To(Equal(1))
		})

		It("distinguishes different vectors", func() {
			c := &fakeClassifier{predict: sigmoidOfSum}
			p := model.NewPredictor(model.NewArtifacts(c, identityScaler()),
				model.WithCache(time.Minute, time.Minute, 100))

			other := exampleFeatures()
			other[5] = 0.0500001

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).NotTo(HaveOccurred())
			_, err = p.Predict(ctx, other)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.calls()).To(Equal(2))
		})

		It("stops storing once full", func() {
			c := &fakeClassifier{predict: sigmoidOfSum}
			p := model.NewPredictor(model.NewArtifacts(c, identityScaler()),
				model.WithCache(time.Minute, time.Minute, 1))

			other := exampleFeatures()
			other[0] = 3.5

			for i := 0; i < 2; i++ {
				_, err := p.Predict(ctx, exampleFeatures())
				Expect(err).NotTo(HaveOccurred())
				_, err = p.Predict(ctx, other)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(c.calls()).To(Equal(3))
		})

		It("does not cache failures", func() {
			fail := true
			c := &fakeClassifier{predict: func([]float32) (float32, error) {
				if fail {
					return 0, errors.New("transient")
				}
				return 0.7, nil
			}}
			p := model.NewPredictor(model.NewArtifacts(c, identityScaler()),
				model.WithCache(time.Minute, time.Minute, 100))

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).To(HaveOccurred())

			fail = false
			resp, err := p.Predict(ctx, exampleFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.ImpactRisk).To(Equal(1))
		})
	})

	Describe("instrumentation", func() {
		It("reports inference durations", func() {
			obs := &durationRecorder{}
			p := model.NewPredictor(model.NewArtifacts(constantClassifier(0.3), identityScaler()),
				model.WithObserver(obs))

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(obs.observed).To(HaveLen(1))
		})

		It("records a span per prediction", func() {
			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			DeferCleanup(func() { _ = tp.Shutdown(context.Background()) })

			c := &fakeClassifier{predict: func([]float32) (float32, error) {
				return 0, errors.New("boom")
			}}
			p := model.NewPredictor(model.NewArtifacts(c, identityScaler()),
				model.WithTracerProvider(tp))

			_, err := p.Predict(ctx, exampleFeatures())
			Expect(err).To(HaveOccurred())

			spans := recorder.Ended()
			Expect(spans).To(HaveLen(1))
			Expect(spans[0].Name()).To(Equal("model.Predict"))
			Expect(spans[0].Events()).NotTo(BeEmpty())
		})
	})
})
