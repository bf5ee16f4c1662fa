package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Brownie44l1/impact-api/internal/metrics"
	"github.com/Brownie44l1/impact-api/internal/model"
)

const maxBodyBytes = 1 << 20

// Predictor is the pipeline behind the prediction endpoint.
type Predictor interface {
	Ready() error
	Status() (modelLoaded, scalerLoaded bool)
	Predict(ctx context.Context, f model.Features) (*model.PredictionResponse, error)
}

// Recorder counts prediction outcomes.
type Recorder interface {
	RecordPrediction(outcome string)
}

type Handler struct {
	predictor Predictor
	recorder  Recorder
	logger    *slog.Logger
}

// NewHandler builds the HTTP handlers. recorder may be nil.
func NewHandler(predictor Predictor, recorder Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		predictor: predictor,
		recorder:  recorder,
		logger:    logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	modelLoaded, scalerLoaded := h.predictor.Status()

	status := "healthy"
	if !modelLoaded || !scalerLoaded {
		status = "degraded"
	}

	respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:       status,
		ModelLoaded:  modelLoaded,
		ScalerLoaded: scalerLoaded,
	})
}

// PredictImpact classifies the asteroid described by the request body.
func (h *Handler) PredictImpact(w http.ResponseWriter, r *http.Request) {
	if err := h.predictor.Ready(); err != nil {
		h.logger.Error("Prediction unavailable", slog.Any("err", err))
		h.record(metrics.OutcomeUnavailable)
		respondWithError(w, http.StatusInternalServerError, unavailableDetail(err))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.record(metrics.OutcomeInvalid)
		respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Detail: []ValidationError{{Loc: []string{"body"}, Msg: "Failed to read request body", Type: "body_read"}},
		})
		return
	}

	req, validationErrs := decodePredictionRequest(body)
	if len(validationErrs) > 0 {
		h.logger.Debug("Rejected prediction request", slog.Int("errors", len(validationErrs)))
		h.record(metrics.OutcomeInvalid)
		respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Detail: validationErrs})
		return
	}

	result, err := h.predict(r.Context(), req)
	if err != nil {
		h.logger.Error("Error in prediction", slog.Any("err", err))
		if errors.Is(err, model.ErrModelNotLoaded) || errors.Is(err, model.ErrScalerNotLoaded) {
			h.record(metrics.OutcomeUnavailable)
			respondWithError(w, http.StatusInternalServerError, unavailableDetail(err))
			return
		}
		h.record(metrics.OutcomeError)
		respondWithError(w, http.StatusInternalServerError, "Prediction failed: "+err.Error())
		return
	}

	if result.ImpactRisk == 1 {
		h.record(metrics.OutcomeImpact)
	} else {
		h.record(metrics.OutcomeNoImpact)
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) predict(ctx context.Context, req *model.PredictionRequest) (*model.PredictionResponse, error) {
	features, err := req.Features()
	if err != nil {
		return nil, err
	}
	return h.predictor.Predict(ctx, features)
}

func (h *Handler) record(outcome string) {
	if h.recorder != nil {
		h.recorder.RecordPrediction(outcome)
	}
}

func unavailableDetail(err error) string {
	if errors.Is(err, model.ErrScalerNotLoaded) {
		return "Scaler is not loaded. Please check server logs."
	}
	return "Model is not loaded. Please check server logs."
}
