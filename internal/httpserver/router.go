package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Brownie44l1/impact-api/internal/handlers"
)

// NewRouter wires the endpoints. CORS wraps the router itself so that
// preflight requests are answered even for routes without an OPTIONS method.
func NewRouter(h *handlers.Handler, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/predict_impact", h.PredictImpact).Methods(http.MethodPost)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	return RequestID(AccessLog(logger)(CORS(r)))
}
