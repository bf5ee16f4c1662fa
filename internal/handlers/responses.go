package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every 500 response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ValidationError describes one rejected field of a request body.
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrorResponse is the body of a 422 response.
type ValidationErrorResponse struct {
	Detail []ValidationError `json:"detail"`
}

// HealthResponse reports liveness and artifact availability.
type HealthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ScalerLoaded bool   `json:"scaler_loaded"`
}

func respondWithError(w http.ResponseWriter, code int, detail string) {
	respondWithJSON(w, code, ErrorResponse{Detail: detail})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"detail":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
