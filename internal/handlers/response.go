package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"notra-backend/internal/middleware"
	"notra-backend/internal/models"
	"notra-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(message, detail string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error:     message,
		Detail:    detail,
		RequestID: r.Header.Get(middleware.RequestIDHeader),
	}
}

// handleServiceError reports err as a structured JSON error. It must only
// be called before any part of a streamed body has been written.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation    *services.ValidationError
		unknown       *services.UnknownProviderError
		misconfigured *services.MisconfiguredError
		upstream      *services.UpstreamError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResp(validation.Message, validation.Detail, r))
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusBadRequest, errorResp("Unknown provider", unknown.ID, r))
	case errors.As(err, &misconfigured):
		log.Printf("✗ [%s] %v", r.Header.Get(middleware.RequestIDHeader), err)
		writeJSON(w, http.StatusInternalServerError, errorResp(misconfigured.Message, "", r))
	case errors.As(err, &upstream):
		log.Printf("✗ [%s] %v", r.Header.Get(middleware.RequestIDHeader), err)
		detail := string(upstream.Provider)
		if errors.Is(err, context.DeadlineExceeded) {
			detail = string(upstream.Provider) + ": upstream timed out"
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("Server error while calling the model provider", detail, r))
	default:
		log.Printf("✗ [%s] %v", r.Header.Get(middleware.RequestIDHeader), err)
		writeJSON(w, http.StatusInternalServerError, errorResp("An unexpected error occurred", "", r))
	}
}
