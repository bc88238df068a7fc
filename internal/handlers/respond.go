package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"elasticlm-backend/internal/middleware"
	"elasticlm-backend/internal/models"
	"elasticlm-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return errorRespWithFields(code, message, nil, r)
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: middleware.GetRequestID(r.Context()),
		},
		Detail: message,
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation   *services.ValidationError
		unauthorized *services.UnauthorizedError
		upstream     *services.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", validation.Error(), validation.Fields, r))
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorized.Message, r))
	case errors.As(err, &upstream):
		writeJSON(w, upstream.StatusCode, errorResp("UPSTREAM_ERROR", upstream.Message, r))
	default:
		log.Printf("Unhandled error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

// proxyStatus maps a service error to the status code of a search proxy
// response.
func proxyStatus(err error) int {
	var (
		validation   *services.ValidationError
		unauthorized *services.UnauthorizedError
		upstream     *services.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &upstream):
		return upstream.StatusCode
	}
	return http.StatusInternalServerError
}

func writeProxyError(w http.ResponseWriter, err error) {
	writeJSON(w, proxyStatus(err), models.ProxyResponse{Success: false, Error: err.Error()})
}
