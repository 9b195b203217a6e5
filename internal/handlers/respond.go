package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/service"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, code service.Code, message string) {
	respondWithJSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
		Code:    string(code),
	})
}

// respondWithServiceError maps a service error to its HTTP status. Causes are logged,
// never returned.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logger.WithError(err).WithField("path", r.URL.Path).Error("Unhandled error")
		respondWithError(w, http.StatusInternalServerError, service.CodeUpstreamFailure, "Internal server error")
		return
	}
	if svcErr.Err != nil {
		logger.WithError(svcErr.Err).WithFields(logrus.Fields{
			"path": r.URL.Path,
			"code": svcErr.Code,
		}).Warn("Request failed")
	}
	respondWithError(w, statusFor(svcErr.Code), svcErr.Code, svcErr.Message)
}

func statusFor(code service.Code) int {
	switch code {
	case service.CodeValidation, service.CodeInvalidOrExpired:
		return http.StatusBadRequest
	case service.CodeNotFound, service.CodeNotRequested:
		return http.StatusNotFound
	case service.CodeAlreadyExists:
		return http.StatusOK
	case service.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
