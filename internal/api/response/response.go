package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/calegray/codedock/internal/domain"
)

// Response represents a standard API response
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	json.NewEncoder(w).Encode(resp)
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, message any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: false,
		Error:   message,
	}

	json.NewEncoder(w).Encode(resp)
}

// FromError maps a domain error to its HTTP shape. Auth failures stay
// indistinguishable from one another; storage internals never leak.
func FromError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		Error(w, http.StatusBadRequest, map[string]string{verr.Field: verr.Reason})
		return
	}
	var cerr *domain.ConflictError
	if errors.As(err, &cerr) {
		Error(w, http.StatusConflict, cerr.Reason)
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		Error(w, http.StatusNotFound, "not found")
		return
	}
	if errors.Is(err, domain.ErrAuth) {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var perr *domain.ProvisionError
	if errors.As(err, &perr) {
		if perr.Retryable {
			Error(w, http.StatusServiceUnavailable, "sandbox provisioning unavailable, retry later")
			return
		}
		Error(w, http.StatusBadGateway, "sandbox provisioning failed")
		return
	}
	Error(w, http.StatusInternalServerError, "internal error")
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends a 201 Created response with data
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with data
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message any) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message any) {
	Error(w, http.StatusUnauthorized, message)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, message any) {
	Error(w, http.StatusNotFound, message)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter, message any) {
	Error(w, http.StatusInternalServerError, message)
}
