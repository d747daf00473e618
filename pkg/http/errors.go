package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"` // Human-readable message
	Code    string `json:"code"`  // Machine-readable error code
}

// APIError is a terminal HTTP failure: a status plus the body to send.
// Callers that receive one return it to the client unchanged.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// Write renders the error as a JSON response.
func (e *APIError) Write(w http.ResponseWriter) {
	WriteError(w, e.Status, e.Code, e.Message)
}

func NewBadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "bad_request", Message: message}
}

func NewUnauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: message}
}

func NewForbidden(message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: "forbidden", Message: message}
}

func NewNotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: "not_found", Message: message}
}

func NewTooManyRequests(message string) *APIError {
	return &APIError{Status: http.StatusTooManyRequests, Code: "rate_limit_exceeded", Message: message}
}

// NewInternal never carries detail; log the cause before returning it.
func NewInternal() *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Internal server error"}
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Success: false,
		Error:   message,
		Code:    errorCode,
	}

	// Encoding errors are not reported to the client
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes a JSON success body.
func WriteJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	NewBadRequest(message).Write(w)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	NewUnauthorized(message).Write(w)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	NewForbidden(message).Write(w)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	NewNotFound(message).Write(w)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	NewTooManyRequests(message).Write(w)
}

func WriteInternalError(w http.ResponseWriter) {
	NewInternal().Write(w)
}
