package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes an error response
func Error(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, ErrorBody{Error: message})
}

// Created writes the acknowledgement of a stored write
func Created(w http.ResponseWriter) {
	JSON(w, http.StatusCreated, WriteResult{Success: true})
}

// Failure writes a rejected write
func Failure(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, WriteResult{Success: false, Error: message})
}

// ErrorBody is the body of a rejected read
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteResult is the body of every write response
type WriteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
