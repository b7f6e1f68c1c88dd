package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"pazzo-admin/pkg/apierror"
)

// Response represents the standard envelope for twin admin endpoints.
// Collection endpoints write bare JSON instead, see Raw.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON sends an enveloped JSON response with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	Raw(w, statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// Raw sends v as the JSON body without an envelope.
func Raw(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// Message sends {"success": true, "message": msg}.
func Message(w http.ResponseWriter, statusCode int, msg string) {
	Raw(w, statusCode, Response{
		Success: true,
		Message: msg,
	})
}

// Error sends an error response.
func Error(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierror.InternalError("an unexpected error occurred")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	w.Write(apiErr.ToJSON())
}

// NoContent sends a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends a 201 Created response with the created resource.
func Created(w http.ResponseWriter, data interface{}) {
	Raw(w, http.StatusCreated, data)
}

// OK sends a 200 OK enveloped response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}
