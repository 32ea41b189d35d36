// Package httpx holds the JSON reply helpers shared by every handler.
package httpx

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request ID on responses
const RequestIDHeader = "X-Request-Id"

// NewRequestID generates a request ID and sets it on the response headers
func NewRequestID(w http.ResponseWriter) string {
	id := uuid.NewString()
	w.Header().Set(RequestIDHeader, id)
	return id
}

// RespondJSON writes a JSON response with the given status code and data.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// ErrorResponse is the body of every error reply, over HTTP and websocket.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse builds an error body for status
func NewErrorResponse(status int, message string) ErrorResponse {
	return ErrorResponse{Error: http.StatusText(status), Message: message}
}

// RespondError writes err as an error response. The request ID, when one was
// issued for this response, is echoed in the body.
func RespondError(w http.ResponseWriter, status int, err error) {
	RespondErrorString(w, status, err.Error())
}

// RespondErrorString writes an error response with the given status code and message.
func RespondErrorString(w http.ResponseWriter, status int, message string) {
	body := NewErrorResponse(status, message)
	body.RequestID = w.Header().Get(RequestIDHeader)
	RespondJSON(w, status, body)
}
