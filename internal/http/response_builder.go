// Package http provides the JSON API server and its handlers.
package http

import (
	"encoding/json"
	"net/http"
)

// Error messages returned in {"error": ...} bodies.
const (
	msgInvalidDate     = "Invalid date format. Use YYYY-MM-DD."
	msgInvalidID       = "Invalid identifier."
	msgInvalidBody     = "Invalid request body."
	msgNotFound        = "Transaction not found."
	msgBodyTooLarge    = "Request body too large."
	msgTooManyRequests = "Too many requests. Please try again later."
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Payload sets the value encoded as the response body.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) error {
	body, err := json.Marshal(b.payload)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return err
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, err = w.Write(append(body, '\n'))
	return err
}

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	Status      string `json:"status"`
	Transaction any    `json:"transaction,omitempty"`
}

// ErrorResponse builds an {"error": message} body.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Payload(errorBody{Error: message})
}

// SuccessResponse builds a {"status": "success"} body, with the transaction
// when one is given.
func SuccessResponse(transaction any) *JSONResponseBuilder {
	return NewJSONResponse().Payload(successBody{Status: "success", Transaction: transaction})
}
