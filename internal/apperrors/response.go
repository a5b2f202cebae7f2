package apperrors

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope wrapping every API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error part of a failed response
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Body converts the error into its envelope representation
func (e *Error) Body() *ErrorBody {
	return &ErrorBody{Code: e.Code, Message: e.Message, Details: e.Details}
}

// WriteSuccess writes a success envelope carrying data
func WriteSuccess(w http.ResponseWriter, status int, data any) error {
	return writeJSON(w, status, Response{Success: true, Data: data})
}

// WriteError writes the failure envelope of err with its mapped status
func WriteError(w http.ResponseWriter, err *Error) error {
	return writeJSON(w, err.Status(), Response{Success: false, Error: err.Body()})
}

func writeJSON(w http.ResponseWriter, status int, resp Response) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(resp)
}
