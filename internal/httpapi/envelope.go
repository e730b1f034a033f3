// Package httpapi implements the HTTP surface from spec.md §6: a
// httprouter-based router wrapping every engine behind the documented
// response envelope, grounded on the teacher's api/api_public_blockchain.go
// style of thin per-route handler functions over a shared backend struct,
// and on the teacher's go.mod dependencies on julienschmidt/httprouter and
// rs/cors.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger(log.HTTPAPI)

type successEnvelope struct {
	Success bool `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type errorEnvelope struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Data       any       `json:"data"`
	StatusCode int       `json:"statusCode"`
	Timestamp  time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorw("failed to encode response body", "err", err)
	}
}

// writeData writes the success envelope with the given status and data.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

// writeMessage writes the success envelope with a message and data.
func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Message: message, Data: data})
}

// writeErr translates err into the error envelope, using the domain error's
// Kind to choose a status code, per spec.md §7's propagation policy.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	if e, ok := apperr.As(err); ok {
		status = e.Kind.HTTPStatus()
		message = e.Error()
	} else if err != nil {
		message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "err", err)
	}
	writeJSON(w, status, errorEnvelope{
		Success:    false,
		Message:    message,
		Data:       nil,
		StatusCode: status,
		Timestamp:  time.Now(),
	})
}
