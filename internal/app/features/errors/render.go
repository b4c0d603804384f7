// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ServerErrorMessage is shown for every failure that is not an *Error.
const ServerErrorMessage = "A server error occurred."

// Envelope is the common response shape. Success responses embed it next
// to their payload.
type Envelope struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// OK is the envelope of a successful response.
func OK() Envelope { return Envelope{Success: true} }

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteOK writes a successful response. v is usually a struct embedding
// Envelope; nil writes the bare {"success":true}.
func WriteOK(w http.ResponseWriter, v any) {
	if v == nil {
		v = OK()
	}
	WriteJSON(w, http.StatusOK, v)
}

// ErrorLogger renders handler errors and logs the ones the client must not see.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: log}
}

// Write renders err. Client-facing errors become a failure envelope with
// HTTP 200; anything else is logged and becomes a 500.
func (l *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if stderrors.As(err, &e) && e.Kind != KindInternal {
		l.log.Debug("request rejected",
			zap.String("kind", string(e.Kind)),
			zap.String("message", e.Message),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())))
		WriteJSON(w, http.StatusOK, Envelope{Error: e.Message, Errors: e.Errors})
		return
	}
	l.LogServerError(w, r, "request failed", err)
}

// LogServerError logs err and writes the generic 500 envelope.
func (l *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	l.log.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())))
	WriteJSON(w, http.StatusInternalServerError, Envelope{Error: ServerErrorMessage})
}
