package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	customError "github.com/segyhp/loanbook/pkg/errors"
)

// Envelope is the body of every API response. Data is set on success; Error
// carries the machine-readable code and Message the human one on failure.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// JSON sends data with statusCode; success follows the status class.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Envelope{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends a failure envelope. err's text is sent to the client, so only
// pass errors that are safe to show.
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	body := Envelope{Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	write(w, statusCode, body)
}

// FromError maps err to its status code. The error field carries the
// BusinessError code; internal details never leave the process.
func FromError(w http.ResponseWriter, err error) {
	code := "INTERNAL_ERROR"
	var be *customError.BusinessError
	if errors.As(err, &be) {
		code = be.Code
	}

	write(w, customError.HTTPStatus(err), Envelope{
		Error:   code,
		Message: customError.PublicMessage(err),
	})
}

// NotFound sends a 404 with message
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, nil)
}

// InternalServerError sends a 500 with message
func InternalServerError(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusInternalServerError, message, err)
}

// MethodNotAllowed sends a 405 response
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, "method not allowed", nil)
}

func write(w http.ResponseWriter, statusCode int, body Envelope) {
	body.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("error encoding JSON response", "error", err)
	}
}

// CORSMiddleware allows any origin to call the API and answers preflight.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		// Preflight never reaches the router.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			level := slog.LevelInfo
			if sw.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", time.Since(started)),
			)
		})
	}
}

// RecoverMiddleware turns a handler panic into a 500 and logs the value.
func RecoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "handler panic",
						"method", r.Method,
						"path", r.URL.Path,
						"panic", rec,
					)
					InternalServerError(w, "internal server error", nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// statusWriter remembers the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}
