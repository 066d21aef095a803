package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"taskhub.org/internal/auth"
	"taskhub.org/internal/obs"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// writeError maps err to a status and a client-safe message. Unknown errors
// are logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeErrorCode(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, auth.ErrUnauthorized):
		writeErrorCode(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeErrorCode(w, r, http.StatusForbidden, "forbidden", "insufficient permissions")
	case errors.Is(err, auth.ErrNotFound):
		writeErrorCode(w, r, http.StatusNotFound, "not_found", detail(err, auth.ErrNotFound, "resource not found"))
	case errors.Is(err, auth.ErrConflict):
		writeErrorCode(w, r, http.StatusConflict, "conflict", detail(err, auth.ErrConflict, "resource already exists"))
	case errors.Is(err, auth.ErrInvalidInput):
		writeErrorCode(w, r, http.StatusBadRequest, "invalid_input", detail(err, auth.ErrInvalidInput, "invalid input"))
	default:
		obs.Logger().ErrorContext(r.Context(), "request failed",
			slog.String("path", obs.CanonicalPath(r)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		writeErrorCode(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// detail returns the text wrapped after kind, as in fmt.Errorf("%w: text", kind).
func detail(err, kind error, fallback string) string {
	msg := err.Error()
	prefix := kind.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		if text := msg[i+len(prefix):]; text != "" {
			return text
		}
	}
	return fallback
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", auth.ErrInvalidInput)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body too large", auth.ErrInvalidInput)
		default:
			return fmt.Errorf("%w: malformed JSON body", auth.ErrInvalidInput)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", auth.ErrInvalidInput)
	}
	return nil
}
