package authapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
)

// StatusError is a non-2xx response from the auth service.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server's detail/message/error field, or the status text.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Class names the error for metric tags, e.g. "status_401".
func (e *StatusError) Class() string { return fmt.Sprintf("status_%d", e.StatusCode) }

// Code maps the status onto an application error code.
func (e *StatusError) Code() apperrors.ErrorCode {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return apperrors.ErrCodeUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return apperrors.ErrCodeNotFound
	case e.StatusCode == http.StatusConflict:
		return apperrors.ErrCodeConflict
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.ErrCodeValidation
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusGatewayTimeout:
		return apperrors.ErrCodeTimeout
	case e.StatusCode >= 500:
		return apperrors.ErrCodeUnavailable
	default:
		return apperrors.ErrCodeInternal
	}
}

func newStatusError(req *http.Request, status int, body []byte) *StatusError {
	return &StatusError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: status,
		Message:    serverMessage(status, body),
	}
}

// serverMessage pulls a human-readable reason out of common error bodies:
// {"detail": "..."}, {"message": "..."}, {"error": "..."} or
// FastAPI-style {"detail": [{"msg": "..."}]}.
func serverMessage(status int, body []byte) string {
	var doc map[string]any
	if json.Unmarshal(body, &doc) == nil {
		for _, key := range []string{"detail", "message", "error"} {
			switch v := doc[key].(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" {
					return s
				}
			case []any:
				if len(v) > 0 {
					if m, ok := v[0].(map[string]any); ok {
						if msg, ok := m["msg"].(string); ok && msg != "" {
							return msg
						}
					}
				}
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "unexpected status"
}
