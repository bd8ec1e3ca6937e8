package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ggufchat/internal/chat"
	"ggufchat/internal/manager"
	"ggufchat/internal/sessionstore"
	"ggufchat/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeErrorResponse(w, types.ErrorResponse{Error: msg, Code: status})
}

func writeErrorResponse(w http.ResponseWriter, resp types.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeError maps err to a status code and writes it.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	writeErrorResponse(w, types.ErrorResponse{Error: err.Error(), Code: status, Hint: manager.EngineHint(err)})
	return status
}

// statusFor maps well-known errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case manager.IsNotFound(err), sessionstore.IsNotFound(err):
		return http.StatusNotFound
	case manager.IsInvalidFormat(err), manager.IsValidation(err),
		sessionstore.IsCorrupt(err), sessionstore.IsValidation(err),
		errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	case sessionstore.IsTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case manager.IsNoModelLoaded(err):
		return http.StatusConflict
	case manager.IsEngineFailure(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &he):
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
