package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"user-auth-service/internal/auth"
	"user-auth-service/internal/security"
	"user-auth-service/internal/session/registry"
	userdomain "user-auth-service/internal/user/domain"
)

// errorBody is the JSON error envelope. Code is a stable machine-readable
// reason; detail is for humans.
type errorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Detail: detail}})
}

// writeServiceError maps auth service errors onto HTTP statuses and stable
// codes. Unknown errors are store failures: logged and surfaced as 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}
	if d, ok := userdomain.IsDuplicate(err); ok {
		writeError(w, http.StatusConflict, "duplicate_identity", d.Error())
		return
	}
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, security.ErrTokenMalformed):
		writeError(w, http.StatusUnauthorized, "token_malformed", "token is malformed")
	case errors.Is(err, security.ErrTokenBadSignature):
		writeError(w, http.StatusUnauthorized, "token_bad_signature", "token signature is invalid")
	case errors.Is(err, security.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token_expired", "token has expired")
	case errors.Is(err, auth.ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, "token_revoked", "token has been revoked")
	case errors.Is(err, registry.ErrMissingMetadata):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
