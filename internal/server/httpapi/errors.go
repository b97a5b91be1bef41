package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/weddingtma/internal/common"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	kind    error
	status  int
	code    string
	message string
}

// Order matters: the first matching kind wins.
var errorMappings = []errorMapping{
	{common.ErrSignatureInvalid, http.StatusUnauthorized, "invalid_signature", "Invalid Telegram data"},
	{common.ErrTokenExpired, http.StatusUnauthorized, "token_expired", "Session expired"},
	{common.ErrInvalidToken, http.StatusUnauthorized, "unauthorized", "Unauthorized"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "unauthorized", "Unauthorized"},
	{common.ErrMalformedIdentity, http.StatusBadRequest, "malformed_identity", "No user data in initData"},
	{common.ErrInvalidID, http.StatusBadRequest, "invalid_id", "Invalid ID"},
	{common.ErrValidation, http.StatusBadRequest, "validation_failed", "Invalid request"},
	{common.ErrCapacityExceeded, http.StatusBadRequest, "capacity_exceeded", "Capacity exceeded"},
	{common.ErrForbidden, http.StatusForbidden, "forbidden", "Forbidden"},
	{common.ErrorNotFound, http.StatusNotFound, "not_found", "Not found"},
	{common.ErrConflictState, http.StatusConflict, "conflict", "Conflict"},
	{common.ErrStorageProvider, http.StatusBadGateway, "storage_error", "Storage provider failure"},
}

// classify maps err to a status code and body. User-facing text comes from
// a *common.Error when present; internal detail is never echoed.
func classify(err error) (int, ErrorBody) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		body := ErrorBody{Code: m.code, Message: m.message}
		var ce *common.Error
		if errors.As(err, &ce) && ce.Message != "" {
			body.Message = ce.Message
		}
		return m.status, body
	}
	return http.StatusInternalServerError, ErrorBody{Code: "internal", Message: "Internal server error"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}
