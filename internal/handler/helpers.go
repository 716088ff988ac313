package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// Error codes for failures that are not device bridge failures.
const (
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeUnauthorized = "UNAUTHORIZED"
	codePersistence  = "PERSISTENCE_ERROR"
	codeRemote       = "REMOTE_ERROR"
	codeTimeout      = "TIMEOUT"
	codeBadRequest   = "BAD_REQUEST"
	codeInternal     = "INTERNAL_ERROR"
)

type errorResponse struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error"`
	Code     string   `json:"code"`
	Messages []string `json:"messages,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, domain.Envelope{Success: true, Data: data})
}

func writeResult[T any](w http.ResponseWriter, status int, res *domain.Result[T]) {
	writeJSON(w, status, domain.Envelope{
		Success: true,
		Data:    res.Data,
		Source:  res.Source,
		Message: res.Message,
	})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func parsePagination(r *http.Request, defaultLimit, maxLimit int) (page, limit int) {
	page = 1
	limit = defaultLimit
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = min(l, maxLimit)
		}
	}
	return
}

// parseDateParam reads an RFC 3339 or YYYY-MM-DD query parameter.
// A missing parameter yields the zero time.
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, &domain.ErrValidation{Messages: []string{name + " must be an RFC 3339 timestamp or YYYY-MM-DD date"}}
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var notFound *domain.ErrNotFound
	var bridge *domain.ErrBridge
	var unauthorized *domain.ErrUnauthorized
	var persistence *domain.ErrPersistence
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.Strings("messages", validation.Messages))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:    "validation failed",
			Code:     codeValidation,
			Messages: validation.Messages,
		})
	case errors.As(err, &bridge):
		status := http.StatusBadGateway
		switch bridge.Code {
		case domain.CodeCalendarPermission:
			status = http.StatusForbidden
		case domain.CodeCalendarEventNotFound:
			status = http.StatusNotFound
		}
		logger.Warn("device bridge error", zap.String("code", bridge.Code), zap.Error(err))
		writeError(w, status, bridge.Code, bridge.Message)
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
	case errors.As(err, &persistence):
		logger.Error("local store failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codePersistence, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, codeTimeout, err.Error())
	case errors.As(err, &external):
		logger.Error("remote service failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, codeRemote, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
