// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hylla/taskdash/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	tables  common.TableDataService
	configs common.ScreenConfigService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ScreenConfigBody carries one raw screen config payload over HTTP.
type ScreenConfigBody struct {
	Data string `json:"data"`
}

// NewHandler constructs one HTTP API adapter from table-data and optional screen-config services.
func NewHandler(tables common.TableDataService, configs common.ScreenConfigService) *Handler {
	return &Handler{
		tables:  tables,
		configs: configs,
	}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments, ok := splitPath(r.URL.EscapedPath())
	if !ok {
		writeNotFound(w)
		return
	}
	switch {
	case len(segments) == 1 && segments[0] == "screen-config":
		switch r.Method {
		case http.MethodGet:
			h.handleGetScreenConfig(w, r)
		case http.MethodPut:
			h.handlePutScreenConfig(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPut)
		}
	case len(segments) == 2 && segments[0] == "tabledata":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleFetchSection(w, r, segments[1])
	case len(segments) == 2 && segments[0] == "tasks-by-group":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleFetchGroup(w, r, segments[1])
	case len(segments) == 4 && segments[0] == "work-items" && segments[2] == "actions":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleApplyAction(w, r, segments[1], segments[3])
	default:
		writeNotFound(w)
	}
}

// handleFetchSection serves GET `/tabledata/{key}`.
func (h *Handler) handleFetchSection(w http.ResponseWriter, r *http.Request, key string) {
	if h.tables == nil {
		writeUnavailable(w, "table data service is not configured")
		return
	}
	resp, err := h.tables.FetchSection(r.Context(), common.FetchSectionRequest{Key: key})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFetchGroup serves GET `/tasks-by-group/{group}`.
func (h *Handler) handleFetchGroup(w http.ResponseWriter, r *http.Request, group string) {
	if h.tables == nil {
		writeUnavailable(w, "table data service is not configured")
		return
	}
	resp, err := h.tables.FetchGroup(r.Context(), common.FetchGroupRequest{Group: group})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleApplyAction serves POST `/work-items/{id}/actions/{action}`.
func (h *Handler) handleApplyAction(w http.ResponseWriter, r *http.Request, id, action string) {
	if h.tables == nil {
		writeUnavailable(w, "table data service is not configured")
		return
	}
	res, err := h.tables.ApplyAction(r.Context(), common.ApplyActionRequest{
		WorkItemID: id,
		Action:     action,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetScreenConfig serves GET `/screen-config`.
func (h *Handler) handleGetScreenConfig(w http.ResponseWriter, r *http.Request) {
	if h.configs == nil {
		writeJSONError(w, http.StatusNotImplemented, APIError{
			Code:    "not_implemented",
			Message: "screen config APIs are not available",
		})
		return
	}
	raw, err := h.configs.GetScreenConfig(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScreenConfigBody{Data: raw})
}

// handlePutScreenConfig serves PUT `/screen-config`.
func (h *Handler) handlePutScreenConfig(w http.ResponseWriter, r *http.Request) {
	if h.configs == nil {
		writeJSONError(w, http.StatusNotImplemented, APIError{
			Code:    "not_implemented",
			Message: "screen config APIs are not available",
		})
		return
	}
	var body ScreenConfigBody
	if err := decodeJSONBody(r.Context(), w, r, &body); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.configs.SaveScreenConfig(r.Context(), body.Data); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// splitPath breaks one escaped request path into unescaped, non-empty segments.
func splitPath(escaped string) ([]string, bool) {
	trimmed := normalizePath(escaped)
	if trimmed == "" {
		return nil, false
	}
	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		seg, err := url.PathUnescape(part)
		if err != nil {
			return nil, false
		}
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return nil, false
		}
		out = append(out, seg)
	}
	return out, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrConflict):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "invalid_transition",
			Message: err.Error(),
			Hint:    "Reload the row to see which actions its current status allows.",
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrUnavailable):
		writeUnavailable(w, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeNotFound writes the structured 404 for unmatched routes.
func writeNotFound(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotFound, APIError{
		Code:    "not_found",
		Message: "endpoint not found",
	})
}

// writeUnavailable writes a structured 503 response.
func writeUnavailable(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusServiceUnavailable, APIError{
		Code:    "service_unavailable",
		Message: message,
	})
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
