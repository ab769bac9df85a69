// Package handlers contains the thin HTTP layer over the trust engine.
// Handlers validate transport concerns and translate engine errors; all
// moderation semantics live in internal/trust.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"inkroll/internal/trust"
)

// Handler contains all HTTP handler methods and their dependencies.
// Dependencies are injected via the constructor for better testability.
type Handler struct {
	engine     *trust.Engine
	controller *trust.Controller
}

// NewHandler creates a new Handler with all required dependencies.
func NewHandler(engine *trust.Engine, controller *trust.Controller) *Handler {
	return &Handler{
		engine:     engine,
		controller: controller,
	}
}

// commentRef parses the {source}/{id} path segments into a CommentRef.
// Returns false after writing the error response when the ref is invalid.
func commentRef(w http.ResponseWriter, r *http.Request) (trust.CommentRef, bool) {
	source, err := trust.ParseSource(r.PathValue("source"))
	if err != nil {
		writeError(w, err)
		return trust.CommentRef{}, false
	}
	ref := trust.CommentRef{Source: source, ID: r.PathValue("id")}
	if err := ref.Validate(); err != nil {
		writeError(w, err)
		return trust.CommentRef{}, false
	}
	return ref, true
}

// errorResponse is the structured error shape returned to callers.
type errorResponse struct {
	OK      bool   `json:"ok"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// okResponse acknowledges a moderation action.
type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("handlers: failed to encode response")
	}
}

// writeError maps an engine error kind to an HTTP status and writes the
// structured error body.
func writeError(w http.ResponseWriter, err error) {
	kind := trust.KindOf(err)
	status := statusForKind(kind)

	msg := err.Error()
	if kind == trust.KindInternal {
		// Don't leak storage details to callers.
		log.Error().Err(err).Msg("handlers: internal error")
		msg = "internal error"
	}

	writeJSON(w, status, errorResponse{OK: false, Kind: string(kind), Message: msg})
}

func statusForKind(kind trust.Kind) int {
	switch kind {
	case trust.KindUnauthorized:
		return http.StatusUnauthorized
	case trust.KindForbidden:
		return http.StatusForbidden
	case trust.KindNotFound:
		return http.StatusNotFound
	case trust.KindInvalidArgument:
		return http.StatusBadRequest
	case trust.KindConflict:
		return http.StatusConflict
	case trust.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
