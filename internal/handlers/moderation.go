package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"inkroll/internal/identity"
	"inkroll/internal/trust"
)

// acceptRequest is the JSON body of a report acceptance.
type acceptRequest struct {
	Hide bool `json:"hide"`
}

// HandleAcceptReport handles POST /api/mod/reports/{id}/accept.
func (h *Handler) HandleAcceptReport(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "invalid JSON body"))
			return
		}
	}

	err := h.controller.AcceptReport(r.Context(), identity.UserIDFrom(r.Context()), r.PathValue("id"), req.Hide)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandleRejectReport handles POST /api/mod/reports/{id}/reject.
func (h *Handler) HandleRejectReport(w http.ResponseWriter, r *http.Request) {
	err := h.controller.RejectReport(r.Context(), identity.UserIDFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandleDeleteComment handles DELETE /api/mod/comments/{source}/{id}.
// The delete cascades to direct replies and resolves their open reports.
func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	ref, ok := commentRef(w, r)
	if !ok {
		return
	}
	if err := h.controller.DeleteComment(r.Context(), identity.UserIDFrom(r.Context()), ref); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandlePardon handles POST /api/mod/comments/{source}/{id}/pardon.
func (h *Handler) HandlePardon(w http.ResponseWriter, r *http.Request) {
	ref, ok := commentRef(w, r)
	if !ok {
		return
	}
	if err := h.controller.Pardon(r.Context(), identity.UserIDFrom(r.Context()), ref); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// whitelistRequest is the JSON body of a whitelist action. IsWhitelisted
// defaults to true; the pin direction is included for completeness.
type whitelistRequest struct {
	IsWhitelisted *bool `json:"is_whitelisted,omitempty"`
}

// HandleWhitelist handles POST /api/mod/comments/{source}/{id}/whitelist.
func (h *Handler) HandleWhitelist(w http.ResponseWriter, r *http.Request) {
	ref, ok := commentRef(w, r)
	if !ok {
		return
	}

	whitelisted := true
	if isJSONRequest(r) {
		var req whitelistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "invalid JSON body"))
			return
		}
		if req.IsWhitelisted != nil {
			whitelisted = *req.IsWhitelisted
		}
	}

	if err := h.controller.Whitelist(r.Context(), identity.UserIDFrom(r.Context()), ref, whitelisted); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// pinRequest is the JSON body of a pin action.
type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// HandlePin handles POST /api/mod/comments/{source}/{id}/pin.
func (h *Handler) HandlePin(w http.ResponseWriter, r *http.Request) {
	ref, ok := commentRef(w, r)
	if !ok {
		return
	}

	req := pinRequest{Pinned: true}
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "invalid JSON body"))
			return
		}
	}

	if err := h.controller.SetPinned(r.Context(), identity.UserIDFrom(r.Context()), ref, req.Pinned); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandlePendingReports handles GET /api/mod/reports.
func (h *Handler) HandlePendingReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.controller.PendingReports(r.Context(), identity.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if reports == nil {
		reports = []trust.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// HandleOverrides handles GET /api/mod/overrides?refs=source/id,source/id.
func (h *Handler) HandleOverrides(w http.ResponseWriter, r *http.Request) {
	var refs []trust.CommentRef
	if raw := r.URL.Query().Get("refs"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			source, id, found := strings.Cut(part, "/")
			if !found {
				writeError(w, trust.Errorf(trust.KindInvalidArgument, "malformed comment ref: %q", part))
				return
			}
			src, err := trust.ParseSource(source)
			if err != nil {
				writeError(w, err)
				return
			}
			refs = append(refs, trust.CommentRef{Source: src, ID: id})
		}
	}

	overrides, err := h.controller.Overrides(r.Context(), identity.UserIDFrom(r.Context()), refs)
	if err != nil {
		writeError(w, err)
		return
	}

	// Keyed by the ref's string form for a stable JSON shape.
	out := make(map[string]trust.Override, len(overrides))
	for ref, ov := range overrides {
		out[ref.String()] = ov
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAuditLog handles GET /api/mod/audit?limit=N. Admin only.
func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.controller.AuditLog(r.Context(), identity.UserIDFrom(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []trust.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
