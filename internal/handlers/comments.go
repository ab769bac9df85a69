package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"inkroll/internal/identity"
	"inkroll/internal/trust"
)

// VoteRequest is the JSON body of a vote submission.
type VoteRequest struct {
	Value int `json:"value"`
}

// HandleVote handles POST /api/comments/{source}/{id}/votes.
// Value -1/+1 upserts the caller's vote, 0 retracts it. The response carries
// the fresh score and visibility so the client can update in place.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	ref, ok := commentRef(w, r)
	if !ok {
		return
	}

	var req VoteRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "invalid JSON body"))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "invalid form data"))
			return
		}
		v, err := strconv.Atoi(r.FormValue("value"))
		if err != nil {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "vote value must be an integer"))
			return
		}
		req.Value = v
	}

	receipt, err := h.engine.CastVote(r.Context(), ref, identity.UserIDFrom(r.Context()), req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ReportRequest is the JSON body of a report submission.
type ReportRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

// MaxReportDetailsLength bounds the free-text detail field.
const MaxReportDetailsLength = 500

// HandleReport handles POST /api/comments/{source}/{id}/reports.
// Duplicate submissions while an earlier report from the same caller is
// still open return success, so the endpoint never reveals whether a
// comment was already reported.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ref, ok := commentRef(w, r)
	if !ok {
		return
	}

	var req ReportRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "invalid JSON body"))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, trust.Errorf(trust.KindInvalidArgument, "invalid form data"))
			return
		}
		req.Reason = r.FormValue("reason")
		req.Details = r.FormValue("details")
	}

	reason, err := trust.ParseReason(req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	details := req.Details
	if len(details) > MaxReportDetailsLength {
		details = details[:MaxReportDetailsLength]
	}

	receipt, err := h.engine.SubmitReport(r.Context(), ref, identity.UserIDFrom(r.Context()), reason, details)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
