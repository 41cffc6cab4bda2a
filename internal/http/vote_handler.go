package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"livepoll/internal/domain/identity"
	"livepoll/internal/metrics"
	"livepoll/internal/platform/apperr"
)

type voteRequest struct {
	OptionID string `json:"optionId"`
}

type verifiedVoteRequest struct {
	OptionID string `json:"optionId"`
	Email    string `json:"email"`
	Code     string `json:"code"`
}

type changeVoteRequest struct {
	NewOptionID string `json:"newOptionId"`
	Email       string `json:"email"`
}

type retractVoteRequest struct {
	Email string `json:"email"`
}

// @Summary     Cast an anonymous vote
// @Tags        votes
// @Accept      json
// @Produce     json
// @Param       id       path      string       true  "Poll ID"
// @Param       request  body      voteRequest  true  "Vote payload"
// @Success     200      {object}  map[string]any
// @Failure     400      {object}  map[string]string  "invalid option"
// @Failure     403      {object}  map[string]string  "already voted"
// @Failure     404      {object}  map[string]string  "poll not found"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Router      /api/polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.OptionID == "" {
		errorResponse(w, apperr.BadRequest("invalid_input", "option id is required", nil))
		return
	}

	res, err := h.engine.CastAnonymous(r.Context(), chi.URLParam(r, "id"), req.OptionID, identity.FromRequest(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	metrics.IncVote("cast")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"verified": false,
		"option":   res,
	})
}

// @Summary     Cast an email-verified vote
// @Tags        votes
// @Accept      json
// @Produce     json
// @Param       id       path      string               true  "Poll ID"
// @Param       request  body      verifiedVoteRequest  true  "Vote payload"
// @Success     200      {object}  map[string]any
// @Failure     400      {object}  map[string]string  "missing fields or invalid code"
// @Failure     403      {object}  map[string]string  "already voted"
// @Failure     404      {object}  map[string]string  "poll not found"
// @Router      /api/polls/{id}/vote-verified [post]
func (h *Handler) handleVoteVerified(w http.ResponseWriter, r *http.Request) {
	var req verifiedVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.OptionID == "" || req.Email == "" || req.Code == "" {
		errorResponse(w, apperr.BadRequest("invalid_input", "option id, email, and verification code are required", nil))
		return
	}

	res, err := h.engine.CastVerified(r.Context(), chi.URLParam(r, "id"), req.OptionID, req.Email, req.Code, identity.FromRequest(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	metrics.IncVote("cast")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"verified": true,
		"option":   res,
	})
}

// @Summary     Move an existing vote to another option
// @Tags        votes
// @Accept      json
// @Param       id       path      string             true  "Poll ID"
// @Param       request  body      changeVoteRequest  true  "New option"
// @Success     200      {object}  map[string]any
// @Failure     400      {object}  map[string]string  "invalid or same option"
// @Failure     404      {object}  map[string]string  "no existing vote"
// @Router      /api/polls/{id}/vote [put]
func (h *Handler) handleChangeVote(w http.ResponseWriter, r *http.Request) {
	var req changeVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.NewOptionID == "" {
		errorResponse(w, apperr.BadRequest("invalid_input", "new option id is required", nil))
		return
	}

	if err := h.engine.Change(r.Context(), chi.URLParam(r, "id"), req.NewOptionID, req.Email, identity.FromRequest(r)); err != nil {
		errorResponse(w, err)
		return
	}

	metrics.IncVote("change")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Vote updated successfully",
	})
}

func (h *Handler) handleRetractVote(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an absent or empty one means locate by identity.
	var req retractVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.engine.Retract(r.Context(), chi.URLParam(r, "id"), req.Email, identity.FromRequest(r)); err != nil {
		errorResponse(w, err)
		return
	}

	metrics.IncVote("retract")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Vote removed successfully",
	})
}

func (h *Handler) handleCheckVote(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.CheckStatus(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("email"), identity.FromRequest(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	if !status.HasVoted {
		writeJSON(w, http.StatusOK, map[string]any{"hasVoted": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hasVoted":      true,
		"votedOptionId": status.OptionID,
		"verified":      status.Verified,
	})
}
