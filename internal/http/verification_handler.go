package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"livepoll/internal/platform/apperr"
)

type requestVerificationRequest struct {
	Email string `json:"email"`
}

// @Summary     Request an email verification code
// @Tags        verification
// @Accept      json
// @Produce     json
// @Param       id       path      string                      true  "Poll ID"
// @Param       request  body      requestVerificationRequest  true  "Email"
// @Success     200      {object}  map[string]any
// @Failure     400      {object}  map[string]string  "invalid email"
// @Failure     403      {object}  map[string]string  "email already voted"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Failure     500      {object}  map[string]string  "delivery failure"
// @Router      /api/polls/{id}/request-verification [post]
func (h *Handler) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	var req requestVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.codeSvc.RequestCode(r.Context(), chi.URLParam(r, "id"), req.Email); err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Verification code sent",
	})
}
