package api

import (
	"database/sql"
	"errors"
	"net/http"

	"livepoll/internal/domain/poll"
	"livepoll/internal/domain/verification"
	"livepoll/internal/domain/vote"
	"livepoll/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	body := map[string]any{
		"error":   appErr.Code,
		"message": appErr.Message,
	}
	// Hint flags the frontend keys on.
	switch appErr.Code {
	case "already_voted":
		body["alreadyVoted"] = true
	case "code_invalid":
		body["codeInvalid"] = true
	case "no_vote":
		body["hasVoted"] = false
	}
	writeJSON(w, appErr.StatusCode(), body)
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)
	case errors.Is(err, poll.ErrNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrInvalidInput):
		return apperr.BadRequest("invalid_input", err.Error(), err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.Forbidden("already_voted", "you have already voted in this poll", err)
	case errors.Is(err, vote.ErrInvalidOption):
		return apperr.BadRequest("invalid_option", "invalid option id", err)
	case errors.Is(err, vote.ErrSameOption):
		return apperr.BadRequest("same_option", "you have already voted for this option", err)
	case errors.Is(err, vote.ErrNoVoteFound):
		return apperr.NotFound("no_vote", "no existing vote found", err)
	case errors.Is(err, verification.ErrInvalidEmail):
		return apperr.BadRequest("invalid_email", "valid email is required", err)
	case errors.Is(err, verification.ErrAlreadyVoted):
		return apperr.Forbidden("already_voted", "this email has already voted in this poll", err)
	case errors.Is(err, verification.ErrCodeInvalid):
		return apperr.BadRequest("code_invalid", "invalid or expired verification code", err)
	case errors.Is(err, verification.ErrDeliveryFailed):
		return apperr.Internal("send_failed", "failed to send verification code", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
