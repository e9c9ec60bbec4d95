package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/poll"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/vote"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
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
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrInvalidPoll):
		return apperr.BadRequest("invalid_poll", "poll must have a title and at least 2 options", err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.BadRequest("already_voted", "You already voted on this poll", err)
	case errors.Is(err, vote.ErrOptionNotInPoll):
		return apperr.BadRequest("invalid_option", "option does not belong to poll", err)
	case errors.Is(err, vote.ErrVoteConflict):
		return apperr.Conflict("vote_conflict", "concurrent vote detected, retry", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
