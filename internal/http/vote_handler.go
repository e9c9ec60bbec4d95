package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/session"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/platform/apperr"
)

// sessionCookieName carries the signed voter identity across requests.
const sessionCookieName = "sessionId"

type voteRequest struct {
	PollOptionID string `json:"pollOptionId"`
}

// @Summary     Cast or change a vote
// @Tags        votes
// @Accept      json
// @Param       pollId   path      string       true  "Poll ID"
// @Param       request  body      voteRequest  true  "Vote payload"
// @Success     201
// @Failure     400      {object}  map[string]string  "invalid input or already voted"
// @Failure     409      {object}  map[string]string  "concurrent vote conflict"
// @Failure     500      {object}  map[string]string  "server error"
// @Router      /polls/{pollId}/votes [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseUUIDParam(r, "pollId")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if _, err := uuid.Parse(req.PollOptionID); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid option id", err))
		return
	}

	// A missing, expired or tampered cookie all mean first contact.
	sessionID := ""
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if id, err := h.tokens.Parse(c.Value); err == nil {
			sessionID = id
		}
	}

	res, err := h.voteSvc.Cast(r.Context(), pollID, req.PollOptionID, sessionID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	if res.Minted {
		signed, err := h.tokens.Sign(res.SessionID, session.TTL)
		if err != nil {
			errorResponse(w, apperr.Internal("internal_error", "could not issue identity", err))
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    signed,
			Path:     "/",
			MaxAge:   int(session.TTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	w.WriteHeader(http.StatusCreated)
}
