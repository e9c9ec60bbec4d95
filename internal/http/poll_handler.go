package api

import (
	"encoding/json"
	"net/http"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/poll"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/platform/apperr"
)

type createPollRequest struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

type pollResponse struct {
	ID      string              `json:"id"`
	Title   string              `json:"title"`
	Options []poll.OptionResult `json:"options"`
}

// @Summary     Create a poll
// @Tags        polls
// @Accept      json
// @Produce     json
// @Param       request  body      createPollRequest  true  "Poll payload"
// @Success     201      {object}  map[string]string
// @Failure     400      {object}  map[string]string  "invalid body"
// @Failure     500      {object}  map[string]string  "server error"
// @Router      /polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	id, err := h.pollSvc.Create(r.Context(), req.Title, req.Options)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "success",
		"poll_id": id,
	})
}

// @Summary     Get a poll with current tallies
// @Tags        polls
// @Produce     json
// @Param       pollId  path      string  true  "Poll ID"
// @Success     200     {object}  map[string]pollResponse
// @Failure     400     {object}  map[string]string  "invalid poll id"
// @Failure     404     {object}  map[string]string  "not found"
// @Router      /polls/{pollId} [get]
func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseUUIDParam(r, "pollId")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	p, options, err := h.pollSvc.Get(r.Context(), pollID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]pollResponse{
		"poll": {ID: p.ID, Title: p.Title, Options: options},
	})
}

// @Summary     Current poll results
// @Tags        polls
// @Produce     json
// @Param       pollId  path      string  true  "Poll ID"
// @Success     200     {object}  map[string]any
// @Failure     404     {object}  map[string]string  "not found"
// @Router      /polls/{pollId}/results [get]
func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseUUIDParam(r, "pollId")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	_, options, err := h.pollSvc.Get(r.Context(), pollID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll_id": pollID,
		"options": options,
	})
}
