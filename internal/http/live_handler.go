package api

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/platform/apperr"
)

// @Summary     Live tally updates over websocket
// @Tags        polls
// @Param       pollId  path  string  true  "Poll ID"
// @Success     101
// @Failure     400     {object}  map[string]string  "invalid poll id"
// @Router      /polls/{pollId}/results/live [get]
func (h *Handler) handleLiveResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseUUIDParam(r, "pollId")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		zapLogger.Debug("websocket accept failed", zap.Error(err))
		return
	}

	updates, cancel := h.bus.Subscribe(pollID)
	defer cancel()

	// Clients only listen; CloseRead gives us a context that ends when the
	// peer goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case u, ok := <-updates:
			if !ok {
				// Dropped by the bus for lagging.
				conn.Close(websocket.StatusTryAgainLater, "subscriber too slow")
				return
			}
			data, err := json.Marshal(u)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
