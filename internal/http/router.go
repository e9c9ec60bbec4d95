package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/bus"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/poll"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/vote"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/platform/token"
)

// Pinger is the readiness probe contract for the tally store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	pollSvc *poll.Service
	voteSvc *vote.Service
	tokens  *token.Manager
	bus     bus.Bus
	db      *sql.DB
	tally   Pinger
}

func NewRouter(
	pollSvc *poll.Service,
	voteSvc *vote.Service,
	tokens *token.Manager,
	b bus.Bus,
	db *sql.DB,
	tally Pinger,
) http.Handler {
	h := &Handler{
		pollSvc: pollSvc,
		voteSvc: voteSvc,
		tokens:  tokens,
		bus:     b,
		db:      db,
		tally:   tally,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/polls", func(r chi.Router) {
		r.Post("/", h.handleCreatePoll)
		r.Get("/{pollId}", h.handleGetPoll)
		r.With(RateLimitVotes(rate.Every(time.Second), 10)).Post("/{pollId}/votes", h.handleVote)
		r.Get("/{pollId}/results", h.handleResults)
		r.Get("/{pollId}/results/live", h.handleLiveResults)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseUUIDParam(r *http.Request, name string) (string, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db == nil || h.db.PingContext(ctx) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}
	if h.tally == nil || h.tally.Ping(ctx) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "tally_unavailable",
			"message": "tally store not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
