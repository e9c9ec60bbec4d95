package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/metrics"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/tally"
)

type PollSource interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type VoteCounter interface {
	CountByPoll(ctx context.Context, pollID string) (map[string]int64, error)
}

// AuditWorker periodically recomputes per-option counts from the votes table
// and compares them with the tally cache. The cache is allowed to lag (no
// cross-store transaction exists), so drift is reported, never repaired.
type AuditWorker struct {
	polls    PollSource
	votes    VoteCounter
	tally    tally.Store
	interval time.Duration
	log      *zap.Logger
}

func NewAuditWorker(polls PollSource, votes VoteCounter, t tally.Store, interval time.Duration, log *zap.Logger) *AuditWorker {
	return &AuditWorker{polls: polls, votes: votes, tally: t, interval: interval, log: log}
}

func (w *AuditWorker) Run(ctx context.Context) {
	w.log.Info("tally audit worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("tally audit worker stopped")
			return
		case <-ticker.C:
			w.auditAll(ctx)
		}
	}
}

func (w *AuditWorker) auditAll(ctx context.Context) {
	ids, err := w.polls.ListIDs(ctx)
	if err != nil {
		w.log.Warn("audit: listing polls failed", zap.Error(err))
		return
	}

	for _, pollID := range ids {
		if err := w.auditPoll(ctx, pollID); err != nil {
			w.log.Warn("audit: poll check failed",
				zap.String("poll_id", pollID),
				zap.Error(err),
			)
		}
	}
}

func (w *AuditWorker) auditPoll(ctx context.Context, pollID string) error {
	truth, err := w.votes.CountByPoll(ctx, pollID)
	if err != nil {
		return err
	}
	cached, err := w.tally.Scores(ctx, pollID)
	if err != nil {
		return err
	}

	var drift int64
	for optionID, want := range truth {
		if d := want - cached[optionID]; d != 0 {
			drift += abs(d)
			w.log.Warn("tally drift detected",
				zap.String("poll_id", pollID),
				zap.String("option_id", optionID),
				zap.Int64("votes", want),
				zap.Int64("tally", cached[optionID]),
			)
		}
	}
	for optionID, have := range cached {
		if _, ok := truth[optionID]; !ok && have != 0 {
			drift += abs(have)
			w.log.Warn("tally drift detected",
				zap.String("poll_id", pollID),
				zap.String("option_id", optionID),
				zap.Int64("votes", 0),
				zap.Int64("tally", have),
			)
		}
	}

	metrics.SetTallyDrift(pollID, float64(drift))
	return nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
