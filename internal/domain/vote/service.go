package vote

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/bus"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/session"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/metrics"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/tally"
)

var (
	ErrAlreadyVoted    = errors.New("voter already voted on this poll")
	ErrOptionNotInPoll = errors.New("option does not belong to poll")
	// ErrVoteConflict is the unique-violation signal from the store. The
	// coordinator converts it into a re-read; it only escapes when the
	// retry budget is exhausted.
	ErrVoteConflict = errors.New("concurrent vote conflict")
)

// castAttempts bounds the re-read loop after a lost first-vote race.
const castAttempts = 3

type Issuer interface {
	Issue() session.Session
}

// Service coordinates a single vote cast: identity resolution, duplicate
// detection, the store mutation, the tally delta and the live update, in
// that order.
type Service struct {
	repo   Repository
	polls  PollChecker
	tally  tally.Store
	bus    bus.Bus
	issuer Issuer
	log    *zap.Logger
}

func NewService(repo Repository, polls PollChecker, tally tally.Store, b bus.Bus, issuer Issuer, log *zap.Logger) *Service {
	return &Service{repo: repo, polls: polls, tally: tally, bus: b, issuer: issuer, log: log}
}

type CastResult struct {
	// SessionID is the voter identity the vote was recorded under. When
	// Minted is true it is new and the boundary layer must hand it back
	// to the client.
	SessionID string
	Minted    bool
	// Changed reports that an earlier vote on another option was replaced.
	Changed bool
}

// Cast records a vote for optionID on pollID under the given voter identity,
// minting one on first contact. On a vote change the old option's row is
// deleted, its tally decremented and its update published before anything
// happens to the new option, so subscribers never see updates out of order.
func (s *Service) Cast(ctx context.Context, pollID, optionID, sessionID string) (CastResult, error) {
	res := CastResult{SessionID: sessionID}
	if res.SessionID == "" {
		res.SessionID = s.issuer.Issue().ID
		res.Minted = true
	}

	ok, err := s.polls.OptionInPoll(ctx, pollID, optionID)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, ErrOptionNotInPoll
	}

	for attempt := 0; attempt < castAttempts; attempt++ {
		existing, err := s.repo.FindByVoterAndPoll(ctx, res.SessionID, pollID)
		if err != nil {
			return res, err
		}

		if existing != nil {
			if existing.OptionID == optionID {
				metrics.IncVoteDuplicate(pollID)
				return res, ErrAlreadyVoted
			}

			// Vote change: retire the old option completely before
			// the new vote exists anywhere.
			if err := s.repo.Delete(ctx, existing.ID); err != nil {
				return res, err
			}
			if err := s.applyDelta(ctx, pollID, existing.OptionID, -1); err != nil {
				return res, err
			}
			res.Changed = true
		}

		err = s.repo.Create(ctx, &Vote{
			PollID:    pollID,
			OptionID:  optionID,
			SessionID: res.SessionID,
		})
		if errors.Is(err, ErrVoteConflict) {
			// Lost a race on the uniqueness constraint. Re-read and
			// take the change path against the winner's row.
			s.log.Debug("vote insert conflict, re-reading",
				zap.String("poll_id", pollID),
				zap.String("session_id", res.SessionID),
			)
			continue
		}
		if err != nil {
			return res, err
		}

		metrics.IncVoteCast(pollID)
		if res.Changed {
			metrics.IncVoteChanged(pollID)
		}
		return res, s.applyDelta(ctx, pollID, optionID, +1)
	}

	return res, ErrVoteConflict
}

// applyDelta updates the tally and publishes the new count. The vote row is
// already durable at this point: a tally failure leaves the counter lagging
// truth and is surfaced, logged and left for the audit worker to report, not
// rolled back. A publish failure only costs current subscribers one update
// and does not fail the cast.
func (s *Service) applyDelta(ctx context.Context, pollID, optionID string, delta int64) error {
	count, err := s.tally.IncrBy(ctx, pollID, optionID, delta)
	if err != nil {
		s.log.Error("tally update failed after durable vote mutation",
			zap.String("poll_id", pollID),
			zap.String("option_id", optionID),
			zap.Int64("delta", delta),
			zap.Error(err),
		)
		return err
	}

	if err := s.bus.Publish(ctx, pollID, bus.Update{OptionID: optionID, Votes: count}); err != nil {
		metrics.IncPublishFailure(pollID)
		s.log.Warn("tally update publish failed, live subscribers miss this event",
			zap.String("poll_id", pollID),
			zap.String("option_id", optionID),
			zap.Error(err),
		)
	}
	return nil
}
