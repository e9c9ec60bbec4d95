package vote

import (
	"context"
	"time"
)

// Vote is one voter identity's current choice on a poll. The store enforces
// at most one row per (session_id, poll_id).
type Vote struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	OptionID  string    `json:"option_id"`
	SessionID string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	// FindByVoterAndPoll returns (nil, nil) when the voter has no vote on
	// the poll.
	FindByVoterAndPoll(ctx context.Context, sessionID, pollID string) (*Vote, error)
	// Create returns ErrVoteConflict when a row for (session_id, poll_id)
	// already exists.
	Create(ctx context.Context, v *Vote) error
	Delete(ctx context.Context, id string) error
	// CountByPoll recomputes authoritative per-option counts from the
	// vote rows.
	CountByPoll(ctx context.Context, pollID string) (map[string]int64, error)
}

// PollChecker answers whether an option belongs to a poll.
type PollChecker interface {
	OptionInPoll(ctx context.Context, pollID, optionID string) (bool, error)
}
