package tally

import "context"

// Store is the fast vote-count cache. Counts are derived state: the votes
// table stays authoritative and the audit worker watches for drift.
type Store interface {
	// IncrBy applies an atomic signed delta to one (poll, option) counter
	// and returns the post-increment value.
	IncrBy(ctx context.Context, pollID, optionID string, delta int64) (int64, error)
	// Scores returns the current counter per option for a poll. Options
	// that never received a delta are absent.
	Scores(ctx context.Context, pollID string) (map[string]int64, error)
}
