package bus

import "context"

// Update is one tally change on a poll, published after the change was
// durably recorded.
type Update struct {
	OptionID string `json:"pollOptionId"`
	Votes    int64  `json:"votes"`
}

// Bus fans tally updates out to live subscribers. Delivery is at-least-once
// and FIFO per poll; late subscribers miss earlier updates.
type Bus interface {
	Publish(ctx context.Context, pollID string, u Update) error
	// Subscribe returns a channel of updates for one poll and a cancel
	// func. The channel is closed on cancel or when the subscriber falls
	// too far behind.
	Subscribe(pollID string) (<-chan Update, func())
}
