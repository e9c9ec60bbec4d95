package poll

import (
	"context"
	"time"
)

type Poll struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Option struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	// Create inserts the poll and all its options in one transaction.
	Create(ctx context.Context, p *Poll, options []Option) (string, error)
	GetByID(ctx context.Context, id string) (*Poll, []Option, error)
	ListIDs(ctx context.Context) ([]string, error)
}
