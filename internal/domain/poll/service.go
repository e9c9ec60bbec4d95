package poll

import (
	"context"
	"errors"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/tally"
)

var (
	ErrPollNotFound = errors.New("poll not found")
	ErrInvalidPoll  = errors.New("poll must have a title and at least 2 options")
)

type Service struct {
	repo  Repository
	tally tally.Store
}

func NewService(repo Repository, tally tally.Store) *Service {
	return &Service{repo: repo, tally: tally}
}

func (s *Service) Create(ctx context.Context, title string, optionTitles []string) (string, error) {
	if title == "" || len(optionTitles) < 2 {
		return "", ErrInvalidPoll
	}

	options := make([]Option, 0, len(optionTitles))
	for _, t := range optionTitles {
		if t == "" {
			return "", ErrInvalidPoll
		}
		options = append(options, Option{Title: t})
	}

	return s.repo.Create(ctx, &Poll{Title: title}, options)
}

type OptionResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int64  `json:"score"`
}

// Get returns the poll with its options and their current tallies. Tallies
// are read from the fast counter store; an option with no recorded delta
// scores zero.
func (s *Service) Get(ctx context.Context, id string) (*Poll, []OptionResult, error) {
	p, options, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	scores, err := s.tally.Scores(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	results := make([]OptionResult, 0, len(options))
	for _, opt := range options {
		results = append(results, OptionResult{
			ID:    opt.ID,
			Title: opt.Title,
			Score: scores[opt.ID],
		})
	}
	return p, results, nil
}
