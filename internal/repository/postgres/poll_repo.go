package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/poll"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	queryPoll := `
        INSERT INTO polls (title)
        VALUES ($1)
        RETURNING id, created_at
    `
	if err := tx.QueryRowContext(ctx, queryPoll, p.Title).Scan(&p.ID, &p.CreatedAt); err != nil {
		return "", err
	}

	queryOpt := `
        INSERT INTO poll_options (poll_id, title)
        VALUES ($1, $2)
        RETURNING id, created_at
    `
	for i := range options {
		options[i].PollID = p.ID
		if err := tx.QueryRowContext(ctx, queryOpt, options[i].PollID, options[i].Title).
			Scan(&options[i].ID, &options[i].CreatedAt); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id string) (*poll.Poll, []poll.Option, error) {
	p := &poll.Poll{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, title, created_at
        FROM polls WHERE id = $1
    `, id).Scan(&p.ID, &p.Title, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, poll.ErrPollNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, poll_id, title, created_at
        FROM poll_options WHERE poll_id = $1
        ORDER BY created_at, id
    `, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var opts []poll.Option
	for rows.Next() {
		var o poll.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Title, &o.CreatedAt); err != nil {
			return nil, nil, err
		}
		opts = append(opts, o)
	}

	return p, opts, rows.Err()
}

func (r *PollRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM polls`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OptionInPoll reports whether the option exists and belongs to the poll.
func (r *PollRepo) OptionInPoll(ctx context.Context, pollID, optionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM poll_options WHERE id = $1 AND poll_id = $2
        )
    `, optionID, pollID).Scan(&exists)
	return exists, err
}
