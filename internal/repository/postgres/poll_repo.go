package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"livepoll/internal/domain/poll"
	"livepoll/internal/domain/verification"
	"livepoll/internal/domain/vote"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO polls (id, question, created_at)
        VALUES ($1, $2, $3)
    `, p.ID, p.Question, p.CreatedAt)
	if err != nil {
		return err
	}

	for i := range p.Options {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO options (id, poll_id, position, text, vote_count)
            VALUES ($1, $2, $3, $4, 0)
        `, p.Options[i].ID, p.ID, i, p.Options[i].Text)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PollRepo) Get(ctx context.Context, id string) (*poll.Poll, error) {
	p := &poll.Poll{ID: id}
	err := r.db.QueryRowContext(ctx, `
        SELECT question, created_at FROM polls WHERE id = $1
    `, id).Scan(&p.Question, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, poll.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.Options, err = r.loadOptions(ctx, r.db, id); err != nil {
		return nil, err
	}
	if p.Votes, err = r.loadVotes(ctx, r.db, id); err != nil {
		return nil, err
	}
	return p, nil
}

// Mutate runs fn against the poll while holding its row lock, then applies
// the returned Change in the same transaction. The lock serializes all
// mutations per poll, so fn validates against committed state; the unique
// constraints on the votes table are a backstop only.
func (r *PollRepo) Mutate(ctx context.Context, id string, fn poll.MutateFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p := &poll.Poll{ID: id}
	err = tx.QueryRowContext(ctx, `
        SELECT question, created_at FROM polls WHERE id = $1 FOR UPDATE
    `, id).Scan(&p.Question, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return poll.ErrNotFound
	}
	if err != nil {
		return err
	}

	if p.Options, err = r.loadOptions(ctx, tx, id); err != nil {
		return err
	}
	if p.Votes, err = r.loadVotes(ctx, tx, id); err != nil {
		return err
	}

	change, err := fn(p)
	if err != nil {
		return err
	}
	if change == nil {
		return tx.Commit()
	}

	if err := r.apply(ctx, tx, id, change); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PollRepo) apply(ctx context.Context, tx *sql.Tx, pollID string, change *poll.Change) error {
	for optID, delta := range change.Tally {
		res, err := tx.ExecContext(ctx, `
            UPDATE options SET vote_count = vote_count + $1
            WHERE id = $2 AND poll_id = $3
        `, delta, optID, pollID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return vote.ErrInvalidOption
		}
	}

	if v := change.Insert; v != nil {
		var email sql.NullString
		if v.Email != "" {
			email = sql.NullString{String: v.Email, Valid: true}
		}
		err := tx.QueryRowContext(ctx, `
            INSERT INTO votes (poll_id, option_id, ip_address, fingerprint, email, verified, voted_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id
        `, pollID, v.OptionID, v.IPAddress, v.Fingerprint, email, v.Verified, v.VotedAt).Scan(&v.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return vote.ErrAlreadyVoted
			}
			return err
		}
	}

	if v := change.Update; v != nil {
		res, err := tx.ExecContext(ctx, `
            UPDATE votes SET option_id = $1, voted_at = $2 WHERE id = $3 AND poll_id = $4
        `, v.OptionID, v.VotedAt, v.ID, pollID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return vote.ErrNoVoteFound
		}
	}

	if v := change.Remove; v != nil {
		res, err := tx.ExecContext(ctx, `
            DELETE FROM votes WHERE id = $1 AND poll_id = $2
        `, v.ID, pollID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return vote.ErrNoVoteFound
		}
	}

	if c := change.ConsumeCode; c != nil {
		res, err := tx.ExecContext(ctx, `
            DELETE FROM verification_codes
            WHERE poll_id = $1 AND email = $2 AND code = $3 AND expires_at > now()
        `, pollID, c.Email, c.Code)
		if err != nil {
			return err
		}
		// A concurrent consumer got here first; abort the whole vote.
		if n, _ := res.RowsAffected(); n != 1 {
			return verification.ErrCodeInvalid
		}
	}

	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *PollRepo) loadOptions(ctx context.Context, q queryer, pollID string) ([]poll.Option, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT id, text, vote_count
        FROM options WHERE poll_id = $1
        ORDER BY position
    `, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []poll.Option
	for rows.Next() {
		var o poll.Option
		if err := rows.Scan(&o.ID, &o.Text, &o.VoteCount); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

func (r *PollRepo) loadVotes(ctx context.Context, q queryer, pollID string) ([]poll.Vote, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT id, option_id, ip_address, fingerprint, email, verified, voted_at
        FROM votes WHERE poll_id = $1
        ORDER BY id
    `, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []poll.Vote
	for rows.Next() {
		var v poll.Vote
		var email sql.NullString
		if err := rows.Scan(&v.ID, &v.OptionID, &v.IPAddress, &v.Fingerprint, &email, &v.Verified, &v.VotedAt); err != nil {
			return nil, err
		}
		v.Email = email.String
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
