package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"livepoll/internal/domain/verification"
)

type VerificationRepo struct {
	db *sql.DB
}

func NewVerificationRepo(db *sql.DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

// Replace deletes any earlier codes for (pollID, email) and inserts the new
// one in a single transaction, keeping at most one active code per pair.
func (r *VerificationRepo) Replace(ctx context.Context, c *verification.Code) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        DELETE FROM verification_codes WHERE poll_id = $1 AND email = $2
    `, c.PollID, c.Email)
	if err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
        INSERT INTO verification_codes (poll_id, email, code, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, c.PollID, c.Email, c.Code, c.ExpiresAt, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *VerificationRepo) Find(ctx context.Context, pollID, email string) (*verification.Code, error) {
	c := &verification.Code{PollID: pollID, Email: email}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, code, expires_at, created_at
        FROM verification_codes
        WHERE poll_id = $1 AND email = $2
        ORDER BY created_at DESC
        LIMIT 1
    `, pollID, email).Scan(&c.ID, &c.Code, &c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *VerificationRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM verification_codes WHERE expires_at < $1
    `, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
