package database

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed by the service. Safe to call on
// every start; everything uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS polls (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS options (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    position INT NOT NULL,
    text TEXT NOT NULL,
    vote_count INT NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
    UNIQUE (poll_id, position)
);

CREATE INDEX IF NOT EXISTS idx_options_poll_id ON options(poll_id);

-- The vote ledger. The unique constraints back the at-most-one-vote
-- invariant in case two transactions on different polls ever race past the
-- row lock.
CREATE TABLE IF NOT EXISTS votes (
    id BIGSERIAL PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES options(id),
    ip_address TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    email TEXT,
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    voted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (poll_id, ip_address, fingerprint)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_poll_email
    ON votes(poll_id, lower(email)) WHERE email IS NOT NULL;

CREATE TABLE IF NOT EXISTS verification_codes (
    id BIGSERIAL PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    email TEXT NOT NULL,
    code TEXT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_verification_codes_poll_email
    ON verification_codes(poll_id, email);
`
