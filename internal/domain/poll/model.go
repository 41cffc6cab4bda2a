package poll

import (
	"context"
	"strings"
	"time"
)

const (
	MaxQuestionLen = 200
	MaxOptionLen   = 100
	MinOptions     = 2
	MaxOptions     = 10
)

type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []Option  `json:"options"`
	Votes     []Vote    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	VoteCount int    `json:"votes"`
}

// Vote is one ledger entry. ID is the storage key and is assigned on insert.
type Vote struct {
	ID          int64     `json:"-"`
	OptionID    string    `json:"option_id"`
	IPAddress   string    `json:"-"`
	Fingerprint string    `json:"-"`
	Email       string    `json:"-"`
	Verified    bool      `json:"verified"`
	VotedAt     time.Time `json:"voted_at"`
}

// Change describes the writes produced by one ledger mutation. The store
// applies all of it in the same transaction or none of it.
type Change struct {
	Tally       map[string]int // option id -> vote count delta
	Insert      *Vote
	Update      *Vote // existing entry, matched by ID
	Remove      *Vote
	ConsumeCode *CodeClaim
}

// CodeClaim marks a verification code for same-transaction deletion.
type CodeClaim struct {
	Email string
	Code  string
}

type MutateFunc func(p *Poll) (*Change, error)

type Store interface {
	Create(ctx context.Context, p *Poll) error
	Get(ctx context.Context, id string) (*Poll, error)
	// Mutate loads the poll under a per-poll exclusive lock, runs fn against
	// it, and commits the returned Change atomically. An error from fn aborts
	// the transaction with no writes.
	Mutate(ctx context.Context, id string, fn MutateFunc) error
}

func (p *Poll) FindOption(optionID string) *Option {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i]
		}
	}
	return nil
}

func (p *Poll) FindVoteByIdentity(ipAddress, fingerprint string) *Vote {
	for i := range p.Votes {
		if p.Votes[i].IPAddress == ipAddress && p.Votes[i].Fingerprint == fingerprint {
			return &p.Votes[i]
		}
	}
	return nil
}

func (p *Poll) FindVoteByEmail(email string) *Vote {
	for i := range p.Votes {
		if p.Votes[i].Email != "" && strings.EqualFold(p.Votes[i].Email, email) {
			return &p.Votes[i]
		}
	}
	return nil
}

// TotalVotes sums the option tallies, which the ledger invariant keeps equal
// to the ledger length.
func (p *Poll) TotalVotes() int {
	total := 0
	for i := range p.Options {
		total += p.Options[i].VoteCount
	}
	return total
}

func (p *Poll) Clone() *Poll {
	cp := *p
	cp.Options = make([]Option, len(p.Options))
	copy(cp.Options, p.Options)
	cp.Votes = make([]Vote, len(p.Votes))
	copy(cp.Votes, p.Votes)
	return &cp
}
