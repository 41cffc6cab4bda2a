package vote

import (
	"context"
	"errors"
	"strings"
	"time"

	"livepoll/internal/domain/identity"
	"livepoll/internal/domain/poll"
)

var (
	ErrAlreadyVoted  = errors.New("already voted in this poll")
	ErrInvalidOption = errors.New("option does not belong to poll")
	ErrSameOption    = errors.New("already voted for this option")
	ErrNoVoteFound   = errors.New("no existing vote found")
)

// Event is a committed tally change, emitted once per affected option.
type Event struct {
	PollID     string `json:"-"`
	OptionID   string `json:"optionId"`
	Votes      int    `json:"votes"`
	TotalVotes int    `json:"totalVotes"`
}

// CodeValidator is the read-only check the engine runs before admitting a
// verified vote. Consumption of the code happens inside the vote transaction,
// not here.
type CodeValidator interface {
	Validate(ctx context.Context, pollID, email, code string) error
}

// OptionTally is the post-commit state of the option a vote landed on.
type OptionTally struct {
	OptionID   string `json:"id"`
	Text       string `json:"text"`
	Votes      int    `json:"votes"`
	TotalVotes int    `json:"totalVotes"`
}

// Status reports whether an identity or email has a recorded vote.
type Status struct {
	HasVoted bool   `json:"hasVoted"`
	OptionID string `json:"votedOptionId,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// Engine is the state machine over a poll's vote ledger. Every mutation runs
// as one store transaction covering the tally, the ledger entry, and (for
// verified votes) the code deletion. Events are published strictly after
// commit and never block.
type Engine struct {
	polls  poll.Store
	codes  CodeValidator
	events chan<- Event
	now    func() time.Time
}

func NewEngine(polls poll.Store, codes CodeValidator, events chan<- Event) *Engine {
	return &Engine{
		polls:  polls,
		codes:  codes,
		events: events,
		now:    time.Now,
	}
}

// CastAnonymous admits one vote per (ip, fingerprint) pair.
func (e *Engine) CastAnonymous(ctx context.Context, pollID, optionID string, who identity.Identity) (*OptionTally, error) {
	var res *OptionTally

	err := e.polls.Mutate(ctx, pollID, func(p *poll.Poll) (*poll.Change, error) {
		if p.FindVoteByIdentity(who.IPAddress, who.Fingerprint) != nil {
			return nil, ErrAlreadyVoted
		}
		opt := p.FindOption(optionID)
		if opt == nil {
			return nil, ErrInvalidOption
		}

		opt.VoteCount++
		res = e.tallyOf(p, opt)

		return &poll.Change{
			Tally: map[string]int{optionID: 1},
			Insert: &poll.Vote{
				OptionID:    optionID,
				IPAddress:   who.IPAddress,
				Fingerprint: who.Fingerprint,
				VotedAt:     e.now().UTC(),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(Event{PollID: pollID, OptionID: res.OptionID, Votes: res.Votes, TotalVotes: res.TotalVotes})
	return res, nil
}

// CastVerified admits one vote per verified email. The email check precedes
// the identity check since it is the stronger signal, and the verification
// code is deleted in the same transaction so it cannot be replayed.
func (e *Engine) CastVerified(ctx context.Context, pollID, optionID, email, code string, who identity.Identity) (*OptionTally, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	if err := e.codes.Validate(ctx, pollID, email, code); err != nil {
		return nil, err
	}

	var res *OptionTally

	err := e.polls.Mutate(ctx, pollID, func(p *poll.Poll) (*poll.Change, error) {
		if p.FindVoteByEmail(email) != nil {
			return nil, ErrAlreadyVoted
		}
		if p.FindVoteByIdentity(who.IPAddress, who.Fingerprint) != nil {
			return nil, ErrAlreadyVoted
		}
		opt := p.FindOption(optionID)
		if opt == nil {
			return nil, ErrInvalidOption
		}

		opt.VoteCount++
		res = e.tallyOf(p, opt)

		return &poll.Change{
			Tally: map[string]int{optionID: 1},
			Insert: &poll.Vote{
				OptionID:    optionID,
				IPAddress:   who.IPAddress,
				Fingerprint: who.Fingerprint,
				Email:       email,
				Verified:    true,
				VotedAt:     e.now().UTC(),
			},
			ConsumeCode: &poll.CodeClaim{Email: email, Code: code},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(Event{PollID: pollID, OptionID: res.OptionID, Votes: res.Votes, TotalVotes: res.TotalVotes})
	return res, nil
}

// Change moves an existing vote to another option. The ledger entry is
// located by email when one is supplied, otherwise by identity.
func (e *Engine) Change(ctx context.Context, pollID, newOptionID, email string, who identity.Identity) error {
	var oldEv, newEv Event

	err := e.polls.Mutate(ctx, pollID, func(p *poll.Poll) (*poll.Change, error) {
		existing := e.locate(p, email, who)
		if existing == nil {
			return nil, ErrNoVoteFound
		}
		if existing.OptionID == newOptionID {
			return nil, ErrSameOption
		}

		oldOpt := p.FindOption(existing.OptionID)
		newOpt := p.FindOption(newOptionID)
		if oldOpt == nil || newOpt == nil {
			return nil, ErrInvalidOption
		}

		oldOpt.VoteCount--
		newOpt.VoteCount++

		updated := *existing
		updated.OptionID = newOptionID
		updated.VotedAt = e.now().UTC()

		total := p.TotalVotes()
		oldEv = Event{PollID: pollID, OptionID: oldOpt.ID, Votes: oldOpt.VoteCount, TotalVotes: total}
		newEv = Event{PollID: pollID, OptionID: newOpt.ID, Votes: newOpt.VoteCount, TotalVotes: total}

		return &poll.Change{
			Tally:  map[string]int{oldOpt.ID: -1, newOpt.ID: 1},
			Update: &updated,
		}, nil
	})
	if err != nil {
		return err
	}

	e.publish(oldEv)
	e.publish(newEv)
	return nil
}

// Retract removes an existing vote, returning the (poll, identity) pair to
// the no-vote state.
func (e *Engine) Retract(ctx context.Context, pollID, email string, who identity.Identity) error {
	var ev Event

	err := e.polls.Mutate(ctx, pollID, func(p *poll.Poll) (*poll.Change, error) {
		existing := e.locate(p, email, who)
		if existing == nil {
			return nil, ErrNoVoteFound
		}

		opt := p.FindOption(existing.OptionID)
		if opt == nil {
			return nil, ErrInvalidOption
		}

		opt.VoteCount--
		removed := *existing
		ev = Event{PollID: pollID, OptionID: opt.ID, Votes: opt.VoteCount, TotalVotes: p.TotalVotes()}

		return &poll.Change{
			Tally:  map[string]int{opt.ID: -1},
			Remove: &removed,
		}, nil
	})
	if err != nil {
		return err
	}

	e.publish(ev)
	return nil
}

// CheckStatus is a pure read. An email match is preferred over an identity
// match when both exist.
func (e *Engine) CheckStatus(ctx context.Context, pollID, email string, who identity.Identity) (*Status, error) {
	p, err := e.polls.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}

	var existing *poll.Vote
	if email != "" {
		existing = p.FindVoteByEmail(email)
	}
	if existing == nil {
		existing = p.FindVoteByIdentity(who.IPAddress, who.Fingerprint)
	}

	if existing == nil {
		return &Status{}, nil
	}
	return &Status{HasVoted: true, OptionID: existing.OptionID, Verified: existing.Verified}, nil
}

func (e *Engine) locate(p *poll.Poll, email string, who identity.Identity) *poll.Vote {
	if email != "" {
		return p.FindVoteByEmail(email)
	}
	return p.FindVoteByIdentity(who.IPAddress, who.Fingerprint)
}

func (e *Engine) tallyOf(p *poll.Poll, opt *poll.Option) *OptionTally {
	return &OptionTally{
		OptionID:   opt.ID,
		Text:       opt.Text,
		Votes:      opt.VoteCount,
		TotalVotes: p.TotalVotes(),
	}
}

// publish never blocks; a full channel drops the event. Broadcast delivery is
// best-effort and decoupled from the committed transaction.
func (e *Engine) publish(ev Event) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}
