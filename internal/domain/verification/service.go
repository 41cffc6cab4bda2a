package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"livepoll/internal/domain/poll"
	"livepoll/internal/platform/mailer"
	"livepoll/internal/retry"
)

const (
	codeTTL = 10 * time.Minute
	codeMin = 100000
	codeMax = 999999
)

var (
	ErrInvalidEmail    = errors.New("valid email is required")
	ErrAlreadyVoted    = errors.New("email already voted in this poll")
	ErrCodeInvalid     = errors.New("invalid or expired verification code")
	ErrDeliveryFailed  = errors.New("failed to send verification code")
	errStoreCodeFailed = errors.New("failed to store verification code")
)

type Service struct {
	store  Store
	polls  poll.Store
	sender mailer.Sender
	now    func() time.Time
}

func NewService(store Store, polls poll.Store, sender mailer.Sender) *Service {
	return &Service{
		store:  store,
		polls:  polls,
		sender: sender,
		now:    time.Now,
	}
}

// RequestCode issues a fresh code for (pollID, email), superseding any
// earlier one, and triggers delivery. A delivery failure leaves the stored
// code valid; the caller recovers by requesting again, which also invalidates
// the undelivered code.
func (s *Service) RequestCode(ctx context.Context, pollID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}

	p, err := s.polls.Get(ctx, pollID)
	if err != nil {
		return err
	}
	if p.FindVoteByEmail(email) != nil {
		return ErrAlreadyVoted
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("%w: %v", errStoreCodeFailed, err)
	}

	now := s.now().UTC()
	c := &Code{
		PollID:    pollID,
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(codeTTL),
		CreatedAt: now,
	}
	if err := s.store.Replace(ctx, c); err != nil {
		return fmt.Errorf("%w: %v", errStoreCodeFailed, err)
	}

	msg := mailer.Message{
		To:      email,
		Subject: "Email Verification",
		HTML:    mailer.VerificationEmail(code),
	}
	if err := retry.DoWithRetry(ctx, 2, 500*time.Millisecond, func() error {
		return s.sender.Send(ctx, msg)
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}

// Validate reports whether an unexpired code matches the candidate. It is a
// pure read; the vote transaction consumes the code separately.
func (s *Service) Validate(ctx context.Context, pollID, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	stored, err := s.store.Find(ctx, pollID, email)
	if err != nil {
		return fmt.Errorf("find verification code: %w", err)
	}
	if stored == nil {
		return ErrCodeInvalid
	}
	if stored.Code != code {
		return ErrCodeInvalid
	}
	if !stored.ExpiresAt.After(s.now()) {
		return ErrCodeInvalid
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
