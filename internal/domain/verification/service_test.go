package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"livepoll/internal/domain/poll"
	"livepoll/internal/platform/mailer"
)

type memoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]*Code
}

func newMemoryCodeStore() *memoryCodeStore {
	return &memoryCodeStore{codes: make(map[string]*Code)}
}

func key(pollID, email string) string { return pollID + "|" + email }

func (s *memoryCodeStore) Replace(ctx context.Context, c *Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.codes[key(c.PollID, c.Email)] = &cp
	return nil
}

func (s *memoryCodeStore) Find(ctx context.Context, pollID, email string) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[key(pollID, email)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memoryCodeStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, c := range s.codes {
		if c.ExpiresAt.Before(before) {
			delete(s.codes, k)
			n++
		}
	}
	return n, nil
}

type stubPollStore struct {
	p *poll.Poll
}

func (s *stubPollStore) Create(ctx context.Context, p *poll.Poll) error { return nil }

func (s *stubPollStore) Get(ctx context.Context, id string) (*poll.Poll, error) {
	if s.p == nil || s.p.ID != id {
		return nil, poll.ErrNotFound
	}
	return s.p.Clone(), nil
}

func (s *stubPollStore) Mutate(ctx context.Context, id string, fn poll.MutateFunc) error {
	return errors.New("not used")
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail bool
}

func (s *recordingSender) Send(ctx context.Context, m mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, m)
	return nil
}

func testPoll() *poll.Poll {
	return &poll.Poll{
		ID:       "p1",
		Question: "Q",
		Options:  []poll.Option{{ID: "o1", Text: "a"}, {ID: "o2", Text: "b"}},
	}
}

func TestRequestCodeHappyPath(t *testing.T) {
	store := newMemoryCodeStore()
	sender := &recordingSender{}
	svc := NewService(store, &stubPollStore{p: testPoll()}, sender)
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "p1", " A@B.com "); err != nil {
		t.Fatalf("request error: %v", err)
	}

	c, _ := store.Find(ctx, "p1", "a@b.com")
	if c == nil {
		t.Fatal("expected stored code under lowercased email")
	}
	if len(c.Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", c.Code)
	}
	for _, r := range c.Code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", c.Code)
		}
	}
	if got := time.Until(c.ExpiresAt); got > 10*time.Minute || got < 9*time.Minute {
		t.Fatalf("expected ~10 minute TTL, got %v", got)
	}

	if len(sender.sent) != 1 || sender.sent[0].To != "a@b.com" {
		t.Fatalf("expected one delivery to a@b.com, got %+v", sender.sent)
	}

	if err := svc.Validate(ctx, "p1", "a@b.com", c.Code); err != nil {
		t.Fatalf("validate error: %v", err)
	}
}

func TestRequestCodeRejectsBadEmail(t *testing.T) {
	svc := NewService(newMemoryCodeStore(), &stubPollStore{p: testPoll()}, &recordingSender{})
	if err := svc.RequestCode(context.Background(), "p1", "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRequestCodeRejectsVotedEmail(t *testing.T) {
	p := testPoll()
	p.Votes = append(p.Votes, poll.Vote{OptionID: "o1", Email: "a@b.com", Verified: true})
	p.Options[0].VoteCount = 1

	svc := NewService(newMemoryCodeStore(), &stubPollStore{p: p}, &recordingSender{})
	if err := svc.RequestCode(context.Background(), "p1", "A@B.COM"); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
}

func TestRequestCodeUnknownPoll(t *testing.T) {
	svc := NewService(newMemoryCodeStore(), &stubPollStore{}, &recordingSender{})
	if err := svc.RequestCode(context.Background(), "missing", "a@b.com"); !errors.Is(err, poll.ErrNotFound) {
		t.Fatalf("expected poll.ErrNotFound, got %v", err)
	}
}

func TestRequestCodeSupersedesPrevious(t *testing.T) {
	store := newMemoryCodeStore()
	svc := NewService(store, &stubPollStore{p: testPoll()}, &recordingSender{})
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "p1", "a@b.com"); err != nil {
		t.Fatalf("first request error: %v", err)
	}
	first, _ := store.Find(ctx, "p1", "a@b.com")

	if err := svc.RequestCode(ctx, "p1", "a@b.com"); err != nil {
		t.Fatalf("second request error: %v", err)
	}
	second, _ := store.Find(ctx, "p1", "a@b.com")

	if first.Code == second.Code {
		t.Skip("codes collided; re-run")
	}
	if err := svc.Validate(ctx, "p1", "a@b.com", first.Code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("superseded code must be invalid, got %v", err)
	}
	if err := svc.Validate(ctx, "p1", "a@b.com", second.Code); err != nil {
		t.Fatalf("fresh code should validate, got %v", err)
	}
}

func TestRequestCodeDeliveryFailureKeepsCode(t *testing.T) {
	store := newMemoryCodeStore()
	sender := &recordingSender{fail: true}
	svc := NewService(store, &stubPollStore{p: testPoll()}, sender)
	ctx := context.Background()

	err := svc.RequestCode(ctx, "p1", "a@b.com")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}

	// Known limitation: the stored code survives a failed send and stays
	// valid until expiry or the next request.
	c, _ := store.Find(ctx, "p1", "a@b.com")
	if c == nil {
		t.Fatal("expected code to remain stored after delivery failure")
	}
	if err := svc.Validate(ctx, "p1", "a@b.com", c.Code); err != nil {
		t.Fatalf("undelivered code should still validate, got %v", err)
	}
}

func TestValidateExpiry(t *testing.T) {
	store := newMemoryCodeStore()
	svc := NewService(store, &stubPollStore{p: testPoll()}, &recordingSender{})
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if err := svc.RequestCode(ctx, "p1", "a@b.com"); err != nil {
		t.Fatalf("request error: %v", err)
	}
	c, _ := store.Find(ctx, "p1", "a@b.com")

	now = now.Add(9 * time.Minute)
	if err := svc.Validate(ctx, "p1", "a@b.com", c.Code); err != nil {
		t.Fatalf("code inside TTL should validate, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := svc.Validate(ctx, "p1", "a@b.com", c.Code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expired code must be invalid, got %v", err)
	}
}

type failingCodeStore struct {
	*memoryCodeStore
	findErr error
}

func (s *failingCodeStore) Find(ctx context.Context, pollID, email string) (*Code, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.memoryCodeStore.Find(ctx, pollID, email)
}

func TestValidateSurfacesStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &failingCodeStore{memoryCodeStore: newMemoryCodeStore(), findErr: storeErr}
	svc := NewService(store, &stubPollStore{p: testPoll()}, &recordingSender{})

	err := svc.Validate(context.Background(), "p1", "a@b.com", "123456")
	if err == nil {
		t.Fatal("expected an error from a failing store")
	}
	if errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("storage failure must not read as an invalid code, got %v", err)
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestValidateTrimsCandidate(t *testing.T) {
	store := newMemoryCodeStore()
	svc := NewService(store, &stubPollStore{p: testPoll()}, &recordingSender{})
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "p1", "a@b.com"); err != nil {
		t.Fatalf("request error: %v", err)
	}
	c, _ := store.Find(ctx, "p1", "a@b.com")

	if err := svc.Validate(ctx, "p1", " A@B.com ", "  "+c.Code+" "); err != nil {
		t.Fatalf("trimmed candidate should validate, got %v", err)
	}
	if err := svc.Validate(ctx, "p1", "a@b.com", "000000"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("wrong code must be invalid, got %v", err)
	}
}
