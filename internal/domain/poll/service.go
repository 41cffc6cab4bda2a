package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("poll not found")
	ErrInvalidInput = errors.New("invalid poll input")
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and persists a new poll. Question and option texts are
// trimmed; option membership is immutable after this point.
func (s *Service) Create(ctx context.Context, question string, optionTexts []string) (*Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(question) > MaxQuestionLen {
		return nil, fmt.Errorf("%w: question exceeds %d characters", ErrInvalidInput, MaxQuestionLen)
	}
	if len(optionTexts) < MinOptions || len(optionTexts) > MaxOptions {
		return nil, fmt.Errorf("%w: between %d and %d options are required", ErrInvalidInput, MinOptions, MaxOptions)
	}

	opts := make([]Option, 0, len(optionTexts))
	for _, text := range optionTexts {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: all options must be non-empty", ErrInvalidInput)
		}
		if utf8.RuneCountInString(text) > MaxOptionLen {
			return nil, fmt.Errorf("%w: option exceeds %d characters", ErrInvalidInput, MaxOptionLen)
		}
		opts = append(opts, Option{ID: uuid.NewString(), Text: text})
	}

	p := &Poll{
		ID:        uuid.NewString(),
		Question:  question,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Poll, error) {
	return s.store.Get(ctx, id)
}
