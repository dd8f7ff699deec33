package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillsmapper/skillsmapper/internal/domain"
	"github.com/skillsmapper/skillsmapper/internal/store"
)

// SQLStore implements Store on top of the relational repository.
type SQLStore struct {
	repo store.Repository
	ttl  time.Duration
	now  func() time.Time
}

// NewSQLStore creates a session store backed by the repository's session
// table.
func NewSQLStore(repo store.Repository, ttl time.Duration) *SQLStore {
	return &SQLStore{repo: repo, ttl: ttl, now: time.Now}
}

// Get retrieves the live session for a phone number, failing open on store
// errors.
func (s *SQLStore) Get(ctx context.Context, phone string) (*domain.Session, error) {
	sess, err := s.repo.GetSession(ctx, phone)
	if err != nil {
		slog.Error("Get session failed, treating as absent", "phone", phone, "error", err)
		return nil, nil
	}
	if sess == nil || sess.Expired(s.now()) {
		return nil, nil
	}
	return sess, nil
}

// Create starts a fresh session at the welcome step, replacing any prior one.
func (s *SQLStore) Create(ctx context.Context, phone string, data domain.SessionData) (*domain.Session, error) {
	now := s.now()
	sess := &domain.Session{
		PhoneNumber: phone,
		CurrentStep: domain.StepWelcome,
		Data:        data,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.UpsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Update merges the updates into the existing session without extending its
// TTL. Missing session falls back to Create.
func (s *SQLStore) Update(ctx context.Context, phone string, u Updates) (*domain.Session, error) {
	sess, err := s.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		var data domain.SessionData
		if u.Data != nil {
			data = *u.Data
		}
		created, err := s.Create(ctx, phone, data)
		if err != nil {
			return nil, err
		}
		if u.Step != "" {
			created.CurrentStep = u.Step
			if err := s.repo.UpsertSession(ctx, created); err != nil {
				return nil, fmt.Errorf("update session step: %w", err)
			}
		}
		return created, nil
	}

	if u.Step != "" {
		sess.CurrentStep = u.Step
	}
	if u.Data != nil {
		sess.Data = sess.Data.Merge(*u.Data)
	}
	if err := s.repo.UpsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// Clear deletes the session row.
func (s *SQLStore) Clear(ctx context.Context, phone string) error {
	return s.repo.DeleteSession(ctx, phone)
}

// SweepExpired removes expired session rows.
func (s *SQLStore) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx)
}
