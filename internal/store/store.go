// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/skillsmapper/skillsmapper/internal/domain"
)

// JobFilter narrows a catalog listing. Zero values mean "no filter".
type JobFilter struct {
	Location  string
	Education string
	Company   string
	MinSalary int
	MaxSalary int
	Limit     int
	Offset    int
}

// Repository defines the interface for persisting conversation and
// recommendation state.
type Repository interface {
	// GetSession retrieves the unexpired session for a phone number.
	// Returns (nil, nil) if no session exists or its TTL has elapsed.
	GetSession(ctx context.Context, phone string) (*domain.Session, error)

	// UpsertSession creates or replaces the session row for a phone number.
	UpsertSession(ctx context.Context, s *domain.Session) error

	// DeleteSession removes the session row. Deleting a missing session is
	// not an error.
	DeleteSession(ctx context.Context, phone string) error

	// DeleteExpiredSessions removes all rows whose TTL has elapsed and
	// returns how many were removed.
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// ListActiveSessions retrieves all sessions whose TTL has not elapsed,
	// newest first.
	ListActiveSessions(ctx context.Context) ([]*domain.Session, error)

	// GetUserProfile retrieves a user profile by phone number.
	GetUserProfile(ctx context.Context, phone string) (*domain.UserProfile, error)

	// SaveUserProfile creates or overwrites a profile and marks it completed.
	SaveUserProfile(ctx context.Context, p *domain.UserProfile) error

	// ListActiveJobs retrieves every active job in the catalog.
	ListActiveJobs(ctx context.Context) ([]domain.Job, error)

	// ListJobs retrieves active jobs matching the filter.
	ListJobs(ctx context.Context, f JobFilter) ([]domain.Job, error)

	// GetJob retrieves a job by id. Returns (nil, nil) when not found.
	GetJob(ctx context.Context, id int64) (*domain.Job, error)

	// ListFreeCertifications retrieves every free certification.
	ListFreeCertifications(ctx context.Context) ([]domain.Certification, error)

	// DeleteJobMatches removes all job matches for a phone number.
	DeleteJobMatches(ctx context.Context, phone string) error

	// InsertJobMatch records one job match.
	InsertJobMatch(ctx context.Context, m *domain.JobMatch) error

	// DeleteCertRecommendations removes all course recommendations for a
	// phone number.
	DeleteCertRecommendations(ctx context.Context, phone string) error

	// InsertCertRecommendation records one course recommendation.
	InsertCertRecommendation(ctx context.Context, r *domain.CertRecommendation) error

	// GetJobRecommendations retrieves active jobs ordered by stored match
	// score descending, then salary ceiling descending.
	GetJobRecommendations(ctx context.Context, phone string, limit int) ([]domain.ScoredJob, error)

	// GetCertRecommendations retrieves free certifications ordered by
	// priority score descending, then duration ascending.
	GetCertRecommendations(ctx context.Context, phone string, limit int) ([]domain.ScoredCertification, error)

	// GetProgressStats aggregates recommendation counts for a phone number.
	GetProgressStats(ctx context.Context, phone string) (*domain.ProgressStats, error)

	// LogMessage appends an entry to the message audit log.
	LogMessage(ctx context.Context, phone, direction, content string) error

	// GetMessageHistory retrieves logged messages for a phone number,
	// newest first, bounded by limit.
	GetMessageHistory(ctx context.Context, phone string, limit int) ([]domain.LoggedMessage, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
