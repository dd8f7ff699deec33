package matching

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skillsmapper/skillsmapper/internal/domain"
	"github.com/skillsmapper/skillsmapper/internal/store"
)

// Engine regenerates the recommendation set for a phone number. It is the
// only writer of the match and recommendation tables.
type Engine struct {
	repo store.Repository
}

// NewEngine creates a scoring engine over the repository.
func NewEngine(repo store.Repository) *Engine {
	return &Engine{repo: repo}
}

// Regenerate wipes and rebuilds all job matches and course recommendations
// for a phone number from its current profile. A missing or incomplete
// profile is a no-op. The rebuild is wholesale, never partial, so stored
// recommendations always reflect the latest profile.
func (e *Engine) Regenerate(ctx context.Context, phone string) error {
	profile, err := e.repo.GetUserProfile(ctx, phone)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile == nil || !profile.ProfileCompleted {
		return nil
	}

	if err := e.repo.DeleteJobMatches(ctx, phone); err != nil {
		return fmt.Errorf("clear job matches: %w", err)
	}
	if err := e.repo.DeleteCertRecommendations(ctx, phone); err != nil {
		return fmt.Errorf("clear cert recommendations: %w", err)
	}

	jobs, err := e.repo.ListActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("list active jobs: %w", err)
	}

	jobMatches := 0
	for i := range jobs {
		score := JobScore(profile, &jobs[i])
		if score <= jobScoreThreshold {
			continue
		}
		match := &domain.JobMatch{PhoneNumber: phone, JobID: jobs[i].ID, Score: score}
		if err := e.repo.InsertJobMatch(ctx, match); err != nil {
			slog.Error("Insert job match failed", "phone", phone, "job_id", jobs[i].ID, "error", err)
			continue
		}
		jobMatches++
	}

	certs, err := e.repo.ListFreeCertifications(ctx)
	if err != nil {
		return fmt.Errorf("list free certifications: %w", err)
	}

	certRecs := 0
	for i := range certs {
		score := CertScore(profile, &certs[i])
		if score <= certScoreThreshold {
			continue
		}
		rec := &domain.CertRecommendation{PhoneNumber: phone, CertificationID: certs[i].ID, Score: score}
		if err := e.repo.InsertCertRecommendation(ctx, rec); err != nil {
			slog.Error("Insert cert recommendation failed", "phone", phone, "cert_id", certs[i].ID, "error", err)
			continue
		}
		certRecs++
	}

	slog.Info("Regenerated recommendations", "phone", phone, "jobs", jobMatches, "courses", certRecs)
	return nil
}
