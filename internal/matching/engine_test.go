package matching

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/skillsmapper/skillsmapper/internal/domain"
	"github.com/skillsmapper/skillsmapper/internal/store"
)

func newTestRepo(t *testing.T) *store.SQLiteStore {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return repo
}

func TestRegenerateMissingProfileIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	engine := NewEngine(repo)
	ctx := context.Background()

	if err := engine.Regenerate(ctx, "254722000000"); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	stats, err := repo.GetProgressStats(ctx, "254722000000")
	if err != nil {
		t.Fatalf("GetProgressStats: %v", err)
	}
	if stats.RecommendedJobs != 0 || stats.RecommendedCourses != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}

func TestRegenerateBuildsMatches(t *testing.T) {
	repo := newTestRepo(t)
	engine := NewEngine(repo)
	ctx := context.Background()
	phone := "254722000000"

	profile := &domain.UserProfile{
		PhoneNumber:    phone,
		EducationLevel: "High School",
		Location:       "Nairobi",
		Interests:      "customer service",
	}
	if err := repo.SaveUserProfile(ctx, profile); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}

	if err := engine.Regenerate(ctx, phone); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	// The generic interest matches every seeded job above the threshold.
	stats, err := repo.GetProgressStats(ctx, phone)
	if err != nil {
		t.Fatalf("GetProgressStats: %v", err)
	}
	if stats.RecommendedJobs != 8 {
		t.Errorf("RecommendedJobs = %d, want 8", stats.RecommendedJobs)
	}
	if stats.RecommendedCourses != 8 {
		t.Errorf("RecommendedCourses = %d, want 8", stats.RecommendedCourses)
	}

	recs, err := repo.GetJobRecommendations(ctx, phone, 3)
	if err != nil {
		t.Fatalf("GetJobRecommendations: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}
	if !recs[0].Matched || recs[0].MatchScore != 100 {
		t.Errorf("top recommendation = {score: %d, matched: %v}, want a 100-score match",
			recs[0].MatchScore, recs[0].Matched)
	}
}

func TestRegenerateIsWholesale(t *testing.T) {
	repo := newTestRepo(t)
	engine := NewEngine(repo)
	ctx := context.Background()
	phone := "254722000000"

	first := &domain.UserProfile{
		PhoneNumber:    phone,
		EducationLevel: "High School",
		Location:       "Nairobi",
		Interests:      "customer service",
	}
	if err := repo.SaveUserProfile(ctx, first); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}
	if err := engine.Regenerate(ctx, phone); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	// A second run from the same profile must not duplicate matches.
	if err := engine.Regenerate(ctx, phone); err != nil {
		t.Fatalf("Regenerate again: %v", err)
	}
	stats, err := repo.GetProgressStats(ctx, phone)
	if err != nil {
		t.Fatalf("GetProgressStats: %v", err)
	}
	if stats.RecommendedJobs != 8 {
		t.Errorf("RecommendedJobs after rerun = %d, want 8", stats.RecommendedJobs)
	}

	// A narrower profile replaces the old set rather than adding to it.
	second := &domain.UserProfile{
		PhoneNumber:    phone,
		EducationLevel: "Primary",
		Location:       "Other",
		Interests:      "healthcare",
	}
	if err := repo.SaveUserProfile(ctx, second); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}
	if err := engine.Regenerate(ctx, phone); err != nil {
		t.Fatalf("Regenerate after update: %v", err)
	}

	after, err := repo.GetProgressStats(ctx, phone)
	if err != nil {
		t.Fatalf("GetProgressStats: %v", err)
	}
	if after.RecommendedJobs >= stats.RecommendedJobs {
		t.Errorf("RecommendedJobs = %d after narrowing the profile, want fewer than %d",
			after.RecommendedJobs, stats.RecommendedJobs)
	}
}
