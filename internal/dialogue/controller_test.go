package dialogue

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skillsmapper/skillsmapper/internal/domain"
	"github.com/skillsmapper/skillsmapper/internal/matching"
	"github.com/skillsmapper/skillsmapper/internal/session"
	"github.com/skillsmapper/skillsmapper/internal/sms"
	"github.com/skillsmapper/skillsmapper/internal/store"
)

// recordingSender captures outbound messages instead of delivering them.
type recordingSender struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingSender) Send(_ context.Context, phone, message string) *sms.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message)
	return &sms.Result{
		Success:   true,
		Mode:      sms.ModeDemo,
		Provider:  "demo",
		To:        phone,
		MessageID: "test",
		Timestamp: time.Now(),
	}
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recordingSender) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return ""
	}
	return r.msgs[len(r.msgs)-1]
}

func (r *recordingSender) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

func (r *recordingSender) contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (r *recordingSender) waitFor(t *testing.T, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.contains(substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no outbound message containing %q", substr)
}

type testEnv struct {
	controller *Controller
	sender     *recordingSender
	repo       *store.SQLiteStore
	sessions   session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	sessions := session.NewSQLStore(repo, 30*time.Minute)
	sender := &recordingSender{}
	controller := New(context.Background(), sessions, repo, sender, matching.NewEngine(repo),
		WithFollowUpDelays(10*time.Millisecond, 20*time.Millisecond))

	return &testEnv{controller: controller, sender: sender, repo: repo, sessions: sessions}
}

func (e *testEnv) process(t *testing.T, phone, text string) {
	t.Helper()
	if err := e.controller.ProcessMessage(context.Background(), phone, text); err != nil {
		t.Fatalf("ProcessMessage(%q): %v", text, err)
	}
}

func (e *testEnv) step(t *testing.T, phone string) domain.Step {
	t.Helper()
	sess, err := e.sessions.Get(context.Background(), phone)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if sess == nil {
		t.Fatal("no session")
	}
	return sess.CurrentStep
}

// completeAssessment walks a phone number through the full assessment:
// High School, Nairobi, customer service. Waits for the follow-up sends so
// they cannot race with later assertions, then clears the recorder.
func (e *testEnv) completeAssessment(t *testing.T, phone string) {
	t.Helper()
	e.process(t, phone, "jobs")
	e.process(t, phone, "1")
	e.process(t, phone, "2")
	e.process(t, phone, "1")
	e.process(t, phone, "1")
	e.sender.waitFor(t, "YOUR JOB RECOMMENDATIONS")
	e.sender.waitFor(t, "FREE COURSES FOR YOU")
	e.sender.reset()
}

func TestFullAssessmentFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	phone := "254722000000"

	env.process(t, phone, "jobs")
	if !strings.Contains(env.sender.last(), "Welcome to SkillsMapper") {
		t.Fatalf("expected welcome menu, got: %q", env.sender.last())
	}

	env.process(t, phone, "1")
	if env.sender.last() != educationPrompt {
		t.Fatalf("expected education prompt, got: %q", env.sender.last())
	}
	if got := env.step(t, phone); got != domain.StepEducation {
		t.Fatalf("step = %q, want %q", got, domain.StepEducation)
	}

	env.process(t, phone, "2") // High School
	if env.sender.last() != locationPrompt {
		t.Fatalf("expected location prompt, got: %q", env.sender.last())
	}

	env.process(t, phone, "1") // Nairobi
	if env.sender.last() != interestsPrompt {
		t.Fatalf("expected interests prompt, got: %q", env.sender.last())
	}

	env.process(t, phone, "1") // customer service
	if !env.sender.contains("ASSESSMENT COMPLETE") {
		t.Fatal("expected completion message")
	}
	if !env.sender.contains("Found 8 jobs") {
		t.Error("completion message missing match count")
	}

	profile, err := env.repo.GetUserProfile(ctx, phone)
	if err != nil {
		t.Fatalf("GetUserProfile: %v", err)
	}
	if profile == nil || !profile.ProfileCompleted {
		t.Fatalf("profile = %+v, want completed", profile)
	}
	if profile.EducationLevel != "High School" || profile.Location != "Nairobi" ||
		profile.Interests != "customer service" {
		t.Errorf("profile = %+v, want the selected answers", profile)
	}

	// Completing the assessment ends the conversation.
	sess, err := env.sessions.Get(ctx, phone)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if sess != nil {
		t.Errorf("session survived assessment completion: %+v", sess)
	}

	recs, err := env.repo.GetJobRecommendations(ctx, phone, 3)
	if err != nil {
		t.Fatalf("GetJobRecommendations: %v", err)
	}
	if len(recs) == 0 || !recs[0].Matched || recs[0].MatchScore != 100 {
		t.Errorf("top recommendation = %+v, want a 100-score match", recs)
	}

	env.sender.waitFor(t, "YOUR JOB RECOMMENDATIONS")
	env.sender.waitFor(t, "FREE COURSES FOR YOU")
}

func TestInvalidWelcomeChoiceSendsOneMessage(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722000000"

	env.process(t, phone, "jobs")
	env.sender.reset()

	env.process(t, phone, "99")

	if n := env.sender.count(); n != 1 {
		t.Fatalf("invalid welcome input produced %d messages, want 1", n)
	}
	msg := env.sender.last()
	if !strings.Contains(msg, "Invalid option") || !strings.Contains(msg, "Reply with number") {
		t.Errorf("expected combined error and menu, got: %q", msg)
	}
	if got := env.step(t, phone); got != domain.StepWelcome {
		t.Errorf("step = %q after invalid input, want %q", got, domain.StepWelcome)
	}
}

func TestInvalidAssessmentInputKeepsStep(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722000000"

	env.process(t, phone, "jobs")
	env.process(t, phone, "1")

	env.process(t, phone, "9")
	if env.sender.last() != educationReprompt {
		t.Errorf("expected education reprompt, got: %q", env.sender.last())
	}
	if got := env.step(t, phone); got != domain.StepEducation {
		t.Errorf("step = %q after invalid input, want %q", got, domain.StepEducation)
	}
}

func TestZeroReturnsToMainMenu(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722000000"

	env.process(t, phone, "jobs")
	env.process(t, phone, "1")
	env.process(t, phone, "0")

	if !strings.Contains(env.sender.last(), "Reply with number") {
		t.Errorf("expected welcome menu, got: %q", env.sender.last())
	}
	if got := env.step(t, phone); got != domain.StepWelcome {
		t.Errorf("step = %q, want %q", got, domain.StepWelcome)
	}
}

func TestRestartKeywordMidAssessment(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722000000"

	env.process(t, phone, "jobs")
	env.process(t, phone, "1")
	env.process(t, phone, "2")
	if got := env.step(t, phone); got != domain.StepLocation {
		t.Fatalf("step = %q, want %q", got, domain.StepLocation)
	}

	env.process(t, phone, "MENU")
	if !strings.Contains(env.sender.last(), "Reply with number") {
		t.Errorf("expected welcome menu, got: %q", env.sender.last())
	}
	if got := env.step(t, phone); got != domain.StepWelcome {
		t.Errorf("step = %q, want %q", got, domain.StepWelcome)
	}
}

func TestJobBrowsing(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722000000"
	env.completeAssessment(t, phone)

	env.process(t, phone, "jobs")
	env.process(t, phone, "2")
	if !strings.Contains(env.sender.last(), "YOUR TOP JOB MATCHES") {
		t.Fatalf("expected job list, got: %q", env.sender.last())
	}
	if got := env.step(t, phone); got != domain.StepJobBrowsing {
		t.Fatalf("step = %q, want %q", got, domain.StepJobBrowsing)
	}

	env.process(t, phone, "1")
	if !strings.Contains(env.sender.last(), "JOB DETAILS") {
		t.Errorf("expected job detail, got: %q", env.sender.last())
	}
	// Detail view does not leave the browsing step.
	if got := env.step(t, phone); got != domain.StepJobBrowsing {
		t.Errorf("step = %q after detail, want %q", got, domain.StepJobBrowsing)
	}

	env.process(t, phone, "99")
	if !strings.Contains(env.sender.last(), "Invalid job number. Reply 1-3") {
		t.Errorf("expected bounded error, got: %q", env.sender.last())
	}

	env.process(t, phone, "all")
	if !strings.Contains(env.sender.last(), "YOUR JOB RECOMMENDATIONS") {
		t.Errorf("expected full list, got: %q", env.sender.last())
	}

	env.process(t, phone, "0")
	if got := env.step(t, phone); got != domain.StepWelcome {
		t.Errorf("step = %q after 0, want %q", got, domain.StepWelcome)
	}
}

func TestCourseBrowsing(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722000000"
	env.completeAssessment(t, phone)

	env.process(t, phone, "jobs")
	env.process(t, phone, "3")
	if !strings.Contains(env.sender.last(), "FREE COURSES FOR YOU") {
		t.Fatalf("expected course list, got: %q", env.sender.last())
	}
	if got := env.step(t, phone); got != domain.StepCourseBrowsing {
		t.Fatalf("step = %q, want %q", got, domain.StepCourseBrowsing)
	}

	env.process(t, phone, "1")
	if !strings.Contains(env.sender.last(), "COURSE DETAILS") {
		t.Errorf("expected course detail, got: %q", env.sender.last())
	}

	env.process(t, phone, "99")
	if !strings.Contains(env.sender.last(), "Invalid course number") {
		t.Errorf("expected bounded error, got: %q", env.sender.last())
	}
}

func TestBrowsingWithoutProfile(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722000000"

	env.process(t, phone, "jobs")
	env.process(t, phone, "2")
	if env.sender.last() != completeProfileForJobs {
		t.Errorf("expected profile nudge, got: %q", env.sender.last())
	}

	env.process(t, phone, "3")
	if env.sender.last() != completeProfileForCourses {
		t.Errorf("expected profile nudge, got: %q", env.sender.last())
	}

	env.process(t, phone, "4")
	if env.sender.last() != completeAssessmentForProgress {
		t.Errorf("expected assessment nudge, got: %q", env.sender.last())
	}
}

func TestProgressAfterAssessment(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722000000"
	env.completeAssessment(t, phone)

	env.process(t, phone, "jobs")
	env.process(t, phone, "4")

	msg := env.sender.last()
	if !strings.Contains(msg, "YOUR PROGRESS") {
		t.Fatalf("expected progress report, got: %q", msg)
	}
	if !strings.Contains(msg, "Jobs recommended: 8") {
		t.Errorf("progress missing match count: %q", msg)
	}
	if !strings.Contains(msg, "Education: High School") {
		t.Errorf("progress missing profile details: %q", msg)
	}
}

func TestUnknownStepRestarts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	phone := "254722000000"

	stale := &domain.Session{
		PhoneNumber: phone,
		CurrentStep: domain.Step("retired_step"),
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}
	if err := env.repo.UpsertSession(ctx, stale); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	env.process(t, phone, "5")
	if !strings.Contains(env.sender.last(), "Reply with number") {
		t.Errorf("expected welcome menu, got: %q", env.sender.last())
	}
	if got := env.step(t, phone); got != domain.StepWelcome {
		t.Errorf("step = %q, want %q", got, domain.StepWelcome)
	}
}

func TestWelcomeBackGreeting(t *testing.T) {
	env := newTestEnv(t)
	phone := "254722004567"
	env.completeAssessment(t, phone)

	env.process(t, phone, "jobs")
	msg := env.sender.last()
	if !strings.Contains(msg, "Welcome back, 4567!") {
		t.Errorf("expected returning-user greeting, got: %q", msg)
	}
	if !strings.Contains(msg, "View Jobs (8 matches)") {
		t.Errorf("expected stored match count in menu, got: %q", msg)
	}
}

func TestMessagesAreLogged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	phone := "254722000000"

	env.process(t, phone, "jobs")

	msgs, err := env.repo.GetMessageHistory(ctx, phone, 10)
	if err != nil {
		t.Fatalf("GetMessageHistory: %v", err)
	}
	var in, out int
	for _, m := range msgs {
		switch m.Direction {
		case domain.DirectionIncoming:
			in++
		case domain.DirectionOutgoing:
			out++
		}
	}
	if in != 1 || out != 1 {
		t.Errorf("logged (in=%d, out=%d), want one of each", in, out)
	}
}
