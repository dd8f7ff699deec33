// Package dialogue implements the per-phone conversation state machine.
//
// Inbound messages are routed to a handler for the session's current step;
// handlers reply through the delivery engine, mutate the session store, and
// trigger recommendation scoring when an assessment completes. Delivery is
// best-effort: a failed send never blocks or corrupts the conversation,
// because SMS offers no return channel to report it on.
package dialogue

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skillsmapper/skillsmapper/internal/domain"
	"github.com/skillsmapper/skillsmapper/internal/matching"
	"github.com/skillsmapper/skillsmapper/internal/session"
	"github.com/skillsmapper/skillsmapper/internal/sms"
	"github.com/skillsmapper/skillsmapper/internal/store"
)

// Restart keywords: any of these (or an absent session) routes the message
// to the welcome menu regardless of the current step.
var restartKeywords = map[string]bool{"jobs": true, "start": true, "menu": true}

const (
	defaultJobFollowUpDelay    = 2 * time.Second
	defaultCourseFollowUpDelay = 4 * time.Second

	browsePageSize     = 3
	coursePageSize     = 5
	fullListSize       = 10
	followUpListSize   = 5
	followUpCourseSize = 3
)

type handlerFunc func(ctx context.Context, phone, msg string, sess *domain.Session) error

// Controller drives the conversation state machine.
type Controller struct {
	sessions session.Store
	repo     store.Repository
	sender   sms.Sender
	matcher  *matching.Engine

	// baseCtx bounds fire-and-forget follow-up sends so shutdown can
	// suppress late messages.
	baseCtx context.Context

	jobFollowUpDelay    time.Duration
	courseFollowUpDelay time.Duration

	handlers map[domain.Step]handlerFunc

	// Per-phone locks serialize conversation turns: the transport can
	// deliver webhooks for the same number concurrently.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option customizes a Controller.
type Option func(*Controller)

// WithFollowUpDelays overrides the post-assessment follow-up delays.
func WithFollowUpDelays(jobs, courses time.Duration) Option {
	return func(c *Controller) {
		c.jobFollowUpDelay = jobs
		c.courseFollowUpDelay = courses
	}
}

// New creates a conversation controller. baseCtx should be the process
// lifetime context; cancelling it suppresses pending follow-up sends.
func New(baseCtx context.Context, sessions session.Store, repo store.Repository,
	sender sms.Sender, matcher *matching.Engine, opts ...Option) *Controller {
	c := &Controller{
		sessions:            sessions,
		repo:                repo,
		sender:              sender,
		matcher:             matcher,
		baseCtx:             baseCtx,
		jobFollowUpDelay:    defaultJobFollowUpDelay,
		courseFollowUpDelay: defaultCourseFollowUpDelay,
		locks:               make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.handlers = map[domain.Step]handlerFunc{
		domain.StepWelcome:        c.handleWelcome,
		domain.StepEducation:      c.handleEducation,
		domain.StepLocation:       c.handleLocation,
		domain.StepInterests:      c.handleInterests,
		domain.StepJobBrowsing:    c.handleJobBrowsing,
		domain.StepCourseBrowsing: c.handleCourseBrowsing,
	}
	return c
}

// ProcessMessage handles one inbound message for a phone number. Turns for
// the same number are serialized; turns for different numbers run
// concurrently.
func (c *Controller) ProcessMessage(ctx context.Context, phone, text string) error {
	lock := c.phoneLock(phone)
	lock.Lock()
	defer lock.Unlock()

	c.logMessage(ctx, phone, domain.DirectionIncoming, text)

	msg := strings.ToLower(strings.TrimSpace(text))

	sess, err := c.sessions.Get(ctx, phone)
	if err != nil {
		return err
	}
	if sess == nil || restartKeywords[msg] {
		return c.showMainMenu(ctx, phone)
	}

	handler, ok := c.handlers[sess.CurrentStep]
	if !ok {
		slog.Warn("Session at unknown step, restarting", "phone", phone, "step", sess.CurrentStep)
		return c.showMainMenu(ctx, phone)
	}
	return handler(ctx, phone, msg, sess)
}

func (c *Controller) phoneLock(phone string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[phone]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[phone] = lock
	}
	return lock
}

func (c *Controller) showMainMenu(ctx context.Context, phone string) error {
	if _, err := c.sessions.Create(ctx, phone, domain.SessionData{}); err != nil {
		return err
	}

	profile, count := c.profileAndMatchCount(ctx, phone)
	c.send(ctx, phone, welcomeMenu(profile, count))
	return nil
}

// profileAndMatchCount loads the profile and, for completed profiles, the
// stored job match count shown in the welcome menu. Failures degrade to an
// anonymous menu.
func (c *Controller) profileAndMatchCount(ctx context.Context, phone string) (*domain.UserProfile, int) {
	profile, err := c.repo.GetUserProfile(ctx, phone)
	if err != nil {
		slog.Error("Load profile failed", "phone", phone, "error", err)
		return nil, 0
	}
	if profile == nil || !profile.ProfileCompleted {
		return profile, 0
	}
	stats, err := c.repo.GetProgressStats(ctx, phone)
	if err != nil {
		slog.Error("Load progress stats failed", "phone", phone, "error", err)
		return profile, 0
	}
	return profile, stats.RecommendedJobs
}

func (c *Controller) handleWelcome(ctx context.Context, phone, msg string, _ *domain.Session) error {
	switch msg {
	case "1":
		return c.startAssessment(ctx, phone)
	case "2":
		return c.showJobs(ctx, phone)
	case "3":
		return c.showCourses(ctx, phone)
	case "4":
		return c.showProgress(ctx, phone)
	case "5":
		c.send(ctx, phone, successStories)
		return nil
	case "0":
		c.send(ctx, phone, helpMessage)
		return nil
	default:
		// Invalid input re-displays the menu with a prefix; the session
		// stays at the welcome step.
		profile, count := c.profileAndMatchCount(ctx, phone)
		c.send(ctx, phone, invalidWelcomeChoice(msg, profile, count))
		return nil
	}
}

func (c *Controller) startAssessment(ctx context.Context, phone string) error {
	_, err := c.sessions.Update(ctx, phone, session.Updates{
		Step: domain.StepEducation,
		Data: &domain.SessionData{Assessment: &domain.AssessmentDraft{}},
	})
	if err != nil {
		return err
	}
	c.send(ctx, phone, educationPrompt)
	return nil
}

func (c *Controller) handleEducation(ctx context.Context, phone, msg string, sess *domain.Session) error {
	if msg == "0" {
		return c.showMainMenu(ctx, phone)
	}

	label, ok := lookupOption(educationOptions, msg)
	if !ok {
		c.send(ctx, phone, educationReprompt)
		return nil
	}

	draft := draftFrom(sess)
	draft.Education = label
	_, err := c.sessions.Update(ctx, phone, session.Updates{
		Step: domain.StepLocation,
		Data: &domain.SessionData{Assessment: &draft},
	})
	if err != nil {
		return err
	}
	c.send(ctx, phone, locationPrompt)
	return nil
}

func (c *Controller) handleLocation(ctx context.Context, phone, msg string, sess *domain.Session) error {
	if msg == "0" {
		return c.showMainMenu(ctx, phone)
	}

	label, ok := lookupOption(locationOptions, msg)
	if !ok {
		c.send(ctx, phone, locationReprompt)
		return nil
	}

	draft := draftFrom(sess)
	draft.Location = label
	_, err := c.sessions.Update(ctx, phone, session.Updates{
		Step: domain.StepInterests,
		Data: &domain.SessionData{Assessment: &draft},
	})
	if err != nil {
		return err
	}
	c.send(ctx, phone, interestsPrompt)
	return nil
}

func (c *Controller) handleInterests(ctx context.Context, phone, msg string, sess *domain.Session) error {
	if msg == "0" {
		return c.showMainMenu(ctx, phone)
	}

	label, ok := lookupOption(interestOptions, msg)
	if !ok {
		c.send(ctx, phone, interestsReprompt)
		return nil
	}

	draft := draftFrom(sess)
	draft.Interests = label

	profile := &domain.UserProfile{
		PhoneNumber:    phone,
		EducationLevel: draft.Education,
		Location:       draft.Location,
		Interests:      draft.Interests,
	}
	if err := c.repo.SaveUserProfile(ctx, profile); err != nil {
		return err
	}

	// Scoring faults must not block the conversation; the user simply sees
	// zero matches until the next assessment.
	if err := c.matcher.Regenerate(ctx, phone); err != nil {
		slog.Error("Regenerate recommendations failed", "phone", phone, "error", err)
	}

	jobCount, certCount := 0, 0
	if stats, err := c.repo.GetProgressStats(ctx, phone); err == nil {
		jobCount = stats.RecommendedJobs
		certCount = stats.RecommendedCourses
	}

	c.send(ctx, phone, assessmentComplete(jobCount, certCount))

	c.scheduleFollowUp(phone, c.jobFollowUpDelay, func(ctx context.Context) {
		c.sendJobRecommendations(ctx, phone, followUpListSize)
	})
	c.scheduleFollowUp(phone, c.courseFollowUpDelay, func(ctx context.Context) {
		c.sendCourseRecommendations(ctx, phone, followUpCourseSize)
	})

	return c.sessions.Clear(ctx, phone)
}

func (c *Controller) showJobs(ctx context.Context, phone string) error {
	profile, err := c.repo.GetUserProfile(ctx, phone)
	if err != nil {
		return err
	}
	if profile == nil || !profile.ProfileCompleted {
		c.send(ctx, phone, completeProfileForJobs)
		return nil
	}

	recs, err := c.repo.GetJobRecommendations(ctx, phone, browsePageSize)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		c.send(ctx, phone, noJobsYet)
		return nil
	}

	jobs := make([]domain.Job, len(recs))
	for i, r := range recs {
		jobs[i] = r.Job
	}

	c.send(ctx, phone, jobListMessage(jobs))

	_, err = c.sessions.Update(ctx, phone, session.Updates{
		Step: domain.StepJobBrowsing,
		Data: &domain.SessionData{Jobs: jobs},
	})
	return err
}

func (c *Controller) handleJobBrowsing(ctx context.Context, phone, msg string, sess *domain.Session) error {
	if msg == "0" {
		return c.showMainMenu(ctx, phone)
	}
	if msg == "all" {
		c.sendJobRecommendations(ctx, phone, fullListSize)
		return nil
	}

	jobs := sess.Data.Jobs
	idx, err := strconv.Atoi(msg)
	if err != nil || idx < 1 || idx > len(jobs) {
		c.send(ctx, phone, invalidJobNumber(len(jobs)))
		return nil
	}

	c.send(ctx, phone, jobDetailMessage(jobs[idx-1]))
	return nil
}

func (c *Controller) showCourses(ctx context.Context, phone string) error {
	profile, err := c.repo.GetUserProfile(ctx, phone)
	if err != nil {
		return err
	}
	if profile == nil || !profile.ProfileCompleted {
		c.send(ctx, phone, completeProfileForCourses)
		return nil
	}

	recs, err := c.repo.GetCertRecommendations(ctx, phone, coursePageSize)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		c.send(ctx, phone, noCourseRecommendations)
		return nil
	}

	courses := make([]domain.Certification, len(recs))
	for i, r := range recs {
		courses[i] = r.Certification
	}

	c.send(ctx, phone, courseListMessage(recs))

	_, err = c.sessions.Update(ctx, phone, session.Updates{
		Step: domain.StepCourseBrowsing,
		Data: &domain.SessionData{Courses: courses},
	})
	return err
}

func (c *Controller) handleCourseBrowsing(ctx context.Context, phone, msg string, sess *domain.Session) error {
	if msg == "0" {
		return c.showMainMenu(ctx, phone)
	}
	if msg == "all" {
		c.sendCourseRecommendations(ctx, phone, fullListSize)
		return nil
	}

	courses := sess.Data.Courses
	idx, err := strconv.Atoi(msg)
	if err != nil || idx < 1 || idx > len(courses) {
		c.send(ctx, phone, invalidCourseNumber(len(courses)))
		return nil
	}

	c.send(ctx, phone, courseDetailMessage(courses[idx-1]))
	return nil
}

func (c *Controller) showProgress(ctx context.Context, phone string) error {
	profile, err := c.repo.GetUserProfile(ctx, phone)
	if err != nil {
		return err
	}
	if profile == nil || !profile.ProfileCompleted {
		c.send(ctx, phone, completeAssessmentForProgress)
		return nil
	}

	stats, err := c.repo.GetProgressStats(ctx, phone)
	if err != nil {
		return err
	}

	c.send(ctx, phone, progressMessage(profile, stats))
	return nil
}

func (c *Controller) sendJobRecommendations(ctx context.Context, phone string, limit int) {
	recs, err := c.repo.GetJobRecommendations(ctx, phone, limit)
	if err != nil {
		slog.Error("Load job recommendations failed", "phone", phone, "error", err)
		return
	}
	if len(recs) == 0 {
		c.send(ctx, phone, noJobMatches)
		return
	}
	c.send(ctx, phone, jobRecommendationsMessage(recs))
}

func (c *Controller) sendCourseRecommendations(ctx context.Context, phone string, limit int) {
	recs, err := c.repo.GetCertRecommendations(ctx, phone, limit)
	if err != nil {
		slog.Error("Load course recommendations failed", "phone", phone, "error", err)
		return
	}
	if len(recs) == 0 {
		c.send(ctx, phone, noCourseRecommendations)
		return
	}
	c.send(ctx, phone, courseListMessage(recs))
}

// scheduleFollowUp runs fn after the delay unless the controller's base
// context is cancelled first. Follow-ups never block the triggering turn.
func (c *Controller) scheduleFollowUp(phone string, delay time.Duration, fn func(ctx context.Context)) {
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			fn(c.baseCtx)
		case <-c.baseCtx.Done():
			slog.Debug("Follow-up send suppressed by shutdown", "phone", phone)
		}
	}()
}

// SendMessage delivers an ad-hoc message outside a conversation turn (the
// manual send API).
func (c *Controller) SendMessage(ctx context.Context, phone, message string) *sms.Result {
	return c.send(ctx, phone, message)
}

// send delivers a reply and appends it to the audit log regardless of
// delivery outcome. Total provider failure is a warning, not an error: the
// conversation proceeds as if the message were sent.
func (c *Controller) send(ctx context.Context, phone, message string) *sms.Result {
	result := c.sender.Send(ctx, phone, message)
	c.logMessage(ctx, phone, domain.DirectionOutgoing, message)

	if result.Mode == sms.ModeDemoFallback {
		slog.Warn("Delivery degraded to demo fallback", "phone", phone, "error", result.Error)
	}
	return result
}

func (c *Controller) logMessage(ctx context.Context, phone, direction, content string) {
	if err := c.repo.LogMessage(ctx, phone, direction, content); err != nil {
		slog.Error("Append message log failed", "phone", phone, "direction", direction, "error", err)
	}
}

func draftFrom(sess *domain.Session) domain.AssessmentDraft {
	if sess.Data.Assessment == nil {
		return domain.AssessmentDraft{}
	}
	return *sess.Data.Assessment
}
