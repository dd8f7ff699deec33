package domain

import "time"

// Step identifies where in the conversation a phone number currently is.
type Step string

// Conversation steps. A session is created at StepWelcome and cleared when
// the assessment completes, so there is no explicit terminal step.
const (
	StepWelcome        Step = "welcome"
	StepEducation      Step = "education_level"
	StepLocation       Step = "location_selection"
	StepInterests      Step = "interests_selection"
	StepJobBrowsing    Step = "job_browsing"
	StepCourseBrowsing Step = "course_browsing"
)

// AssessmentDraft holds the answers collected so far during a skills
// assessment. Fields are filled in one step at a time.
type AssessmentDraft struct {
	Education string `json:"education,omitempty"`
	Location  string `json:"location,omitempty"`
	Interests string `json:"interests,omitempty"`
}

// SessionData carries the step-specific payload of a session. Only the
// fields relevant to the current step are populated: the assessment steps
// use Assessment, the browsing steps use the cached Jobs or Courses list.
type SessionData struct {
	Assessment *AssessmentDraft `json:"assessment,omitempty"`
	Jobs       []Job            `json:"jobs,omitempty"`
	Courses    []Certification  `json:"courses,omitempty"`
}

// Merge overlays the set fields of other onto d and returns the result.
// New values win; fields other leaves unset are preserved.
func (d SessionData) Merge(other SessionData) SessionData {
	out := d
	if other.Assessment != nil {
		out.Assessment = other.Assessment
	}
	if other.Jobs != nil {
		out.Jobs = other.Jobs
	}
	if other.Courses != nil {
		out.Courses = other.Courses
	}
	return out
}

// Session is the per-phone conversation state. At most one session exists
// per phone number; an expired session is treated as absent.
type Session struct {
	PhoneNumber string
	CurrentStep Step
	Data        SessionData
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session's TTL has elapsed at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
