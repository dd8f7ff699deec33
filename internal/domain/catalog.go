package domain

import "time"

// Job is a catalog entry owned by the administrative side of the platform.
// The conversation core only reads jobs.
type Job struct {
	ID                   int64  `json:"id"`
	Title                string `json:"title"`
	Company              string `json:"company"`
	Location             string `json:"location"`
	SalaryMin            int    `json:"salary_min"`
	SalaryMax            int    `json:"salary_max"`
	Description          string `json:"description"`
	RequiredSkills       string `json:"required_skills"`
	EducationRequirement string `json:"education_requirement"`
	ApplicationURL       string `json:"application_url"`
	IsActive             bool   `json:"is_active"`
}

// Certification is a free (or paid) course in the catalog.
type Certification struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Provider         string `json:"provider"`
	DurationWeeks    int    `json:"duration_weeks"`
	SkillsTaught     string `json:"skills_taught"`
	CertificationURL string `json:"certification_url"`
	DifficultyLevel  string `json:"difficulty_level"`
	IsFree           bool   `json:"is_free"`
}

// JobMatch links a user to a job with a 0-100 match score. The set of
// matches for a phone number is regenerated wholesale whenever the profile
// is saved.
type JobMatch struct {
	PhoneNumber string
	JobID       int64
	Score       int
	Viewed      bool
	Applied     bool
}

// CertRecommendation links a user to a certification with a priority score.
type CertRecommendation struct {
	PhoneNumber     string
	CertificationID int64
	Score           int
}

// ScoredJob is a job annotated with its stored match score for retrieval.
// Matched is false for catalog entries with no match row.
type ScoredJob struct {
	Job
	MatchScore int  `json:"match_score"`
	Matched    bool `json:"matched"`
}

// ScoredCertification is a certification annotated with its priority score.
type ScoredCertification struct {
	Certification
	PriorityScore int  `json:"priority_score"`
	Matched       bool `json:"matched"`
}

// Message directions in the SMS log.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
	DirectionWebhook  = "webhook_received"
)

// LoggedMessage is one entry in the per-phone message audit log.
type LoggedMessage struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Direction   string    `json:"direction"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}
