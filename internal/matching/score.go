// Package matching computes job and course match scores for completed
// profiles and owns the recommendation tables.
package matching

import (
	"strings"

	"github.com/skillsmapper/skillsmapper/internal/domain"
)

// Score thresholds: matches below these are not worth recommending.
const (
	jobScoreThreshold  = 30
	certScoreThreshold = 40
)

// genericInterest is the catch-all category treated as matching any skill
// requirement.
const genericInterest = "customer service"

// JobScore computes a 0-100 compatibility score between a profile and a job.
func JobScore(profile *domain.UserProfile, job *domain.Job) int {
	score := 0

	// Education: meeting the requirement outweighs everything else.
	if domain.EducationRank(profile.EducationLevel) >= domain.EducationRank(job.EducationRequirement) {
		score += 40
	} else {
		score += 10
	}

	switch job.Location {
	case profile.Location:
		score += 30
	case "Remote":
		score += 20
	default:
		score += 5
	}

	if profile.Interests != "" && job.RequiredSkills != "" {
		interests := strings.ToLower(profile.Interests)
		skills := strings.ToLower(job.RequiredSkills)
		if strings.Contains(skills, interests) || strings.Contains(interests, genericInterest) {
			score += 30
		} else {
			score += 10
		}
	}

	return clamp(score)
}

// CertScore computes a 0-100 priority score between a profile and a
// certification.
func CertScore(profile *domain.UserProfile, cert *domain.Certification) int {
	score := 0

	if profile.Interests != "" && cert.SkillsTaught != "" {
		interests := strings.ToLower(profile.Interests)
		taught := strings.ToLower(cert.SkillsTaught)
		if strings.Contains(taught, interests) || strings.Contains(interests, genericInterest) {
			score += 50
		} else {
			score += 20
		}
	}

	if cert.DifficultyLevel == "Beginner" {
		score += 30
	}

	if cert.DurationWeeks <= 4 {
		score += 20
	}

	return clamp(score)
}

func clamp(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
