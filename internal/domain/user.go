package domain

import "time"

// Education levels recognized by the assessment, in ascending order.
var educationOrder = []string{"Primary", "High School", "Certificate", "University", "Postgraduate"}

// EducationRank returns the ordinal position of an education level, or -1
// for an unknown label. A higher rank satisfies a lower job requirement.
func EducationRank(level string) int {
	for i, l := range educationOrder {
		if l == level {
			return i
		}
	}
	return -1
}

// UserProfile is the completed (or in-progress) profile for a phone number.
type UserProfile struct {
	PhoneNumber      string    `json:"phone_number"`
	EducationLevel   string    `json:"education_level"`
	Location         string    `json:"location"`
	Interests        string    `json:"interests"`
	ProfileCompleted bool      `json:"profile_completed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProgressStats aggregates recommendation activity for a user.
type ProgressStats struct {
	RecommendedJobs    int `json:"recommended_jobs"`
	ViewedJobs         int `json:"viewed_jobs"`
	AppliedJobs        int `json:"applied_jobs"`
	RecommendedCourses int `json:"recommended_courses"`
}
