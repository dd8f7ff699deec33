package dialogue

import (
	"fmt"
	"strings"

	"github.com/skillsmapper/skillsmapper/internal/domain"
)

// menuOption is one numbered entry in a selection menu. Menus are fixed
// ordered tables so the transition logic stays inspectable.
type menuOption struct {
	key   string
	label string // value stored in the profile draft
}

var educationOptions = []menuOption{
	{"1", "Primary"},
	{"2", "High School"},
	{"3", "Certificate"},
	{"4", "University"},
	{"5", "Postgraduate"},
}

var locationOptions = []menuOption{
	{"1", "Nairobi"},
	{"2", "Mombasa"},
	{"3", "Kisumu"},
	{"4", "Nakuru"},
	{"5", "Eldoret"},
	{"6", "Other"},
}

var interestOptions = []menuOption{
	{"1", "customer service"},
	{"2", "sales"},
	{"3", "computer literacy"},
	{"4", "security"},
	{"5", "teaching"},
	{"6", "healthcare"},
	{"7", "agriculture"},
	{"8", "other"},
}

func lookupOption(options []menuOption, key string) (string, bool) {
	for _, o := range options {
		if o.key == key {
			return o.label, true
		}
	}
	return "", false
}

func welcomeMenu(profile *domain.UserProfile, jobCount int) string {
	greeting := "Welcome to SkillsMapper!"
	assessmentTag := "START HERE"
	if profile != nil && profile.ProfileCompleted {
		greeting = fmt.Sprintf("Welcome back, %s!", lastFour(profile.PhoneNumber))
		assessmentTag = "(Update)"
	}

	return fmt.Sprintf(`%s

Your job matchmaker for Kenya!

Reply with number:
1 - Skills Assessment %s
2 - View Jobs (%d matches)
3 - Free Courses
4 - My Progress
5 - Success Stories
0 - Help

Reply STOP to unsubscribe`, greeting, assessmentTag, jobCount)
}

func lastFour(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}

func invalidWelcomeChoice(input string, profile *domain.UserProfile, jobCount int) string {
	return fmt.Sprintf("Invalid option: %q\n\nPlease reply with 1-5 or 0\n\n", input) +
		welcomeMenu(profile, jobCount)
}

const educationPrompt = `SKILLS ASSESSMENT

What's your highest education level?

1 - Primary School
2 - High School/Secondary
3 - Certificate/Diploma
4 - University Degree
5 - Postgraduate

Reply 0 to go back to main menu`

const educationReprompt = `Please reply with 1-5 only

1 - Primary School
2 - High School
3 - Certificate/Diploma
4 - University Degree
5 - Postgraduate

Reply 0 for main menu`

const locationPrompt = `LOCATION

Which county are you in or prefer to work?

1 - Nairobi
2 - Mombasa
3 - Kisumu
4 - Nakuru
5 - Eldoret
6 - Other Kenya

Reply 0 for main menu`

const locationReprompt = `Please reply with 1-6 only

1 - Nairobi  2 - Mombasa  3 - Kisumu
4 - Nakuru   5 - Eldoret  6 - Other

Reply 0 for main menu`

const interestsPrompt = `WORK INTERESTS

What type of work interests you most?

1 - Customer Service
2 - Sales & Marketing
3 - Computer/Data Work
4 - Security/Driving
5 - Teaching/Training
6 - Healthcare
7 - Agriculture
8 - Other

Reply 0 for main menu`

const interestsReprompt = `Please reply with 1-8 only

1-Customer Service  2-Sales & Marketing
3-Computer/Data     4-Security/Driving
5-Teaching/Training 6-Healthcare
7-Agriculture       8-Other

Reply 0 for main menu`

func assessmentComplete(jobCount, certCount int) string {
	return fmt.Sprintf(`ASSESSMENT COMPLETE!

Found %d jobs matching your profile
Recommended %d FREE courses

You'll receive detailed recommendations in the next messages.

Reply JOBS anytime for main menu.`, jobCount, certCount)
}

const completeProfileForJobs = `Complete your profile first to see personalized job matches!

Reply 1 to start skills assessment
Reply JOBS for main menu`

const completeProfileForCourses = `Complete your profile first for personalized course recommendations!

Reply 1 to start skills assessment`

const noJobsYet = `No jobs found for your profile yet.

Try updating your skills assessment or check back later.

Reply 1 to update assessment
Reply JOBS for main menu`

const noJobMatches = `No job matches found yet. Try updating your skills assessment!`

const noCourseRecommendations = `No course recommendations available yet.`

func jobListMessage(jobs []domain.Job) string {
	var b strings.Builder
	b.WriteString("YOUR TOP JOB MATCHES:\n\n")
	for i, job := range jobs {
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n%s\n\n",
			i+1, job.Title, job.Company, job.Location, salaryRange(job, "Salary negotiable"))
	}
	fmt.Fprintf(&b, "Reply job number (1-%d) for details\nReply ALL for complete list via SMS\nReply JOBS for main menu", len(jobs))
	return b.String()
}

func jobDetailMessage(job domain.Job) string {
	description := job.Description
	if description == "" {
		description = "Contact employer for details"
	}
	skills := job.RequiredSkills
	if skills == "" {
		skills = "Contact employer"
	}
	apply := job.ApplicationURL
	if apply == "" {
		apply = "Contact company directly"
	}

	return fmt.Sprintf(`JOB DETAILS

%s
Company: %s
Location: %s
Salary: %s

Description: %s

Skills needed: %s

Apply: %s

Reply JOBS for main menu
Reply 2 for more jobs`,
		job.Title, job.Company, job.Location, salaryRange(job, "Negotiable"),
		description, skills, apply)
}

func invalidJobNumber(max int) string {
	return fmt.Sprintf("Invalid job number. Reply 1-%d\n\nOr reply JOBS for main menu", max)
}

func jobRecommendationsMessage(jobs []domain.ScoredJob) string {
	var b strings.Builder
	b.WriteString("YOUR JOB RECOMMENDATIONS\n\n")
	for i, job := range jobs {
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n%s\nApply: %s\n\n",
			i+1, job.Title, job.Company, job.Location,
			salaryRange(job.Job, "Competitive salary"), job.ApplicationURL)
	}
	b.WriteString("TIP: Complete recommended courses to increase your chances!\n\nReply JOBS for main menu")
	return b.String()
}

func courseListMessage(courses []domain.ScoredCertification) string {
	var b strings.Builder
	b.WriteString("FREE COURSES FOR YOU\n\n")
	for i, c := range courses {
		fmt.Fprintf(&b, "%d. %s\nProvider: %s\nDuration: %d weeks\nStart: %s\n\n",
			i+1, c.Name, c.Provider, c.DurationWeeks, c.CertificationURL)
	}
	b.WriteString("These courses match jobs in your area!\n\nReply JOBS for main menu")
	return b.String()
}

func courseDetailMessage(c domain.Certification) string {
	return fmt.Sprintf(`COURSE DETAILS

%s
Provider: %s
Duration: %d weeks
Level: %s

Skills: %s

Start: %s

Reply JOBS for main menu
Reply 3 for more courses`,
		c.Name, c.Provider, c.DurationWeeks, c.DifficultyLevel, c.SkillsTaught, c.CertificationURL)
}

func invalidCourseNumber(max int) string {
	return fmt.Sprintf("Invalid course number. Reply 1-%d\n\nOr reply JOBS for main menu", max)
}

func progressMessage(profile *domain.UserProfile, stats *domain.ProgressStats) string {
	return fmt.Sprintf(`YOUR PROGRESS

Profile: Complete
Location: %s
Education: %s
Interest: %s

STATS:
Jobs recommended: %d
Jobs viewed: %d
Jobs applied: %d
Courses recommended: %d

TIP: Complete free courses to get more job matches!

Reply JOBS for main menu`,
		profile.Location, profile.EducationLevel, profile.Interests,
		stats.RecommendedJobs, stats.ViewedJobs, stats.AppliedJobs, stats.RecommendedCourses)
}

const completeAssessmentForProgress = `Complete your skills assessment first to track progress!

Reply 1 to start assessment
Reply JOBS for main menu`

const successStories = `SUCCESS STORIES

"Got my first job at KCB after completing Google Digital Skills!" - Mary, Kisumu

"The customer service course helped me land a call center job. Earning 30K now!" - John, Nairobi

"Found farm manager position through SkillsMapper. Very grateful!" - Grace, Nakuru

Over 500 people got jobs through our platform this year!

Reply 1 to start YOUR success story
Reply JOBS for main menu`

const helpMessage = `HOW SKILLSMAPPER WORKS

1. Take quick skills assessment
2. Get personalized job matches
3. Complete FREE courses
4. Apply for recommended jobs
5. Get hired!

COMMANDS:
- Reply JOBS anytime for main menu
- Reply numbers (1,2,3...) to select options
- Reply 0 to go back

100% FREE service
Made for Kenya

Reply JOBS for main menu`

func salaryRange(job domain.Job, fallback string) string {
	if job.SalaryMin > 0 && job.SalaryMax > 0 {
		return fmt.Sprintf("KES %d-%d", job.SalaryMin, job.SalaryMax)
	}
	return fallback
}
