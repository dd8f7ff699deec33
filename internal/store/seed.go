package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Seed inserts the starter job and certification catalog if the catalog is
// empty. Safe to call on every startup.
func (s *SQLiteStore) Seed(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return fmt.Errorf("count jobs: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().Unix()

	jobs := []struct {
		title, company, location       string
		salaryMin, salaryMax           int
		description, skills, education string
		url                            string
	}{
		{"Customer Service Representative", "KCB Bank", "Nairobi", 25000, 35000,
			"Handle customer inquiries and provide excellent service",
			"communication,customer service,computer literacy", "High School", "https://kcbgroup.com/careers"},
		{"Sales Agent", "Safaricom", "Mombasa", 30000, 45000,
			"Sell products and services to customers",
			"sales,communication,target achievement", "Certificate", "https://safaricom.co.ke/careers"},
		{"Data Entry Clerk", "Kenya Red Cross", "Kisumu", 20000, 30000,
			"Enter and manage data accurately",
			"computer literacy,data entry,attention to detail", "High School", "https://redcross.or.ke/jobs"},
		{"Security Guard", "G4S Kenya", "Nakuru", 18000, 25000,
			"Provide security services",
			"security,vigilance,physical fitness", "Primary", "https://g4s.co.ke/careers"},
		{"Teaching Assistant", "Bridge International", "Eldoret", 22000, 32000,
			"Assist teachers in classroom activities",
			"teaching,communication,patience", "Certificate", "https://bridgeinternationalacademies.com/careers"},
		{"Motorcycle Taxi Driver", "Uber Boda", "Nairobi", 35000, 50000,
			"Provide motorcycle taxi services",
			"driving,navigation,customer service", "Primary", "https://uber.com/ke/drive/"},
		{"Call Center Agent", "Teletech Kenya", "Nairobi", 28000, 38000,
			"Handle customer calls and support",
			"communication,computer literacy,problem solving", "High School", "https://teletech.com/careers"},
		{"Farm Worker", "Del Monte Kenya", "Thika", 15000, 22000,
			"Agricultural work and crop management",
			"agriculture,physical fitness,teamwork", "Primary", "https://freshdelmonte.com/careers"},
	}

	jobQuery := `
	INSERT INTO jobs (title, company, location, salary_min, salary_max, description,
		required_skills, education_requirement, application_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, j := range jobs {
		if _, err := s.db.ExecContext(ctx, jobQuery,
			j.title, j.company, j.location, j.salaryMin, j.salaryMax,
			j.description, j.skills, j.education, j.url, now); err != nil {
			return fmt.Errorf("seed job %q: %w", j.title, err)
		}
	}

	certs := []struct {
		name, provider          string
		durationWeeks           int
		skills, url, difficulty string
	}{
		{"Google Digital Skills for Africa", "Google", 4,
			"digital marketing,online presence,e-commerce", "https://learndigital.withgoogle.com/digitalskills", "Beginner"},
		{"Microsoft Office Specialist", "Microsoft", 6,
			"microsoft office,excel,word,powerpoint", "https://www.microsoft.com/learning", "Beginner"},
		{"Customer Service Excellence", "Coursera", 3,
			"customer service,communication,problem solving", "https://coursera.org/customer-service", "Beginner"},
		{"Basic Computer Skills", "Khan Academy", 2,
			"computer literacy,internet basics,email", "https://khanacademy.org/computing", "Beginner"},
		{"English Communication", "FutureLearn", 4,
			"english,communication,writing", "https://futurelearn.com/courses/english-communication", "Beginner"},
		{"Financial Literacy", "edX", 3,
			"finance,budgeting,saving", "https://edx.org/course/financial-literacy", "Beginner"},
		{"Digital Marketing Fundamentals", "Google", 8,
			"digital marketing,social media,seo", "https://skillshop.exceedlms.com/student/catalog", "Intermediate"},
		{"Data Entry Skills", "Alison", 2,
			"data entry,typing,accuracy", "https://alison.com/course/data-entry-skills", "Beginner"},
	}

	certQuery := `
	INSERT INTO certifications (name, provider, duration_weeks, skills_taught,
		certification_url, difficulty_level, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, c := range certs {
		if _, err := s.db.ExecContext(ctx, certQuery,
			c.name, c.provider, c.durationWeeks, c.skills, c.url, c.difficulty, now); err != nil {
			return fmt.Errorf("seed certification %q: %w", c.name, err)
		}
	}

	slog.Info("Seeded starter catalog", "jobs", len(jobs), "certifications", len(certs))
	return nil
}
