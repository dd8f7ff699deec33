package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skillsmapper/skillsmapper/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		phone_number TEXT PRIMARY KEY,
		education_level TEXT,
		location TEXT,
		interests TEXT,
		profile_completed INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		company TEXT NOT NULL,
		location TEXT,
		salary_min INTEGER,
		salary_max INTEGER,
		description TEXT,
		required_skills TEXT,
		education_requirement TEXT,
		application_url TEXT,
		is_active INTEGER DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS certifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		provider TEXT NOT NULL,
		duration_weeks INTEGER,
		skills_taught TEXT,
		certification_url TEXT,
		difficulty_level TEXT DEFAULT 'Beginner',
		is_free INTEGER DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sms_sessions (
		phone_number TEXT PRIMARY KEY,
		current_step TEXT NOT NULL DEFAULT 'welcome',
		session_data TEXT,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sms_sessions(expires_at);

	CREATE TABLE IF NOT EXISTS sms_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phone_number TEXT,
		message_type TEXT,
		message_content TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sms_log_phone ON sms_log(phone_number, created_at);

	CREATE TABLE IF NOT EXISTS user_job_matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_phone TEXT,
		job_id INTEGER,
		match_score INTEGER,
		viewed INTEGER DEFAULT 0,
		applied INTEGER DEFAULT 0,
		recommended_at INTEGER NOT NULL,
		FOREIGN KEY (job_id) REFERENCES jobs (id)
	);
	CREATE INDEX IF NOT EXISTS idx_job_matches_phone ON user_job_matches(user_phone);

	CREATE TABLE IF NOT EXISTS user_cert_recommendations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_phone TEXT,
		certification_id INTEGER,
		priority_score INTEGER,
		recommended_at INTEGER NOT NULL,
		FOREIGN KEY (certification_id) REFERENCES certifications (id)
	);
	CREATE INDEX IF NOT EXISTS idx_cert_recs_phone ON user_cert_recommendations(user_phone);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetSession retrieves the unexpired session for a phone number.
func (s *SQLiteStore) GetSession(ctx context.Context, phone string) (*domain.Session, error) {
	query := `
		SELECT phone_number, current_step, session_data, created_at, expires_at
		FROM sms_sessions
		WHERE phone_number = ? AND expires_at > ?`

	row := s.db.QueryRowContext(ctx, query, phone, time.Now().Unix())
	return scanSession(row)
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var sess domain.Session
	var step string
	var data sql.NullString
	var createdAt, expiresAt int64

	err := row.Scan(&sess.PhoneNumber, &step, &data, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.CurrentStep = domain.Step(step)
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &sess.Data); err != nil {
			// A corrupt blob should not strand the conversation.
			slog.Warn("Discarding unreadable session data", "phone", sess.PhoneNumber, "error", err)
			sess.Data = domain.SessionData{}
		}
	}

	return &sess, nil
}

// UpsertSession creates or replaces the session row for a phone number.
func (s *SQLiteStore) UpsertSession(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess.Data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}

	query := `
	INSERT INTO sms_sessions (phone_number, current_step, session_data, created_at, expires_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(phone_number) DO UPDATE SET
		current_step = excluded.current_step,
		session_data = excluded.session_data,
		created_at = excluded.created_at,
		expires_at = excluded.expires_at`

	_, err = s.db.ExecContext(ctx, query,
		sess.PhoneNumber, string(sess.CurrentStep), string(data),
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes the session row for a phone number.
func (s *SQLiteStore) DeleteSession(ctx context.Context, phone string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sms_sessions WHERE phone_number = ?`, phone); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all rows whose TTL has elapsed.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sms_sessions WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return n, nil
}

// ListActiveSessions retrieves all sessions whose TTL has not elapsed.
func (s *SQLiteStore) ListActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	query := `
		SELECT phone_number, current_step, session_data, created_at, expires_at
		FROM sms_sessions
		WHERE expires_at > ?
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var sess domain.Session
		var step string
		var data sql.NullString
		var createdAt, expiresAt int64
		if err := rows.Scan(&sess.PhoneNumber, &step, &data, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess.CurrentStep = domain.Step(step)
		sess.CreatedAt = time.Unix(createdAt, 0)
		sess.ExpiresAt = time.Unix(expiresAt, 0)
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &sess.Data); err != nil {
				sess.Data = domain.SessionData{}
			}
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// GetUserProfile retrieves a user profile by phone number.
func (s *SQLiteStore) GetUserProfile(ctx context.Context, phone string) (*domain.UserProfile, error) {
	query := `
		SELECT phone_number, education_level, location, interests, profile_completed,
		       created_at, updated_at
		FROM users WHERE phone_number = ?`

	row := s.db.QueryRowContext(ctx, query, phone)

	var p domain.UserProfile
	var education, location, interests sql.NullString
	var completed int
	var createdAt, updatedAt int64

	err := row.Scan(&p.PhoneNumber, &education, &location, &interests, &completed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	p.EducationLevel = education.String
	p.Location = location.String
	p.Interests = interests.String
	p.ProfileCompleted = completed != 0
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	return &p, nil
}

// SaveUserProfile creates or overwrites a profile and marks it completed.
func (s *SQLiteStore) SaveUserProfile(ctx context.Context, p *domain.UserProfile) error {
	now := time.Now().Unix()
	query := `
	INSERT INTO users (phone_number, education_level, location, interests, profile_completed, created_at, updated_at)
	VALUES (?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(phone_number) DO UPDATE SET
		education_level = excluded.education_level,
		location = excluded.location,
		interests = excluded.interests,
		profile_completed = 1,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		p.PhoneNumber, p.EducationLevel, p.Location, p.Interests, now, now,
	)
	if err != nil {
		return fmt.Errorf("save user profile: %w", err)
	}
	return nil
}

const jobColumns = `id, title, company, location, salary_min, salary_max,
	description, required_skills, education_requirement, application_url, is_active`

func scanJob(scan func(dest ...any) error) (domain.Job, error) {
	var j domain.Job
	var location, description, skills, education, url sql.NullString
	var salaryMin, salaryMax sql.NullInt64
	var active int

	err := scan(&j.ID, &j.Title, &j.Company, &location, &salaryMin, &salaryMax,
		&description, &skills, &education, &url, &active)
	if err != nil {
		return j, err
	}

	j.Location = location.String
	j.SalaryMin = int(salaryMin.Int64)
	j.SalaryMax = int(salaryMax.Int64)
	j.Description = description.String
	j.RequiredSkills = skills.String
	j.EducationRequirement = education.String
	j.ApplicationURL = url.String
	j.IsActive = active != 0
	return j, nil
}

// ListActiveJobs retrieves every active job in the catalog.
func (s *SQLiteStore) ListActiveJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListJobs retrieves active jobs matching the filter.
func (s *SQLiteStore) ListJobs(ctx context.Context, f JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE is_active = 1`
	var args []any

	if f.Location != "" {
		query += ` AND (location = ? OR location = 'Remote')`
		args = append(args, f.Location)
	}
	if f.Education != "" {
		query += ` AND education_requirement = ?`
		args = append(args, f.Education)
	}
	if f.Company != "" {
		query += ` AND company LIKE ?`
		args = append(args, "%"+f.Company+"%")
	}
	if f.MinSalary > 0 {
		query += ` AND salary_min >= ?`
		args = append(args, f.MinSalary)
	}
	if f.MaxSalary > 0 {
		query += ` AND salary_max <= ?`
		args = append(args, f.MaxSalary)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// GetJob retrieves a job by id.
func (s *SQLiteStore) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan job row: %w", err)
	}
	return &j, nil
}

// ListFreeCertifications retrieves every free certification.
func (s *SQLiteStore) ListFreeCertifications(ctx context.Context) ([]domain.Certification, error) {
	query := `
		SELECT id, name, provider, duration_weeks, skills_taught,
		       certification_url, difficulty_level, is_free
		FROM certifications WHERE is_free = 1`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list free certifications: %w", err)
	}
	defer rows.Close()

	var certs []domain.Certification
	for rows.Next() {
		c, err := scanCert(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan certification row: %w", err)
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

func scanCert(scan func(dest ...any) error) (domain.Certification, error) {
	var c domain.Certification
	var skills, url, difficulty sql.NullString
	var duration sql.NullInt64
	var free int

	err := scan(&c.ID, &c.Name, &c.Provider, &duration, &skills, &url, &difficulty, &free)
	if err != nil {
		return c, err
	}

	c.DurationWeeks = int(duration.Int64)
	c.SkillsTaught = skills.String
	c.CertificationURL = url.String
	c.DifficultyLevel = difficulty.String
	c.IsFree = free != 0
	return c, nil
}

// DeleteJobMatches removes all job matches for a phone number.
func (s *SQLiteStore) DeleteJobMatches(ctx context.Context, phone string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_job_matches WHERE user_phone = ?`, phone); err != nil {
		return fmt.Errorf("delete job matches: %w", err)
	}
	return nil
}

// InsertJobMatch records one job match.
func (s *SQLiteStore) InsertJobMatch(ctx context.Context, m *domain.JobMatch) error {
	query := `
	INSERT INTO user_job_matches (user_phone, job_id, match_score, viewed, applied, recommended_at)
	VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		m.PhoneNumber, m.JobID, m.Score, boolToInt(m.Viewed), boolToInt(m.Applied), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert job match: %w", err)
	}
	return nil
}

// DeleteCertRecommendations removes all course recommendations for a phone number.
func (s *SQLiteStore) DeleteCertRecommendations(ctx context.Context, phone string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_cert_recommendations WHERE user_phone = ?`, phone); err != nil {
		return fmt.Errorf("delete cert recommendations: %w", err)
	}
	return nil
}

// InsertCertRecommendation records one course recommendation.
func (s *SQLiteStore) InsertCertRecommendation(ctx context.Context, r *domain.CertRecommendation) error {
	query := `
	INSERT INTO user_cert_recommendations (user_phone, certification_id, priority_score, recommended_at)
	VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, r.PhoneNumber, r.CertificationID, r.Score, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert cert recommendation: %w", err)
	}
	return nil
}

// GetJobRecommendations retrieves active jobs ordered by stored match score
// descending, then salary ceiling descending. Jobs without a match row sort
// last with Matched=false.
func (s *SQLiteStore) GetJobRecommendations(ctx context.Context, phone string, limit int) ([]domain.ScoredJob, error) {
	query := `
		SELECT j.id, j.title, j.company, j.location, j.salary_min, j.salary_max,
		       j.description, j.required_skills, j.education_requirement, j.application_url,
		       j.is_active, ujm.match_score
		FROM jobs j
		LEFT JOIN user_job_matches ujm ON j.id = ujm.job_id AND ujm.user_phone = ?
		WHERE j.is_active = 1
		ORDER BY ujm.match_score DESC, j.salary_max DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("get job recommendations: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredJob
	for rows.Next() {
		var sj domain.ScoredJob
		var location, description, skills, education, url sql.NullString
		var salaryMin, salaryMax sql.NullInt64
		var active int
		var score sql.NullInt64

		err := rows.Scan(&sj.ID, &sj.Title, &sj.Company, &location, &salaryMin, &salaryMax,
			&description, &skills, &education, &url, &active, &score)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation row: %w", err)
		}

		sj.Location = location.String
		sj.SalaryMin = int(salaryMin.Int64)
		sj.SalaryMax = int(salaryMax.Int64)
		sj.Description = description.String
		sj.RequiredSkills = skills.String
		sj.EducationRequirement = education.String
		sj.ApplicationURL = url.String
		sj.IsActive = active != 0
		sj.MatchScore = int(score.Int64)
		sj.Matched = score.Valid
		out = append(out, sj)
	}
	return out, rows.Err()
}

// GetCertRecommendations retrieves free certifications ordered by priority
// score descending, then duration ascending.
func (s *SQLiteStore) GetCertRecommendations(ctx context.Context, phone string, limit int) ([]domain.ScoredCertification, error) {
	query := `
		SELECT c.id, c.name, c.provider, c.duration_weeks, c.skills_taught,
		       c.certification_url, c.difficulty_level, c.is_free, ucr.priority_score
		FROM certifications c
		LEFT JOIN user_cert_recommendations ucr ON c.id = ucr.certification_id AND ucr.user_phone = ?
		WHERE c.is_free = 1
		ORDER BY ucr.priority_score DESC, c.duration_weeks ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("get cert recommendations: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredCertification
	for rows.Next() {
		var sc domain.ScoredCertification
		var skills, url, difficulty sql.NullString
		var duration, score sql.NullInt64
		var free int

		err := rows.Scan(&sc.ID, &sc.Name, &sc.Provider, &duration, &skills,
			&url, &difficulty, &free, &score)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation row: %w", err)
		}

		sc.DurationWeeks = int(duration.Int64)
		sc.SkillsTaught = skills.String
		sc.CertificationURL = url.String
		sc.DifficultyLevel = difficulty.String
		sc.IsFree = free != 0
		sc.PriorityScore = int(score.Int64)
		sc.Matched = score.Valid
		out = append(out, sc)
	}
	return out, rows.Err()
}

// GetProgressStats aggregates recommendation counts for a phone number.
func (s *SQLiteStore) GetProgressStats(ctx context.Context, phone string) (*domain.ProgressStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM user_job_matches WHERE user_phone = ?),
			(SELECT COUNT(*) FROM user_job_matches WHERE user_phone = ? AND viewed = 1),
			(SELECT COUNT(*) FROM user_job_matches WHERE user_phone = ? AND applied = 1),
			(SELECT COUNT(*) FROM user_cert_recommendations WHERE user_phone = ?)`

	var stats domain.ProgressStats
	err := s.db.QueryRowContext(ctx, query, phone, phone, phone, phone).Scan(
		&stats.RecommendedJobs, &stats.ViewedJobs, &stats.AppliedJobs, &stats.RecommendedCourses)
	if err != nil {
		return nil, fmt.Errorf("get progress stats: %w", err)
	}
	return &stats, nil
}

// LogMessage appends an entry to the message audit log.
func (s *SQLiteStore) LogMessage(ctx context.Context, phone, direction, content string) error {
	query := `INSERT INTO sms_log (phone_number, message_type, message_content, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, phone, direction, content, time.Now().Unix()); err != nil {
		return fmt.Errorf("log message: %w", err)
	}
	return nil
}

// GetMessageHistory retrieves logged messages for a phone number, newest first.
func (s *SQLiteStore) GetMessageHistory(ctx context.Context, phone string, limit int) ([]domain.LoggedMessage, error) {
	query := `
		SELECT id, phone_number, message_type, message_content, created_at
		FROM sms_log
		WHERE phone_number = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("get message history: %w", err)
	}
	defer rows.Close()

	var msgs []domain.LoggedMessage
	for rows.Next() {
		var m domain.LoggedMessage
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.PhoneNumber, &m.Direction, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
