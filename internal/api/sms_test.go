package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillsmapper/skillsmapper/internal/dialogue"
	"github.com/skillsmapper/skillsmapper/internal/domain"
	"github.com/skillsmapper/skillsmapper/internal/matching"
	"github.com/skillsmapper/skillsmapper/internal/session"
	"github.com/skillsmapper/skillsmapper/internal/sms"
	"github.com/skillsmapper/skillsmapper/internal/store"
)

type nullSender struct{}

func (nullSender) Send(_ context.Context, phone, _ string) *sms.Result {
	return &sms.Result{
		Success:   true,
		Mode:      sms.ModeDemo,
		Provider:  "demo",
		To:        phone,
		MessageID: "test",
		Timestamp: time.Now(),
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore, session.Store) {
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
	controller := dialogue.New(context.Background(), sessions, repo, nullSender{},
		matching.NewEngine(repo))

	r := chi.NewRouter()
	NewSMSHandler(controller, repo).RegisterRoutes(r)
	NewJobsHandler(repo).RegisterRoutes(r)
	NewUsersHandler(repo).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo, sessions
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestWebhook(t *testing.T) {
	srv, repo, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"from and text", `{"from": "254722000000", "text": "jobs"}`, http.StatusOK},
		{"phone and message variants", `{"phone": "254722000001", "message": "jobs"}`, http.StatusOK},
		{"msisdn variant", `{"msisdn": "254722000002", "text": "jobs"}`, http.StatusOK},
		{"missing message", `{"from": "254722000000"}`, http.StatusBadRequest},
		{"missing sender", `{"text": "jobs"}`, http.StatusBadRequest},
		{"malformed json", `{"from": `, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/sms/webhook", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}

	// A processed webhook leaves an audit entry alongside the conversation
	// messages.
	msgs, err := repo.GetMessageHistory(context.Background(), "254722000000", 10)
	if err != nil {
		t.Fatalf("GetMessageHistory: %v", err)
	}
	var webhookLogged bool
	for _, m := range msgs {
		if m.Direction == domain.DirectionWebhook {
			webhookLogged = true
		}
	}
	if !webhookLogged {
		t.Error("no webhook_received entry in the message log")
	}
}

func TestSendEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/sms/send",
		`{"phoneNumber": "254722000000", "message": "hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status string     `json:"status"`
		Result sms.Result `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Result.Success || body.Result.Mode != sms.ModeDemo {
		t.Errorf("result = %+v, want a successful demo send", body.Result)
	}

	missing := postJSON(t, srv.URL+"/api/sms/send", `{"phoneNumber": "254722000000"}`)
	if missing.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d for missing message, want 400", missing.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	phone := "254722000000"

	for _, content := range []string{"one", "two"} {
		if err := repo.LogMessage(context.Background(), phone, domain.DirectionIncoming, content); err != nil {
			t.Fatalf("LogMessage: %v", err)
		}
	}

	var body struct {
		PhoneNumber  string                 `json:"phoneNumber"`
		MessageCount int                    `json:"messageCount"`
		Messages     []domain.LoggedMessage `json:"messages"`
	}
	resp := getJSON(t, srv.URL+"/api/sms/history/"+phone, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.MessageCount != 2 || len(body.Messages) != 2 {
		t.Errorf("history = %+v, want 2 messages", body)
	}
}

func TestSessionsEndpoint(t *testing.T) {
	srv, _, sessions := newTestServer(t)

	if _, err := sessions.Create(context.Background(), "254722000000", domain.SessionData{}); err != nil {
		t.Fatalf("Create session: %v", err)
	}

	var body struct {
		ActiveSessions int `json:"activeSessions"`
		Sessions       []struct {
			PhoneNumber string `json:"phone_number"`
			CurrentStep string `json:"current_step"`
		} `json:"sessions"`
	}
	resp := getJSON(t, srv.URL+"/api/sms/sessions", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.ActiveSessions != 1 || len(body.Sessions) != 1 {
		t.Fatalf("sessions = %+v, want exactly one", body)
	}
	if body.Sessions[0].CurrentStep != string(domain.StepWelcome) {
		t.Errorf("current_step = %q, want %q", body.Sessions[0].CurrentStep, domain.StepWelcome)
	}
}

func TestJobsEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var list struct {
		Total int          `json:"total"`
		Jobs  []domain.Job `json:"jobs"`
	}
	resp := getJSON(t, srv.URL+"/api/jobs", &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if list.Total != 8 {
		t.Errorf("total = %d, want 8 seeded jobs", list.Total)
	}

	var filtered struct {
		Total int `json:"total"`
	}
	getJSON(t, srv.URL+"/api/jobs?location=Nairobi", &filtered)
	if filtered.Total != 3 {
		t.Errorf("Nairobi total = %d, want 3", filtered.Total)
	}

	var single struct {
		Job domain.Job `json:"job"`
	}
	resp = getJSON(t, srv.URL+"/api/jobs/1", &single)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if single.Job.ID != 1 || single.Job.Title == "" {
		t.Errorf("job = %+v, want seeded job 1", single.Job)
	}

	notFound := getJSON(t, srv.URL+"/api/jobs/9999", nil)
	if notFound.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d for unknown job, want 404", notFound.StatusCode)
	}

	badID := getJSON(t, srv.URL+"/api/jobs/abc", nil)
	if badID.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d for garbage id, want 400", badID.StatusCode)
	}
}

func TestUsersEndpoints(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	phone := "254722000000"

	notFound := getJSON(t, srv.URL+"/api/users/"+phone, nil)
	if notFound.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d for unknown user, want 404", notFound.StatusCode)
	}

	profile := &domain.UserProfile{
		PhoneNumber:    phone,
		EducationLevel: "Certificate",
		Location:       "Kisumu",
		Interests:      "sales",
	}
	if err := repo.SaveUserProfile(context.Background(), profile); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}

	var body struct {
		User domain.UserProfile `json:"user"`
	}
	resp := getJSON(t, srv.URL+"/api/users/"+phone, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.User.Location != "Kisumu" || !body.User.ProfileCompleted {
		t.Errorf("user = %+v, want the saved profile", body.User)
	}

	var progress struct {
		User  domain.UserProfile   `json:"user"`
		Stats domain.ProgressStats `json:"stats"`
	}
	resp = getJSON(t, srv.URL+"/api/users/"+phone+"/progress", &progress)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if progress.User.PhoneNumber != phone {
		t.Errorf("progress user = %+v, want %s", progress.User, phone)
	}
}

func TestWebhookDrivesConversation(t *testing.T) {
	srv, _, sessions := newTestServer(t)
	phone := "254722000000"

	for _, msg := range []string{"jobs", "1"} {
		resp := postJSON(t, srv.URL+"/api/sms/webhook",
			`{"from": "`+phone+`", "text": "`+msg+`"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("webhook %q: status = %d, want 200", msg, resp.StatusCode)
		}
	}

	sess, err := sessions.Get(context.Background(), phone)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if sess == nil || sess.CurrentStep != domain.StepEducation {
		t.Errorf("session = %+v, want step %q", sess, domain.StepEducation)
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?limit=7&bad=abc", strings.NewReader(""))
	if got := queryInt(r, "limit", 5); got != 7 {
		t.Errorf("queryInt(limit) = %d, want 7", got)
	}
	if got := queryInt(r, "bad", 5); got != 5 {
		t.Errorf("queryInt(bad) = %d, want fallback 5", got)
	}
	if got := queryInt(r, "absent", 5); got != 5 {
		t.Errorf("queryInt(absent) = %d, want fallback 5", got)
	}
}
