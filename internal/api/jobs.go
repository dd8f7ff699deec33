package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skillsmapper/skillsmapper/internal/store"
)

// JobsHandler exposes read access to the job catalog and stored
// recommendations.
type JobsHandler struct {
	repo store.Repository
}

// NewJobsHandler creates the jobs handler group.
func NewJobsHandler(repo store.Repository) *JobsHandler {
	return &JobsHandler{repo: repo}
}

// RegisterRoutes mounts the job routes on the router.
func (h *JobsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/jobs", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/recommendations/{phoneNumber}", h.Recommendations)
		r.Get("/{id}", h.Get)
	})
}

// List returns active jobs matching the query filters.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.JobFilter{
		Location:  q.Get("location"),
		Education: q.Get("education"),
		Company:   q.Get("company"),
		MinSalary: queryInt(r, "minSalary", 0),
		MaxSalary: queryInt(r, "maxSalary", 0),
		Limit:     queryInt(r, "limit", 20),
		Offset:    queryInt(r, "offset", 0),
	}

	jobs, err := h.repo.ListJobs(r.Context(), filter)
	if err != nil {
		slog.Error("List jobs failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"total":  len(jobs),
		"limit":  filter.Limit,
		"offset": filter.Offset,
		"jobs":   jobs,
	})
}

// Get returns one job by id.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.repo.GetJob(r.Context(), id)
	if err != nil {
		slog.Error("Get job failed", "id", id, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get job")
		return
	}
	if job == nil {
		Error(w, http.StatusNotFound, "Job not found")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"job": job})
}

// Recommendations returns the stored job recommendations for a phone
// number, highest score first.
func (h *JobsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phoneNumber")
	limit := queryInt(r, "limit", 10)

	jobs, err := h.repo.GetJobRecommendations(r.Context(), phone, limit)
	if err != nil {
		slog.Error("Get job recommendations failed", "phone", phone, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get job recommendations")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"phoneNumber": phone,
		"jobCount":    len(jobs),
		"jobs":        jobs,
	})
}
