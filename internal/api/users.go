package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillsmapper/skillsmapper/internal/store"
)

// UsersHandler exposes read access to user profiles and progress.
type UsersHandler struct {
	repo store.Repository
}

// NewUsersHandler creates the users handler group.
func NewUsersHandler(repo store.Repository) *UsersHandler {
	return &UsersHandler{repo: repo}
}

// RegisterRoutes mounts the user routes on the router.
func (h *UsersHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/users/{phoneNumber}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/progress", h.Progress)
		r.Get("/certifications", h.Certifications)
	})
}

// Get returns the profile for a phone number.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phoneNumber")

	profile, err := h.repo.GetUserProfile(r.Context(), phone)
	if err != nil {
		slog.Error("Get user profile failed", "phone", phone, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get user profile")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "User not found")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"user": profile})
}

// Progress returns the profile plus recommendation statistics.
func (h *UsersHandler) Progress(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phoneNumber")

	profile, err := h.repo.GetUserProfile(r.Context(), phone)
	if err != nil {
		slog.Error("Get user profile failed", "phone", phone, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get user progress")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "User not found")
		return
	}

	stats, err := h.repo.GetProgressStats(r.Context(), phone)
	if err != nil {
		slog.Error("Get progress stats failed", "phone", phone, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get user progress")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"user":  profile,
		"stats": stats,
	})
}

// Certifications returns the stored course recommendations for a phone
// number.
func (h *UsersHandler) Certifications(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phoneNumber")
	limit := queryInt(r, "limit", 5)

	certs, err := h.repo.GetCertRecommendations(r.Context(), phone, limit)
	if err != nil {
		slog.Error("Get cert recommendations failed", "phone", phone, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get certifications")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"phoneNumber":    phone,
		"certifications": certs,
	})
}
