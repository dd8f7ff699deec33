package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillsmapper/skillsmapper/internal/dialogue"
	"github.com/skillsmapper/skillsmapper/internal/domain"
	"github.com/skillsmapper/skillsmapper/internal/store"
)

const defaultHistoryLimit = 50

// SMSHandler exposes the webhook, manual send, history and session routes.
type SMSHandler struct {
	controller *dialogue.Controller
	repo       store.Repository
}

// NewSMSHandler creates the SMS handler group.
func NewSMSHandler(controller *dialogue.Controller, repo store.Repository) *SMSHandler {
	return &SMSHandler{controller: controller, repo: repo}
}

// RegisterRoutes mounts the SMS routes on the router.
func (h *SMSHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sms", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)
		r.Post("/send", h.Send)
		r.Get("/history/{phoneNumber}", h.History)
		r.Get("/sessions", h.Sessions)
	})
}

// webhookPayload accepts the field-name variants upstream gateways use.
type webhookPayload struct {
	From    string `json:"from"`
	MSISDN  string `json:"msisdn"`
	Phone   string `json:"phone"`
	Text    string `json:"text"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

func (p *webhookPayload) sender() string {
	switch {
	case p.From != "":
		return p.From
	case p.MSISDN != "":
		return p.MSISDN
	default:
		return p.Phone
	}
}

func (p *webhookPayload) body() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Message
}

// Webhook receives an inbound SMS and dispatches it to the conversation
// engine.
func (h *SMSHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	phone, message := payload.sender(), payload.body()
	if phone == "" || message == "" {
		Error(w, http.StatusBadRequest, "Missing required fields: from/phone and text/message")
		return
	}

	slog.Info("SMS webhook received", "phone", phone, "message_id", payload.ID)

	if err := h.controller.ProcessMessage(r.Context(), phone, message); err != nil {
		slog.Error("Webhook processing failed", "phone", phone, "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.repo.LogMessage(r.Context(), phone, domain.DirectionWebhook, message); err != nil {
		slog.Error("Webhook audit log failed", "phone", phone, "error", err)
	}

	JSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "SMS processed successfully",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type sendRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// Send delivers an ad-hoc message (testing and operational use).
func (h *SMSHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.PhoneNumber == "" || req.Message == "" {
		Error(w, http.StatusBadRequest, "Phone number and message required")
		return
	}

	result := h.controller.SendMessage(r.Context(), req.PhoneNumber, req.Message)

	JSON(w, http.StatusOK, map[string]any{
		"status":    "Message sent successfully",
		"to":        req.PhoneNumber,
		"result":    result,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// History returns the logged messages for a phone number, newest first.
func (h *SMSHandler) History(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phoneNumber")
	limit := queryInt(r, "limit", defaultHistoryLimit)

	messages, err := h.repo.GetMessageHistory(r.Context(), phone, limit)
	if err != nil {
		slog.Error("Get message history failed", "phone", phone, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get message history")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"phoneNumber":  phone,
		"messageCount": len(messages),
		"messages":     messages,
	})
}

type sessionView struct {
	PhoneNumber string `json:"phone_number"`
	CurrentStep string `json:"current_step"`
	CreatedAt   string `json:"created_at"`
	ExpiresAt   string `json:"expires_at"`
}

// Sessions returns all sessions whose TTL has not elapsed.
func (h *SMSHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.repo.ListActiveSessions(r.Context())
	if err != nil {
		slog.Error("List active sessions failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get sessions")
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			PhoneNumber: s.PhoneNumber,
			CurrentStep: string(s.CurrentStep),
			CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt:   s.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}

	JSON(w, http.StatusOK, map[string]any{
		"activeSessions": len(views),
		"sessions":       views,
	})
}
