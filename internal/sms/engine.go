package sms

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Mode describes which delivery path produced a result.
type Mode string

// Delivery modes. DemoFallback means real delivery was attempted and every
// provider failed; the caller treats it the same as demo, not as an error.
const (
	ModeReal         Mode = "real"
	ModeDemo         Mode = "demo"
	ModeDemoFallback Mode = "demo_fallback"
)

// Result describes one delivery attempt through the engine.
type Result struct {
	Success      bool      `json:"success"`
	Mode         Mode      `json:"mode"`
	Provider     string    `json:"provider"`
	ProviderName string    `json:"providerName,omitempty"`
	To           string    `json:"to"`
	MessageID    string    `json:"messageId,omitempty"`
	Cost         *Cost     `json:"cost,omitempty"`
	FallbackUsed bool      `json:"fallbackUsed"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Sender is the delivery contract the conversation layer depends on.
// Send never fails: provider exhaustion degrades to a demo_fallback result.
type Sender interface {
	Send(ctx context.Context, phone, message string) *Result
}

// ProviderStatus describes one configured provider for introspection.
type ProviderStatus struct {
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
}

// Engine sends messages through an ordered provider chain.
type Engine struct {
	enableReal bool
	providers  []Provider // ascending priority
}

// NewEngine creates a delivery engine over the given providers, sorted by
// ascending priority.
func NewEngine(enableReal bool, providers ...Provider) *Engine {
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Engine{enableReal: enableReal, providers: sorted}
}

// LogStatus logs the provider chain at startup.
func (e *Engine) LogStatus() {
	mode := "demo only"
	if e.enableReal {
		mode = "real"
	}
	for _, p := range e.providers {
		slog.Info("SMS provider registered",
			"provider", p.DisplayName(),
			"priority", p.Priority(),
			"enabled", p.Enabled())
	}
	slog.Info("SMS delivery engine initialized", "mode", mode, "providers", len(e.providers))
}

// Status reports the current provider chain, ordered by priority.
func (e *Engine) Status() (realEnabled bool, providers []ProviderStatus) {
	for _, p := range e.providers {
		providers = append(providers, ProviderStatus{
			Name:     p.DisplayName(),
			Enabled:  p.Enabled(),
			Priority: p.Priority(),
		})
	}
	return e.enableReal, providers
}

// Send delivers a message through the first working provider. Every message
// is logged for audit visibility regardless of mode. When real delivery is
// disabled the result is mode=demo; when every enabled provider fails the
// result is mode=demo_fallback carrying the last error.
func (e *Engine) Send(ctx context.Context, phone, message string) *Result {
	cost := EstimateCost(message)
	e.logDemo(phone, message, cost)

	result := &Result{
		Success:   true,
		Mode:      ModeDemo,
		Provider:  "demo",
		To:        phone,
		MessageID: "demo_" + uuid.NewString(),
		Cost:      &cost,
		Timestamp: time.Now(),
	}

	if !e.enableReal {
		return result
	}

	result.Mode = ModeReal
	if err := e.sendWithFallback(ctx, phone, message, result); err != nil {
		slog.Warn("All SMS providers failed, continuing in demo mode", "phone", phone, "error", err)
		result.Mode = ModeDemoFallback
		result.Provider = "demo"
		result.Error = err.Error()
	}
	return result
}

func (e *Engine) sendWithFallback(ctx context.Context, phone, message string, result *Result) error {
	var enabled []Provider
	for _, p := range e.providers {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return fmt.Errorf("no SMS providers configured")
	}

	var lastErr error
	for i, p := range enabled {
		start := time.Now()
		receipt, err := p.Send(ctx, phone, message)
		if err != nil {
			slog.Error("SMS provider failed, advancing fallback chain",
				"provider", p.DisplayName(), "error", err)
			lastErr = err
			continue
		}

		slog.Info("SMS sent",
			"provider", p.DisplayName(),
			"message_id", receipt.MessageID,
			"duration", time.Since(start),
			"fallback_used", i > 0)

		result.Provider = p.Name()
		result.ProviderName = p.DisplayName()
		result.MessageID = receipt.MessageID
		result.FallbackUsed = i > 0
		return nil
	}

	return fmt.Errorf("all SMS providers failed, last error: %w", lastErr)
}

func (e *Engine) logDemo(phone, message string, cost Cost) {
	slog.Debug("SMS message",
		"to", phone,
		"real_enabled", e.enableReal,
		"chars", cost.CharacterCount,
		"segments", cost.Segments,
		"body", message)
}
