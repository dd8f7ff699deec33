package sms

import "context"

// Receipt is what a gateway reports back for an accepted message.
type Receipt struct {
	MessageID string
	Cost      string
	Status    string
}

// Provider is one SMS gateway in the fallback chain. Providers are
// registered statically; missing credentials mark a provider disabled
// rather than removing it from the list.
type Provider interface {
	// Name is the stable identifier used in delivery results.
	Name() string

	// DisplayName is the human-readable gateway name for logs.
	DisplayName() string

	// Enabled reports whether the provider has the credentials it needs.
	Enabled() bool

	// Priority orders the fallback chain; lower is tried first.
	Priority() int

	// Send attempts delivery of one message. The provider applies its own
	// bounded timeout on top of ctx.
	Send(ctx context.Context, phone, message string) (*Receipt, error)
}
