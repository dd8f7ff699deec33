package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	africasTalkingBaseURL = "https://api.africastalking.com"
	africasTalkingTimeout = 15 * time.Second

	// Sandbox accounts must not set a sender id.
	africasTalkingSandbox = "sandbox"
)

// AfricasTalking is the bulk-SMS gateway, tried first in the fallback
// chain. Authentication is a static API key header; no token exchange.
type AfricasTalking struct {
	username string
	apiKey   string
	senderID string
	baseURL  string
	client   *http.Client
}

// NewAfricasTalking creates the Africa's Talking provider. The provider is
// disabled when username or API key is missing.
func NewAfricasTalking(username, apiKey, senderID string) *AfricasTalking {
	return &AfricasTalking{
		username: username,
		apiKey:   apiKey,
		senderID: senderID,
		baseURL:  africasTalkingBaseURL,
		client:   &http.Client{},
	}
}

// Name implements Provider.
func (p *AfricasTalking) Name() string { return "africastalking" }

// DisplayName implements Provider.
func (p *AfricasTalking) DisplayName() string { return "Africa's Talking" }

// Enabled implements Provider.
func (p *AfricasTalking) Enabled() bool { return p.username != "" && p.apiKey != "" }

// Priority implements Provider.
func (p *AfricasTalking) Priority() int { return 1 }

type africasTalkingRequest struct {
	Username string   `json:"username"`
	To       []string `json:"to"`
	Message  string   `json:"message"`
	From     string   `json:"from,omitempty"`
}

type africasTalkingResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			Cost       string `json:"cost"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send implements Provider.
func (p *AfricasTalking) Send(ctx context.Context, phone, message string) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, africasTalkingTimeout)
	defer cancel()

	reqBody := africasTalkingRequest{
		Username: p.username,
		To:       []string{InternationalFormat(phone)},
		Message:  message,
	}
	if p.username != africasTalkingSandbox {
		reqBody.From = p.senderID
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/version1/messaging", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apiKey", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("africastalking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("africastalking status %d", resp.StatusCode)
	}

	var atResp africasTalkingResponse
	if err := json.NewDecoder(resp.Body).Decode(&atResp); err != nil {
		return nil, fmt.Errorf("decode africastalking response: %w", err)
	}

	data := atResp.SMSMessageData
	if data.Message == "InvalidSenderId" {
		return nil, fmt.Errorf("invalid sender id, omit sender id for sandbox accounts")
	}

	if len(data.Recipients) > 0 {
		r := data.Recipients[0]
		// Status code 101 is the gateway's "accepted" code.
		if r.Status == "Success" || r.StatusCode == 101 {
			return &Receipt{MessageID: r.MessageID, Cost: r.Cost, Status: r.Status}, nil
		}
		return nil, fmt.Errorf("message rejected: %s (code %d)", r.Status, r.StatusCode)
	}

	// Sandbox accounts can report "Sent" without a recipients array.
	if data.Message == "Sent" {
		return &Receipt{
			MessageID: fmt.Sprintf("at_sandbox_%d", time.Now().UnixMilli()),
			Cost:      "FREE (Sandbox)",
			Status:    "Sent",
		}, nil
	}

	return nil, fmt.Errorf("unexpected africastalking response: %q", data.Message)
}
