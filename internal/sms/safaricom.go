package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	safaricomBaseURL     = "https://sandbox.safaricom.co.ke"
	safaricomSendTimeout = 15 * time.Second
	safaricomAuthTimeout = 10 * time.Second

	// A token is treated as expired this long before the gateway says so,
	// to avoid racing the expiry on in-flight sends.
	tokenExpiryBuffer = time.Minute
)

// Safaricom is the OAuth2 gateway, the fallback provider. A bearer token is
// obtained via client-credentials exchange and cached until shortly before
// expiry; a 401 on send invalidates the cache so the next attempt
// re-authenticates.
type Safaricom struct {
	consumerKey    string
	consumerSecret string
	senderID       string
	baseURL        string
	client         *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewSafaricom creates the Safaricom provider. The provider is disabled
// when the consumer key or secret is missing.
func NewSafaricom(consumerKey, consumerSecret, senderID string) *Safaricom {
	return &Safaricom{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		senderID:       senderID,
		baseURL:        safaricomBaseURL,
		client:         &http.Client{},
	}
}

// Name implements Provider.
func (p *Safaricom) Name() string { return "safaricom" }

// DisplayName implements Provider.
func (p *Safaricom) DisplayName() string { return "Safaricom" }

// Enabled implements Provider.
func (p *Safaricom) Enabled() bool { return p.consumerKey != "" && p.consumerSecret != "" }

// Priority implements Provider.
func (p *Safaricom) Priority() int { return 2 }

type safaricomSendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type safaricomSendResponse struct {
	MessageID string `json:"messageId"`
}

// Send implements Provider.
func (p *Safaricom) Send(ctx context.Context, phone, message string) (*Receipt, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, safaricomSendTimeout)
	defer cancel()

	payload, err := json.Marshal(safaricomSendRequest{
		From: p.senderID,
		To:   normalizeForDelivery(phone),
		Text: message,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost,
		p.baseURL+"/v1/sms/send", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("safaricom request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		p.invalidateToken()
		return nil, fmt.Errorf("safaricom authentication failed, token invalidated")
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("safaricom SMS endpoint not found")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("safaricom status %d", resp.StatusCode)
	}

	var sendResp safaricomSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sendResp); err != nil {
		return nil, fmt.Errorf("decode safaricom response: %w", err)
	}

	messageID := sendResp.MessageID
	if messageID == "" {
		messageID = fmt.Sprintf("saf_%d", time.Now().UnixMilli())
	}
	return &Receipt{MessageID: messageID, Status: "Success"}, nil
}

type safaricomTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in,string"`
}

// accessToken returns a cached bearer token, exchanging client credentials
// when the cache is empty or inside the expiry buffer.
func (p *Safaricom) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	authCtx, cancel := context.WithTimeout(ctx, safaricomAuthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(authCtx, http.MethodGet,
		p.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(p.consumerKey, p.consumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("safaricom token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("safaricom authentication failed: status %d", resp.StatusCode)
	}

	var tokenResp safaricomTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("safaricom token response missing access_token")
	}

	p.token = tokenResp.AccessToken
	p.tokenExpiry = time.Now().
		Add(time.Duration(tokenResp.ExpiresIn) * time.Second).
		Add(-tokenExpiryBuffer)

	return p.token, nil
}

func (p *Safaricom) invalidateToken() {
	p.mu.Lock()
	p.token = ""
	p.tokenExpiry = time.Time{}
	p.mu.Unlock()
}
