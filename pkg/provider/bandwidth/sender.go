// Package bandwidth implements the provider contract against a
// Bandwidth-style messaging API (v2 messages endpoint with basic auth).
package bandwidth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kart-io/smsprobe/pkg/errors"
	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/provider"
)

// DefaultBaseURL is the production messaging API endpoint.
const DefaultBaseURL = "https://messaging.bandwidth.com/api/v2"

// Config holds credentials and connection settings for the messaging API.
type Config struct {
	AccountID string
	APIToken  string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// Sender implements provider.Provider against the messaging API.
type Sender struct {
	config Config
	client *http.Client
	logger logger.Logger
}

// Option customises the sender.
type Option func(*Sender)

// WithHTTPClient overrides the HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// NewSender creates a new messaging API sender.
func NewSender(cfg Config, log logger.Logger, opts ...Option) (*Sender, error) {
	if cfg.AccountID == "" || cfg.APIToken == "" || cfg.APISecret == "" {
		return nil, errors.New(errors.ErrMissingConfig, "account id, api token, and api secret are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log == nil {
		log = logger.Discard
	}

	s := &Sender{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Name returns the provider name.
func (s *Sender) Name() string {
	return "bandwidth"
}

// messageRequest is the wire form of an outbound message.
type messageRequest struct {
	To            []string `json:"to"`
	From          string   `json:"from"`
	Text          string   `json:"text"`
	Media         []string `json:"media,omitempty"`
	ApplicationID string   `json:"applicationId"`
	Tag           string   `json:"tag"`
}

// messageResponse is the acceptance body returned by the API.
type messageResponse struct {
	ID   string `json:"id"`
	Time string `json:"time"`
}

// Send submits one message to the messaging API. A 202 means the provider
// accepted the message; any other status is a synchronous rejection.
func (s *Sender) Send(ctx context.Context, req *provider.SendRequest) (*provider.SendResponse, error) {
	if req == nil {
		return nil, errors.New(errors.ErrProviderRejected, "send request is nil")
	}

	payload := messageRequest{
		To:            []string{req.To},
		From:          req.From,
		Text:          req.Body,
		Media:         req.MediaURLs,
		ApplicationID: req.ApplicationID,
		Tag:           req.Tag,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderRejected, "failed to encode message")
	}

	url := fmt.Sprintf("%s/users/%s/messages", s.config.BaseURL, s.config.AccountID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderTransport, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(s.config.APIToken, s.config.APISecret)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.logger.Error("Messaging API request failed", "tag", req.Tag, "error", err)
		return nil, errors.Wrap(err, errors.ErrProviderTransport, "messaging API request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderTransport, "failed to read response")
	}

	if resp.StatusCode != http.StatusAccepted {
		s.logger.Warn("Messaging API rejected send",
			"tag", req.Tag,
			"status", resp.StatusCode)
		return nil, errors.Newf(errors.ErrProviderRejected,
			"API Error: %d - %s", resp.StatusCode, string(respBody))
	}

	var accepted messageResponse
	if err := json.Unmarshal(respBody, &accepted); err != nil {
		// Accepted but unparseable body; the send still went out.
		s.logger.Warn("Could not decode acceptance body", "tag", req.Tag, "error", err)
	}

	return &provider.SendResponse{
		MessageID:  accepted.ID,
		AcceptedAt: time.Now(),
	}, nil
}

// IsHealthy checks that credentials are present.
func (s *Sender) IsHealthy(ctx context.Context) error {
	if s.config.AccountID == "" || s.config.APIToken == "" {
		return errors.New(errors.ErrMissingConfig, "messaging API credentials not configured")
	}
	return nil
}

// Close releases resources.
func (s *Sender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
