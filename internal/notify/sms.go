package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

const defaultSMSBaseURL = "https://api.telnyx.com/v2"

// SMSSender defines the interface for sending text messages.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// TelnyxConfig holds configuration for the Telnyx SMS sender.
type TelnyxConfig struct {
	APIKey     string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// TelnyxSender sends SMS via the Telnyx messages endpoint.
type TelnyxSender struct {
	apiKey     string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTelnyxSender creates an SMS sender. Returns an error when required
// credentials are missing; callers that want SMS to be optional should check
// config before constructing.
func NewTelnyxSender(cfg TelnyxConfig, logger *logging.Logger) (*TelnyxSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("notify: telnyx API key is required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("notify: telnyx from number is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultSMSBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TelnyxSender{
		apiKey:     cfg.APIKey,
		fromNumber: cfg.FromNumber,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Send delivers a text message to the number.
func (s *TelnyxSender) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
		Text string `json:"text"`
	}{From: s.fromNumber, To: to, Text: body})
	if err != nil {
		return fmt.Errorf("notify: marshal sms body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("sms provider returned error status", "status", resp.StatusCode, "body", string(raw), "to", to)
		return fmt.Errorf("notify: sms provider returned status %d", resp.StatusCode)
	}

	s.logger.Info("sms sent", "to", to, "status", resp.StatusCode)
	return nil
}

// StubSMSSender is a no-op sender for testing or when SMS is disabled.
type StubSMSSender struct {
	logger *logging.Logger
}

// NewStubSMSSender creates a stub SMS sender that logs but doesn't send.
func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

// Send logs the message but doesn't actually send it.
func (s *StubSMSSender) Send(ctx context.Context, to, body string) error {
	s.logger.Info("stub sms sender: would send sms", "to", to)
	return nil
}

var _ SMSSender = (*TelnyxSender)(nil)
var _ SMSSender = (*StubSMSSender)(nil)
