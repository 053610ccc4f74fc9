package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is a transactional email
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	// Link is the action the message asks the recipient to follow; it is not sent to the API
	Link string `json:"-"`
}

// Mailer sends transactional email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// APIError is returned when the email API answers with a non-2xx status
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mail api returned %d: %s", e.Status, e.Body)
}

// Client posts messages to a transactional-email HTTP API
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewClient creates a Client for the API rooted at baseURL
func NewClient(baseURL, apiKey, from string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts msg to <baseURL>/emails; an empty From uses the configured sender
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = c.from
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mail: message has no recipients")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail: failed to send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Noop logs messages instead of sending them
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a Noop mailer
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger.Named("mail")}
}

// Send logs the message recipients and subject, and its link at debug level
func (n *Noop) Send(ctx context.Context, msg Message) error {
	n.logger.Info("mail api not configured, message not sent",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	if msg.Link != "" {
		n.logger.Debug("unsent message link", zap.Strings("to", msg.To), zap.String("link", msg.Link))
	}
	return nil
}
