package llm

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

	"github.com/sirupsen/logrus"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/jsonx"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/retry"
)

// Config holds the endpoint and credentials for one chat-completion tier.
type Config struct {
	URL           string
	Model         string
	Authorization string
	TokenID       string
	TokenKey      string
	Timeout       time.Duration
}

var ErrMissingCredentials = errors.New("llm credentials missing")

// Client calls a hosted chat-completion endpoint and decodes the JSON object
// the model was instructed to emit.
type Client struct {
	httpClient *http.Client
	cfg        Config
	policy     retry.Policy
}

// NewClient validates the configuration and builds a client with the shared
// retry policy.
func NewClient(cfg Config, policy retry.Policy) (*Client, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.URL == "" || cfg.Model == "" {
		return nil, errors.New("llm endpoint and model required")
	}
	if strings.TrimSpace(cfg.Authorization) == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		policy:     policy,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteJSON sends a system/user prompt pair and unmarshals the JSON object
// in the model's reply into v. Transient failures and unparseable replies are
// retried under the client's policy; the final error is returned once the
// budget is exhausted.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, temperature float64, v any) error {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}
	payload.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return c.policy.Do(ctx, func() error {
		content, err := c.send(ctx, body)
		if err != nil {
			logrus.WithError(err).WithField("model", c.cfg.Model).Warn("chat completion failed")
			return err
		}
		if err := jsonx.Decode(content, v); err != nil {
			logrus.WithError(err).WithField("model", c.cfg.Model).Warn("chat completion returned malformed JSON")
			return err
		}
		return nil
	})
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.Authorization)
	req.Header.Set("Token-id", c.cfg.TokenID)
	req.Header.Set("Token-key", c.cfg.TokenKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &retry.StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
