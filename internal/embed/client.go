// Package embed converts text into the dense and sparse vectors used for
// hybrid retrieval. Dense vectors come from the remote embedding API; sparse
// vectors are computed locally.
package embed

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
	"unicode/utf8"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/retry"
)

// Config holds the remote embedding endpoint parameters.
type Config struct {
	URL           string
	Model         string
	Authorization string
	TokenID       string
	TokenKey      string
	Timeout       time.Duration
	MaxChars      int
}

// Gateway wraps the dense embedding API and the local sparse encoder.
type Gateway struct {
	httpClient *http.Client
	cfg        Config
	policy     retry.Policy
	sparse     *SparseEncoder
}

// NewGateway validates the config and builds the gateway.
func NewGateway(cfg Config, policy retry.Policy) (*Gateway, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.URL == "" || cfg.Model == "" {
		return nil, errors.New("embedding endpoint and model required")
	}
	if strings.TrimSpace(cfg.Authorization) == "" {
		return nil, errors.New("embedding credentials missing")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 8192
	}
	return &Gateway{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		policy:     policy,
		sparse:     NewSparseEncoder(),
	}, nil
}

type embeddingRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	EncodingFormat string `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedDense requests a dense vector for text, truncating oversized input
// first. Retries follow the shared policy; a nil vector with an error is
// returned once the budget is exhausted.
func (g *Gateway) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty embedding input")
	}
	text = truncate(text, g.cfg.MaxChars)

	body, err := json.Marshal(embeddingRequest{
		Model:          g.cfg.Model,
		Input:          text,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var vector []float32
	err = g.policy.Do(ctx, func() error {
		v, err := g.send(ctx, body)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedSparse computes the local BM25-style sparse vector. It never performs
// network I/O and never fails; degenerate input yields empty slices.
func (g *Gateway) EmbedSparse(text string) ([]uint32, []float32) {
	return g.sparse.Encode(text)
}

// truncate cuts text to at most max bytes without splitting a rune.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}

func (g *Gateway) send(ctx context.Context, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", g.cfg.Authorization)
	req.Header.Set("Token-id", g.cfg.TokenID)
	req.Header.Set("Token-key", g.cfg.TokenKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &retry.StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Data) == 0 || len(decoded.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response empty")
	}
	return decoded.Data[0].Embedding, nil
}
