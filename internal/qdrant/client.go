// Package qdrant is a REST adapter for the vector store. It issues dense and
// sparse named-vector searches separately and fuses the ranked lists locally
// with Reciprocal Rank Fusion.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config identifies the store endpoint and the target collection.
type Config struct {
	BaseURL    string
	Collection string
	Timeout    time.Duration
}

// Candidate is a retrieved document chunk under consideration as answer
// context. RetrievalScore is assigned by fusion; RelevanceScore is assigned
// later by the LLM relevance pass.
type Candidate struct {
	ID             uint64  `json:"id"`
	RetrievalScore float64 `json:"hybrid_score"`
	RelevanceScore float64 `json:"llm_score"`
	Text           string  `json:"text"`
	Title          string  `json:"title"`
	DocID          int64   `json:"doc_id"`
}

// Point is one corpus document prepared for ingestion.
type Point struct {
	ID        uint64
	DocID     int64
	Title     string
	Text      string
	Dense     []float32
	SparseIdx []uint32
	SparseVal []float32
}

// Client talks to the store over its HTTP API.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient builds a store client.
func NewClient(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Collection = strings.TrimSpace(cfg.Collection)
	if cfg.BaseURL == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant base url and collection required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}, nil
}

type sparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

type queryRequest struct {
	Query       any    `json:"query"`
	Using       string `json:"using"`
	Limit       int    `json:"limit"`
	WithPayload bool   `json:"with_payload"`
}

type scoredPoint struct {
	ID      uint64  `json:"id"`
	Score   float64 `json:"score"`
	Payload struct {
		Text  string `json:"text"`
		Title string `json:"title"`
		DocID int64  `json:"doc_id"`
	} `json:"payload"`
}

type queryResponse struct {
	Result struct {
		Points []scoredPoint `json:"points"`
	} `json:"result"`
}

// Search runs the hybrid query: one dense and one sparse sub-query, each with
// 2*topK headroom, fused with RRF and truncated to topK. Retrieval degrades
// gracefully: a nil dense vector skips the store entirely, and store errors
// yield an empty list after logging.
func (c *Client) Search(ctx context.Context, dense []float32, sparseIdx []uint32, sparseVal []float32, topK int) []Candidate {
	if len(dense) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = 10
	}
	prefetch := topK * 2

	lists := make([][]Candidate, 0, 2)

	denseList, err := c.query(ctx, queryRequest{
		Query:       dense,
		Using:       "dense",
		Limit:       prefetch,
		WithPayload: true,
	})
	if err != nil {
		logrus.WithError(err).Warn("dense search failed")
	} else {
		lists = append(lists, denseList)
	}

	if len(sparseIdx) > 0 {
		sparseList, err := c.query(ctx, queryRequest{
			Query:       sparseVector{Indices: sparseIdx, Values: sparseVal},
			Using:       "sparse",
			Limit:       prefetch,
			WithPayload: true,
		})
		if err != nil {
			logrus.WithError(err).Warn("sparse search failed")
		} else {
			lists = append(lists, sparseList)
		}
	}

	return FuseRRF(lists, DefaultRRFConstant, topK)
}

func (c *Client) query(ctx context.Context, req queryRequest) ([]Candidate, error) {
	endpoint := fmt.Sprintf("%s/collections/%s/points/query", c.cfg.BaseURL, c.cfg.Collection)
	var decoded queryResponse
	if err := c.post(ctx, endpoint, req, &decoded); err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(decoded.Result.Points))
	for _, point := range decoded.Result.Points {
		candidates = append(candidates, Candidate{
			ID:             point.ID,
			RetrievalScore: point.Score,
			Text:           point.Payload.Text,
			Title:          point.Payload.Title,
			DocID:          point.Payload.DocID,
		})
	}
	return candidates, nil
}

// EnsureCollection creates the collection when absent: a cosine dense vector
// of the given dimension plus an IDF-modified sparse vector.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	endpoint := fmt.Sprintf("%s/collections/%s", c.cfg.BaseURL, c.cfg.Collection)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		logrus.WithField("collection", c.cfg.Collection).Info("collection already exists, resuming")
		return nil
	}

	schema := map[string]any{
		"vectors": map[string]any{
			"dense": map[string]any{"size": dim, "distance": "Cosine"},
		},
		"sparse_vectors": map[string]any{
			"sparse": map[string]any{"modifier": "idf"},
		},
	}
	if err := c.put(ctx, endpoint, schema, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"collection": c.cfg.Collection,
		"dim":        dim,
	}).Info("collection created")
	return nil
}

// UpsertPoints writes a batch of points, waiting for the store to persist.
func (c *Client) UpsertPoints(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]map[string]any, 0, len(points))
	for _, p := range points {
		payload = append(payload, map[string]any{
			"id": p.ID,
			"vector": map[string]any{
				"dense":  p.Dense,
				"sparse": sparseVector{Indices: p.SparseIdx, Values: p.SparseVal},
			},
			"payload": map[string]any{
				"doc_id": p.DocID,
				"title":  p.Title,
				"text":   p.Text,
			},
		})
	}
	endpoint := fmt.Sprintf("%s/collections/%s/points?wait=true", c.cfg.BaseURL, c.cfg.Collection)
	return c.put(ctx, endpoint, map[string]any{"points": payload}, nil)
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID uint64 `json:"id"`
		} `json:"points"`
		NextPageOffset *uint64 `json:"next_page_offset"`
	} `json:"result"`
}

// ExistingIDs scrolls the collection and returns the set of stored point ids,
// used to resume an interrupted ingestion.
func (c *Client) ExistingIDs(ctx context.Context) (map[uint64]struct{}, error) {
	endpoint := fmt.Sprintf("%s/collections/%s/points/scroll", c.cfg.BaseURL, c.cfg.Collection)
	ids := make(map[uint64]struct{})

	var offset *uint64
	for {
		body := map[string]any{
			"limit":        1000,
			"with_payload": false,
			"with_vector":  false,
		}
		if offset != nil {
			body["offset"] = *offset
		}
		var decoded scrollResponse
		if err := c.post(ctx, endpoint, body, &decoded); err != nil {
			return nil, err
		}
		for _, point := range decoded.Result.Points {
			ids[point.ID] = struct{}{}
		}
		if decoded.Result.NextPageOffset == nil {
			return ids, nil
		}
		offset = decoded.Result.NextPageOffset
	}
}

func (c *Client) post(ctx context.Context, endpoint string, body any, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) put(ctx context.Context, endpoint string, body any, out any) error {
	return c.do(ctx, http.MethodPut, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("store status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
