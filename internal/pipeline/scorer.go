package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/qdrant"
)

// RelevanceScorer asks the small model to grade retrieved candidates against
// a question and keeps only those above a threshold.
type RelevanceScorer struct {
	small     Completer
	threshold float64
	maxDocs   int
}

// NewRelevanceScorer builds a scorer. Candidates scoring strictly above
// threshold survive, at most maxDocs of them.
func NewRelevanceScorer(small Completer, threshold float64, maxDocs int) *RelevanceScorer {
	if maxDocs <= 0 {
		maxDocs = 5
	}
	return &RelevanceScorer{small: small, threshold: threshold, maxDocs: maxDocs}
}

type relevanceResponse struct {
	Reasoning string        `json:"reasoning"`
	Indices   []json.Number `json:"indices"`
	Scores    []json.Number `json:"scores"`
}

// Score grades candidates in one batched call and returns the survivors
// sorted by score descending. A scoring failure returns no candidates; the
// caller falls back to answering without context.
func (s *RelevanceScorer) Score(ctx context.Context, q Question, candidates []qdrant.Candidate) []qdrant.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	var docs strings.Builder
	for i, cand := range candidates {
		fmt.Fprintf(&docs, "[%d] %s\n%s\n\n", i, cand.Title, Snippet(cand.Text, 1500))
	}
	user := fmt.Sprintf(relevanceUserTemplate, q.Question, FormatChoices(q.Choices), strings.TrimRight(docs.String(), "\n"))

	var resp relevanceResponse
	if err := s.small.CompleteJSON(ctx, relevanceSystemPrompt, user, 0, &resp); err != nil {
		logrus.WithError(err).WithField("qid", q.QID).Warn("relevance scoring failed, dropping candidates")
		return nil
	}

	kept := make([]qdrant.Candidate, 0, s.maxDocs)
	for i, rawIdx := range resp.Indices {
		if i >= len(resp.Scores) {
			break
		}
		idx, err := rawIdx.Int64()
		if err != nil || idx < 0 || int(idx) >= len(candidates) {
			continue
		}
		score, err := resp.Scores[i].Float64()
		if err != nil {
			continue
		}
		if score > s.threshold {
			cand := candidates[idx]
			cand.RelevanceScore = score
			kept = append(kept, cand)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RelevanceScore > kept[j].RelevanceScore
	})
	if len(kept) > s.maxDocs {
		kept = kept[:s.maxDocs]
	}
	return kept
}
