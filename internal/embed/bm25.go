package embed

import (
	"hash/fnv"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SparseEncoder produces BM25-style sparse vectors locally. Term weights are
// tf-saturated only; IDF weighting is applied by the vector store's sparse
// modifier at query time, so document and query vectors stay symmetric.
type SparseEncoder struct {
	K1           float64
	B            float64
	AvgDocLength float64
}

// NewSparseEncoder returns an encoder with the standard BM25 constants.
func NewSparseEncoder() *SparseEncoder {
	return &SparseEncoder{K1: 1.2, B: 0.75, AvgDocLength: 256}
}

// Encode converts text into parallel (indices, weights) slices. Empty or
// whitespace-only input yields empty slices. The computation is purely local
// and never fails.
func (e *SparseEncoder) Encode(text string) ([]uint32, []float32) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	counts := make(map[uint32]int, len(tokens))
	for _, token := range tokens {
		counts[hashToken(token)]++
	}

	docLen := float64(len(tokens))
	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	weights := make([]float32, len(indices))
	for i, idx := range indices {
		tf := float64(counts[idx])
		weights[i] = float32(tf * (e.K1 + 1) / (tf + e.K1*(1-e.B+e.B*docLen/e.AvgDocLength)))
	}
	return indices, weights
}

func tokenize(text string) []string {
	folded := strings.ToLower(norm.NFKC.String(text))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(token))
	return h.Sum32()
}
