package embed

import "testing"

func TestSparseEncodeEmptyInput(t *testing.T) {
	encoder := NewSparseEncoder()

	testCases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t"},
		{"punctuation only", "... !!! ---"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			indices, weights := encoder.Encode(tc.text)
			if len(indices) != 0 || len(weights) != 0 {
				t.Fatalf("expected empty vectors, got %d indices and %d weights", len(indices), len(weights))
			}
		})
	}
}

func TestSparseEncodeDeterministic(t *testing.T) {
	encoder := NewSparseEncoder()
	text := "Thủ đô của Việt Nam là Hà Nội, Hà Nội nằm bên sông Hồng"

	idx1, val1 := encoder.Encode(text)
	idx2, val2 := encoder.Encode(text)

	if len(idx1) == 0 {
		t.Fatal("expected non-empty sparse vector")
	}
	if len(idx1) != len(val1) {
		t.Fatalf("indices and weights length mismatch: %d vs %d", len(idx1), len(val1))
	}
	if len(idx1) != len(idx2) {
		t.Fatalf("encode is not deterministic: %d vs %d indices", len(idx1), len(idx2))
	}
	for i := range idx1 {
		if idx1[i] != idx2[i] || val1[i] != val2[i] {
			t.Fatalf("encode mismatch at %d", i)
		}
	}
	for i := 1; i < len(idx1); i++ {
		if idx1[i-1] >= idx1[i] {
			t.Fatalf("indices not strictly ascending at %d", i)
		}
	}
}

func TestSparseEncodeRepeatedTermsWeighHigher(t *testing.T) {
	encoder := NewSparseEncoder()

	single, sw := encoder.Encode("hội nhập kinh tế")
	repeated, rw := encoder.Encode("kinh tế kinh tế kinh tế hội nhập")

	weightFor := func(indices []uint32, weights []float32, token string) float32 {
		target := hashToken(token)
		for i, idx := range indices {
			if idx == target {
				return weights[i]
			}
		}
		return 0
	}

	if weightFor(repeated, rw, "kinh") <= weightFor(single, sw, "kinh") {
		t.Fatal("expected repeated term to carry a higher weight")
	}
}

func TestTokenizeFoldsCaseAndPunctuation(t *testing.T) {
	tokens := tokenize("Việt-Nam, 2025: GDP!")
	expected := []string{"việt", "nam", "2025", "gdp"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens got %d (%v)", len(expected), len(tokens), tokens)
	}
	for i, token := range tokens {
		if token != expected[i] {
			t.Fatalf("token %d: expected %q got %q", i, expected[i], token)
		}
	}
}
