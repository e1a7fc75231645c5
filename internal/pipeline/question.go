// Package pipeline answers multiple-choice questions by classifying each
// question, retrieving supporting passages, scoring their relevance and
// synthesizing a final answer letter.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Question is one multiple-choice item from the input file.
type Question struct {
	QID      string   `json:"qid"`
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

// Prediction is the full per-question output record.
type Prediction struct {
	QID           string   `json:"qid"`
	Predict       string   `json:"predict"`
	Reason        string   `json:"reason"`
	QuestionType  string   `json:"question_type"`
	ReferenceDocs []string `json:"reference_docs"`
}

// LoadQuestions reads the question file, a JSON array of question objects.
func LoadQuestions(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	return questions, nil
}

// Labels returns the valid answer letters for a question with n choices.
func Labels(n int) []string {
	labels := make([]string, 0, n)
	for i := 0; i < n; i++ {
		labels = append(labels, string(rune('A'+i)))
	}
	return labels
}

// ChoiceLabel maps a choice index to its letter.
func ChoiceLabel(i int) string {
	return string(rune('A' + i))
}

// FormatChoices renders choices as "A. ..." lines for prompts.
func FormatChoices(choices []string) string {
	var b strings.Builder
	for i, choice := range choices {
		fmt.Fprintf(&b, "%s. %s\n", ChoiceLabel(i), choice)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ValidLetter reports whether letter names one of the question's choices.
func ValidLetter(letter string, numChoices int) bool {
	if len(letter) != 1 || numChoices <= 0 {
		return false
	}
	idx := int(letter[0] - 'A')
	return idx >= 0 && idx < numChoices
}

// Snippet truncates text for log and reference output.
func Snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
