package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Question categories. Each one maps to a distinct answering strategy.
const (
	TypeCannotAnswer = "cannot_answer"
	TypeCalculation  = "calculation"
	TypeHasContext   = "has_context"
	TypeGeneral      = "general"
)

const contextPrefix = "Đoạn thông tin"

// Completer produces a JSON object completion for a prompt pair.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string, temperature float64, v any) error
}

// Classification is the triage result for one question.
type Classification struct {
	Type          string
	RefusalLetter string
}

// Classifier assigns one of the four question categories.
type Classifier struct {
	small Completer
}

// NewClassifier builds a classifier backed by the small model.
func NewClassifier(small Completer) *Classifier {
	return &Classifier{small: small}
}

type classifyResponse struct {
	QuestionType  string `json:"question_type"`
	RefusalLetter string `json:"refusal_letter"`
}

// Classify categorizes a question. Long questions opening with the passage
// marker are context questions without asking the model. Any model failure
// degrades to the general category so the run never stalls on triage.
func (c *Classifier) Classify(ctx context.Context, q Question) Classification {
	if strings.HasPrefix(strings.TrimSpace(q.Question), contextPrefix) && wordCount(q.Question) > 200 {
		return Classification{Type: TypeHasContext}
	}

	user := fmt.Sprintf(classifyUserTemplate, q.Question, FormatChoices(q.Choices))
	var resp classifyResponse
	if err := c.small.CompleteJSON(ctx, classifySystemPrompt, user, 0, &resp); err != nil {
		logrus.WithError(err).WithField("qid", q.QID).Warn("classification failed, using general")
		return Classification{Type: TypeGeneral}
	}

	switch resp.QuestionType {
	case TypeCannotAnswer:
		letter := strings.ToUpper(strings.TrimSpace(resp.RefusalLetter))
		if !ValidLetter(letter, len(q.Choices)) {
			// no usable refusal choice, treat as an ordinary question
			return Classification{Type: TypeGeneral}
		}
		return Classification{Type: TypeCannotAnswer, RefusalLetter: letter}
	case TypeCalculation, TypeHasContext, TypeGeneral:
		return Classification{Type: resp.QuestionType}
	default:
		logrus.WithFields(logrus.Fields{
			"qid":  q.QID,
			"type": resp.QuestionType,
		}).Warn("unknown question type, using general")
		return Classification{Type: TypeGeneral}
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
