package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/qdrant"
)

// Answer is a resolved answer letter with its supporting explanation.
type Answer struct {
	Letter string
	Reason string
}

// Synthesizer turns a classified question into a final answer using the
// strategy matching its category.
type Synthesizer struct {
	small         Completer
	large         Completer
	defaultAnswer string
}

// NewSynthesizer builds a synthesizer. defaultAnswer is returned whenever a
// strategy cannot produce a valid letter.
func NewSynthesizer(small, large Completer, defaultAnswer string) *Synthesizer {
	if defaultAnswer == "" {
		defaultAnswer = "A"
	}
	return &Synthesizer{small: small, large: large, defaultAnswer: defaultAnswer}
}

// Refuse answers a refusal question by selecting its refusal choice directly.
func (s *Synthesizer) Refuse(q Question, refusalLetter string) Answer {
	return Answer{
		Letter: refusalLetter,
		Reason: "The question requests content that must be declined, so the refusal choice is selected.",
	}
}

type reasonerResponse struct {
	ProblemIdentification string `json:"problem_identification"`
	Formula               string `json:"formula"`
	NumericExpression     string `json:"numeric_expression"`
	StepByStepEvaluation  string `json:"step_by_step_evaluation"`
	IntermediateResult    string `json:"intermediate_result"`
}

type verifierResponse struct {
	VerificationProcess string `json:"verification_process"`
	Answer              string `json:"answer"`
}

// Calculation solves a numeric question in two stages: the large model works
// the problem, then the small model verifies the solution and commits to a
// letter. The verifier's letter is authoritative.
func (s *Synthesizer) Calculation(ctx context.Context, q Question) Answer {
	choices := FormatChoices(q.Choices)

	var worked reasonerResponse
	solution := "(no worked solution available)"
	if err := s.large.CompleteJSON(ctx, reasonerSystemPrompt, fmt.Sprintf(reasonerUserTemplate, q.Question, choices), 0.2, &worked); err != nil {
		logrus.WithError(err).WithField("qid", q.QID).Warn("reasoning stage failed, verifier solves alone")
	} else {
		raw, _ := json.Marshal(worked)
		solution = string(raw)
	}

	var verdict verifierResponse
	if err := s.small.CompleteJSON(ctx, verifierSystemPrompt, fmt.Sprintf(verifierUserTemplate, q.Question, choices, solution), 0, &verdict); err != nil {
		logrus.WithError(err).WithField("qid", q.QID).Warn("verification stage failed")
		return s.fallback(q, "Both calculation stages failed.")
	}
	return s.resolve(q, verdict.Answer, verdict.VerificationProcess)
}

type answerResponse struct {
	Reason string `json:"reason"`
	Answer string `json:"answer"`
}

// ReadContext answers a question whose passage is embedded in the question
// text itself.
func (s *Synthesizer) ReadContext(ctx context.Context, q Question) Answer {
	user := fmt.Sprintf(contextAnswerUserTemplate, q.Question, FormatChoices(q.Choices))
	var resp answerResponse
	if err := s.large.CompleteJSON(ctx, contextAnswerSystemPrompt, user, 0, &resp); err != nil {
		logrus.WithError(err).WithField("qid", q.QID).Warn("context answering failed")
		return s.fallback(q, "Answering from the embedded passage failed.")
	}
	return s.resolve(q, resp.Answer, resp.Reason)
}

// General answers with retrieved documents as grounding. An empty document
// list still produces an answer from general knowledge.
func (s *Synthesizer) General(ctx context.Context, q Question, docs []qdrant.Candidate) Answer {
	var refs strings.Builder
	if len(docs) == 0 {
		refs.WriteString("(no reference documents)")
	}
	for i, doc := range docs {
		fmt.Fprintf(&refs, "[%d] %s\n%s\n\n", i+1, doc.Title, Snippet(doc.Text, 2000))
	}

	user := fmt.Sprintf(generalAnswerUserTemplate, q.Question, FormatChoices(q.Choices), strings.TrimRight(refs.String(), "\n"))
	var resp answerResponse
	if err := s.large.CompleteJSON(ctx, generalAnswerSystemPrompt, user, 0, &resp); err != nil {
		logrus.WithError(err).WithField("qid", q.QID).Warn("general answering failed")
		return s.fallback(q, "Answering with retrieved documents failed.")
	}
	return s.resolve(q, resp.Answer, resp.Reason)
}

func (s *Synthesizer) resolve(q Question, letter, reason string) Answer {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if !ValidLetter(letter, len(q.Choices)) {
		logrus.WithFields(logrus.Fields{
			"qid":    q.QID,
			"letter": letter,
		}).Warn("invalid answer letter, using default")
		return s.fallback(q, fmt.Sprintf("The model returned %q, which names no choice.", letter))
	}
	return Answer{Letter: letter, Reason: reason}
}

func (s *Synthesizer) fallback(q Question, why string) Answer {
	return Answer{
		Letter: s.defaultAnswer,
		Reason: why + " Falling back to the default answer.",
	}
}
