package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/qdrant"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/util"
)

// DenseEmbedder produces the dense query vector for retrieval.
type DenseEmbedder interface {
	EmbedDense(ctx context.Context, text string) ([]float32, error)
}

// SparseEmbedder produces the lexical sparse vector. It is local and cannot
// fail.
type SparseEmbedder interface {
	EmbedSparse(text string) ([]uint32, []float32)
}

// VectorSearcher runs the hybrid retrieval query.
type VectorSearcher interface {
	Search(ctx context.Context, dense []float32, sparseIdx []uint32, sparseVal []float32, topK int) []qdrant.Candidate
}

// Event is one progress notification of a run.
type Event struct {
	Type         string    `json:"type"`
	RunID        string    `json:"run_id"`
	QID          string    `json:"qid,omitempty"`
	Answer       string    `json:"answer,omitempty"`
	QuestionType string    `json:"question_type,omitempty"`
	Processed    int       `json:"processed"`
	Total        int       `json:"total"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventSink receives progress events. Implementations must not block.
type EventSink interface {
	Broadcast(ev Event)
}

// RunStore persists run state and per-question results.
type RunStore interface {
	SaveRecord(runID string, p Prediction) error
	UpdateRun(runID string, processed, total int, status string) error
}

// Options are the orchestrator tunables.
type Options struct {
	TopK               int
	CheckpointInterval int
	OutputDir          string
	// BranchDelay spaces out API calls between questions. Zero disables it.
	BranchDelay time.Duration
}

// Orchestrator drives the full answering pipeline over a question set.
type Orchestrator struct {
	classifier  *Classifier
	scorer      *RelevanceScorer
	synthesizer *Synthesizer
	dense       DenseEmbedder
	sparse      SparseEmbedder
	searcher    VectorSearcher
	sink        EventSink
	store       RunStore
	opts        Options
}

// NewOrchestrator wires the pipeline stages together. sink and store may be
// nil when progress reporting or persistence is not wanted.
func NewOrchestrator(classifier *Classifier, scorer *RelevanceScorer, synthesizer *Synthesizer,
	dense DenseEmbedder, sparse SparseEmbedder, searcher VectorSearcher,
	sink EventSink, store RunStore, opts Options) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = 30
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = 5
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Orchestrator{
		classifier:  classifier,
		scorer:      scorer,
		synthesizer: synthesizer,
		dense:       dense,
		sparse:      sparse,
		searcher:    searcher,
		sink:        sink,
		store:       store,
		opts:        opts,
	}
}

// Run answers every question in order, checkpointing progress, and returns
// the prediction records. Questions already present in the checkpoint file
// are skipped so an interrupted run resumes where it stopped.
func (o *Orchestrator) Run(ctx context.Context, questions []Question) ([]Prediction, error) {
	runID := uuid.New().String()
	total := len(questions)
	checkpointPath := filepath.Join(o.opts.OutputDir, "checkpoint.json")

	preds, err := ReadPredictions(checkpointPath)
	if err != nil {
		return nil, err
	}
	done := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		done[p.QID] = struct{}{}
	}
	if len(preds) > 0 {
		logrus.WithField("resumed", len(preds)).Info("resuming from checkpoint")
	}

	o.emit(Event{Type: "start", RunID: runID, Processed: len(preds), Total: total})
	o.updateRun(runID, len(preds), total, "running")

	sinceCheckpoint := 0
	for _, q := range questions {
		if err := ctx.Err(); err != nil {
			o.updateRun(runID, len(preds), total, "cancelled")
			return preds, err
		}
		if _, ok := done[q.QID]; ok {
			continue
		}

		watch := util.NewStopwatch()
		pred := o.answer(ctx, q)
		preds = append(preds, pred)
		done[q.QID] = struct{}{}
		sinceCheckpoint++

		logrus.WithFields(logrus.Fields{
			"qid":     q.QID,
			"type":    pred.QuestionType,
			"answer":  pred.Predict,
			"took":    watch.Elapsed().Round(time.Millisecond),
		}).Info("question answered")

		if o.store != nil {
			if err := o.store.SaveRecord(runID, pred); err != nil {
				logrus.WithError(err).WithField("qid", q.QID).Warn("failed to persist record")
			}
		}
		o.emit(Event{
			Type:         "answer",
			RunID:        runID,
			QID:          q.QID,
			Answer:       pred.Predict,
			QuestionType: pred.QuestionType,
			Processed:    len(preds),
			Total:        total,
		})
		o.updateRun(runID, len(preds), total, "running")

		if sinceCheckpoint >= o.opts.CheckpointInterval {
			if err := WritePredictions(checkpointPath, preds); err != nil {
				logrus.WithError(err).Warn("checkpoint write failed")
			} else {
				sinceCheckpoint = 0
				o.emit(Event{Type: "checkpoint", RunID: runID, Processed: len(preds), Total: total})
			}
		}

		if delay := o.delayFor(pred.QuestionType); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	if err := WritePredictions(filepath.Join(o.opts.OutputDir, "predict.json"), preds); err != nil {
		return preds, err
	}
	if err := WriteSubmissionCSV(filepath.Join(o.opts.OutputDir, "submission.csv"), preds); err != nil {
		return preds, err
	}
	o.updateRun(runID, len(preds), total, "completed")
	o.emit(Event{Type: "done", RunID: runID, Processed: len(preds), Total: total})
	return preds, nil
}

// answer resolves one question. Retrieval happens only for the general
// branch; every other category answers without the vector store.
func (o *Orchestrator) answer(ctx context.Context, q Question) Prediction {
	cls := o.classifier.Classify(ctx, q)

	var ans Answer
	var refs []string

	switch cls.Type {
	case TypeCannotAnswer:
		ans = o.synthesizer.Refuse(q, cls.RefusalLetter)
	case TypeCalculation:
		ans = o.synthesizer.Calculation(ctx, q)
	case TypeHasContext:
		ans = o.synthesizer.ReadContext(ctx, q)
	default:
		docs := o.retrieve(ctx, q)
		for _, doc := range docs {
			refs = append(refs, Snippet(doc.Text, 500))
		}
		ans = o.synthesizer.General(ctx, q, docs)
	}

	return Prediction{
		QID:           q.QID,
		Predict:       ans.Letter,
		Reason:        ans.Reason,
		QuestionType:  cls.Type,
		ReferenceDocs: refs,
	}
}

// delayFor spaces requests by how many API calls the branch just made.
// Refusals cost one call, context reading two, the heavy branches several.
func (o *Orchestrator) delayFor(questionType string) time.Duration {
	base := o.opts.BranchDelay
	switch questionType {
	case TypeCannotAnswer:
		return base / 4
	case TypeHasContext:
		return base
	default:
		return base * 2
	}
}

func (o *Orchestrator) retrieve(ctx context.Context, q Question) []qdrant.Candidate {
	query := q.Question + " " + strings.ReplaceAll(FormatChoices(q.Choices), "\n", " ")

	dense, err := o.dense.EmbedDense(ctx, query)
	if err != nil {
		logrus.WithError(err).WithField("qid", q.QID).Warn("embedding failed, answering without context")
		return nil
	}
	sparseIdx, sparseVal := o.sparse.EmbedSparse(query)

	candidates := o.searcher.Search(ctx, dense, sparseIdx, sparseVal, o.opts.TopK)
	return o.scorer.Score(ctx, q, candidates)
}

func (o *Orchestrator) emit(ev Event) {
	if o.sink == nil {
		return
	}
	ev.Timestamp = time.Now()
	o.sink.Broadcast(ev)
}

func (o *Orchestrator) updateRun(runID string, processed, total int, status string) {
	if o.store == nil {
		return
	}
	if err := o.store.UpdateRun(runID, processed, total, status); err != nil {
		logrus.WithError(err).Warn("failed to update run state")
	}
}
