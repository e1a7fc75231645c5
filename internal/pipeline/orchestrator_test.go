package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/qdrant"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedDense(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) EmbedSparse(string) ([]uint32, []float32) {
	return []uint32{1}, []float32{1.0}
}

type fakeSearcher struct {
	result []qdrant.Candidate
	calls  int
}

func (f *fakeSearcher) Search(_ context.Context, dense []float32, _ []uint32, _ []float32, _ int) []qdrant.Candidate {
	f.calls++
	if len(dense) == 0 {
		return nil
	}
	return f.result
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Broadcast(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func generalQuestions(n int) []Question {
	qs := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, Question{QID: fmt.Sprintf("q%03d", i+1), Question: "Câu hỏi?", Choices: fourChoices})
	}
	return qs
}

func newTestOrchestrator(t *testing.T, small, large *fakeCompleter, embedder *fakeEmbedder, searcher *fakeSearcher, sink EventSink, interval int) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	o := NewOrchestrator(
		NewClassifier(small),
		NewRelevanceScorer(small, 7.0, 5),
		NewSynthesizer(small, large, "A"),
		embedder, embedder, searcher, sink, nil,
		Options{TopK: 10, CheckpointInterval: interval, OutputDir: dir},
	)
	return o, dir
}

func TestRunRefusalSkipsRetrievalAndSynthesis(t *testing.T) {
	small := newFakeCompleter().on("triage", `{"question_type":"cannot_answer","refusal_letter":"B"}`)
	large := newFakeCompleter()
	embedder := &fakeEmbedder{}
	searcher := &fakeSearcher{}

	o, _ := newTestOrchestrator(t, small, large, embedder, searcher, nil, 5)
	preds, err := o.Run(context.Background(), generalQuestions(1))
	if err != nil {
		t.Fatal(err)
	}
	if preds[0].Predict != "B" || preds[0].QuestionType != TypeCannotAnswer {
		t.Errorf("prediction = %+v", preds[0])
	}
	if embedder.calls != 0 || searcher.calls != 0 {
		t.Errorf("refusal path touched retrieval: embed=%d search=%d", embedder.calls, searcher.calls)
	}
	if large.totalCalls() != 0 {
		t.Errorf("refusal path called the large model %d times", large.totalCalls())
	}
}

func TestRunCheckpointCadence(t *testing.T) {
	small := newFakeCompleter().
		on("triage", `{"question_type":"general"}`).
		on("relevance", `{"reasoning":"none","indices":[],"scores":[]}`)
	large := newFakeCompleter().on("reference documents", `{"reason":"known","answer":"A"}`)
	sink := &recordingSink{}

	o, dir := newTestOrchestrator(t, small, large, &fakeEmbedder{}, &fakeSearcher{}, sink, 5)
	preds, err := o.Run(context.Background(), generalQuestions(12))
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 12 {
		t.Fatalf("got %d predictions, want 12", len(preds))
	}
	if got := sink.count("checkpoint"); got != 2 {
		t.Errorf("checkpoint events = %d, want 2", got)
	}
	if got := sink.count("done"); got != 1 {
		t.Errorf("done events = %d, want 1", got)
	}
	for _, name := range []string{"predict.json", "submission.csv", "checkpoint.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	small := newFakeCompleter().
		on("triage", `{"question_type":"general"}`).
		on("relevance", `{"reasoning":"none","indices":[],"scores":[]}`)
	large := newFakeCompleter().on("reference documents", `{"reason":"known","answer":"A"}`)

	o, dir := newTestOrchestrator(t, small, large, &fakeEmbedder{}, &fakeSearcher{}, nil, 5)
	existing := []Prediction{
		{QID: "q001", Predict: "C", Reason: "answered earlier", QuestionType: TypeGeneral},
		{QID: "q002", Predict: "D", Reason: "answered earlier", QuestionType: TypeGeneral},
	}
	if err := WritePredictions(filepath.Join(dir, "checkpoint.json"), existing); err != nil {
		t.Fatal(err)
	}

	preds, err := o.Run(context.Background(), generalQuestions(4))
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 4 {
		t.Fatalf("got %d predictions, want 4", len(preds))
	}
	if preds[0].Predict != "C" || preds[1].Predict != "D" {
		t.Errorf("resumed answers were recomputed: %+v", preds[:2])
	}
	if small.callCount("triage") != 2 {
		t.Errorf("triage calls = %d, want 2 for the unanswered questions", small.callCount("triage"))
	}
}

func TestRunEmbedderFailureStillAnswers(t *testing.T) {
	small := newFakeCompleter().on("triage", `{"question_type":"general"}`)
	large := newFakeCompleter().on("reference documents", `{"reason":"from general knowledge","answer":"B"}`)
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	searcher := &fakeSearcher{result: []qdrant.Candidate{{ID: 1, Text: "doc"}}}

	o, _ := newTestOrchestrator(t, small, large, embedder, searcher, nil, 5)
	preds, err := o.Run(context.Background(), generalQuestions(1))
	if err != nil {
		t.Fatal(err)
	}
	if preds[0].Predict != "B" {
		t.Errorf("predict = %q, want B", preds[0].Predict)
	}
	if len(preds[0].ReferenceDocs) != 0 {
		t.Errorf("reference docs = %v, want none", preds[0].ReferenceDocs)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times despite failed embedding", searcher.calls)
	}
}

func TestRunRecordsReferenceDocs(t *testing.T) {
	small := newFakeCompleter().
		on("triage", `{"question_type":"general"}`).
		on("relevance", `{"reasoning":"good","indices":[0],"scores":[9.0]}`)
	large := newFakeCompleter().on("reference documents", `{"reason":"grounded","answer":"A"}`)
	searcher := &fakeSearcher{result: []qdrant.Candidate{{ID: 1, Title: "Hà Nội", Text: "Thủ đô của Việt Nam là Hà Nội."}}}

	o, _ := newTestOrchestrator(t, small, large, &fakeEmbedder{}, searcher, nil, 5)
	preds, err := o.Run(context.Background(), generalQuestions(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(preds[0].ReferenceDocs) != 1 {
		t.Fatalf("reference docs = %d, want 1", len(preds[0].ReferenceDocs))
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	in := []Prediction{{QID: "q1", Predict: "A", Reason: "vì sao", QuestionType: TypeGeneral, ReferenceDocs: []string{"doc"}}}
	if err := WritePredictions(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadPredictions(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].QID != "q1" || out[0].ReferenceDocs[0] != "doc" {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestReadPredictionsMissingFile(t *testing.T) {
	out, err := ReadPredictions(filepath.Join(t.TempDir(), "none.json"))
	if err != nil || out != nil {
		t.Errorf("missing file: preds=%v err=%v", out, err)
	}
}
