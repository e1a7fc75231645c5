package store

import (
	"path/filepath"
	"testing"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/pipeline"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), true)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSavePredictionUpsertsByRunAndQID(t *testing.T) {
	db := openTestDB(t)

	first := &PredictionRecord{RunID: "r1", QID: "q1", Answer: "A", QuestionType: "general"}
	first.SetReferences([]string{"doc"})
	if err := db.SavePrediction(first); err != nil {
		t.Fatal(err)
	}
	second := &PredictionRecord{RunID: "r1", QID: "q1", Answer: "B", QuestionType: "general"}
	second.SetReferences(nil)
	if err := db.SavePrediction(second); err != nil {
		t.Fatal(err)
	}

	rows, total, err := db.ListPredictions(PredictionQuery{RunID: "r1"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("total = %d rows = %d, want 1 row", total, len(rows))
	}
	if rows[0].Answer != "B" {
		t.Errorf("answer = %q, want B", rows[0].Answer)
	}
}

func TestListPredictionsFiltersByType(t *testing.T) {
	db := openTestDB(t)
	recorder := NewRunRecorder(db)

	for _, p := range []pipeline.Prediction{
		{QID: "q1", Predict: "A", QuestionType: "general"},
		{QID: "q2", Predict: "B", QuestionType: "calculation"},
		{QID: "q3", Predict: "C", QuestionType: "general"},
	} {
		if err := recorder.SaveRecord("r1", p); err != nil {
			t.Fatal(err)
		}
	}

	rows, total, err := db.ListPredictions(PredictionQuery{RunID: "r1", QuestionType: "general"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(rows) != 2 {
		t.Errorf("total = %d rows = %d, want 2", total, len(rows))
	}
}

func TestRunSummaryCountsByType(t *testing.T) {
	db := openTestDB(t)
	recorder := NewRunRecorder(db)

	for _, p := range []pipeline.Prediction{
		{QID: "q1", Predict: "A", QuestionType: "general"},
		{QID: "q2", Predict: "B", QuestionType: "general"},
		{QID: "q3", Predict: "C", QuestionType: "calculation"},
	} {
		if err := recorder.SaveRecord("r1", p); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := db.RunSummary("r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 {
		t.Fatalf("categories = %d, want 2", len(counts))
	}
	if counts[0].QuestionType != "general" || counts[0].Count != 2 {
		t.Errorf("top category = %+v", counts[0])
	}
}

func TestRunRecorderCreatesRunOnFirstUpdate(t *testing.T) {
	db := openTestDB(t)
	recorder := NewRunRecorder(db)

	if err := recorder.UpdateRun("r1", 0, 10, "running"); err != nil {
		t.Fatal(err)
	}
	if err := recorder.UpdateRun("r1", 10, 10, "completed"); err != nil {
		t.Fatal(err)
	}

	run, err := db.GetRun("r1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != "completed" || run.Processed != 10 {
		t.Errorf("run = %+v", run)
	}
}

func TestRunRecorderPropagatesReadErrors(t *testing.T) {
	db := openTestDB(t)
	recorder := NewRunRecorder(db)
	if err := recorder.UpdateRun("r1", 0, 10, "running"); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// a read failure must surface, not be mistaken for a missing run
	if err := recorder.UpdateRun("r1", 5, 10, "running"); err == nil {
		t.Fatal("expected error from closed database")
	}
}

func TestReferencesRoundTrip(t *testing.T) {
	record := &PredictionRecord{}
	record.SetReferences([]string{"a", "b"})
	if refs := record.References(); len(refs) != 2 || refs[1] != "b" {
		t.Errorf("references = %v", refs)
	}
	record.SetReferences(nil)
	if refs := record.References(); len(refs) != 0 {
		t.Errorf("references after nil set = %v", refs)
	}
}
