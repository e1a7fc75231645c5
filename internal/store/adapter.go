package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/pipeline"
)

// RunRecorder adapts the database to the pipeline's persistence interface.
type RunRecorder struct {
	db *Database
}

// NewRunRecorder wraps a database handle.
func NewRunRecorder(db *Database) *RunRecorder {
	return &RunRecorder{db: db}
}

// SaveRecord persists one answered question.
func (r *RunRecorder) SaveRecord(runID string, p pipeline.Prediction) error {
	record := &PredictionRecord{
		RunID:        runID,
		QID:          p.QID,
		Answer:       p.Predict,
		Reason:       p.Reason,
		QuestionType: p.QuestionType,
	}
	record.SetReferences(p.ReferenceDocs)
	return r.db.SavePrediction(record)
}

// UpdateRun refreshes run progress, creating the run row on first update.
func (r *RunRecorder) UpdateRun(runID string, processed, total int, status string) error {
	_, err := r.db.GetRun(runID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		run := &Run{ID: runID, Status: status, Processed: processed, Total: total}
		return r.db.CreateRun(run)
	}
	if err != nil {
		return err
	}
	return r.db.UpdateRun(runID, processed, total, status)
}
