package api

import (
	"time"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/store"
)

// RunDTO is the API representation of a prediction run.
type RunDTO struct {
	ID        string    `json:"id"`
	InputPath string    `json:"input_path"`
	OutputDir string    `json:"output_dir"`
	Status    string    `json:"status"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunsResponse holds a page of runs.
type RunsResponse struct {
	Items []RunDTO `json:"items"`
	Total int64    `json:"total"`
}

// PredictionDTO is the API representation of one answered question.
type PredictionDTO struct {
	ID            uint      `json:"id"`
	RunID         string    `json:"run_id"`
	QID           string    `json:"qid"`
	Answer        string    `json:"answer"`
	Reason        string    `json:"reason"`
	QuestionType  string    `json:"question_type"`
	ReferenceDocs []string  `json:"reference_docs"`
	CreatedAt     time.Time `json:"created_at"`
}

// PredictionsResponse holds a page of predictions.
type PredictionsResponse struct {
	Items []PredictionDTO `json:"items"`
	Total int64           `json:"total"`
}

// SummaryDTO aggregates per-category answer counts for a run.
type SummaryDTO struct {
	RunID  string           `json:"run_id"`
	Counts map[string]int64 `json:"counts"`
}

// RunFromModel converts a stored run to its DTO.
func RunFromModel(run store.Run) RunDTO {
	return RunDTO{
		ID:        run.ID,
		InputPath: run.InputPath,
		OutputDir: run.OutputDir,
		Status:    run.Status,
		Processed: run.Processed,
		Total:     run.Total,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
	}
}

// PredictionFromModel converts a stored prediction to its DTO.
func PredictionFromModel(record store.PredictionRecord) PredictionDTO {
	return PredictionDTO{
		ID:            record.ID,
		RunID:         record.RunID,
		QID:           record.QID,
		Answer:        record.Answer,
		Reason:        record.Reason,
		QuestionType:  record.QuestionType,
		ReferenceDocs: record.References(),
		CreatedAt:     record.CreatedAt,
	}
}
