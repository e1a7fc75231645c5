package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Run is one prediction run over a question file.
type Run struct {
	ID         string `gorm:"primaryKey;size:64"`
	InputPath  string `gorm:"size:512"`
	OutputDir  string `gorm:"size:512"`
	StartIndex int
	EndIndex   int
	Status     string `gorm:"size:32;index"`
	Processed  int
	Total      int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PredictionRecord is the persisted per-question result of a run.
type PredictionRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"size:64;index"`
	QID           string `gorm:"column:qid;size:64;index"`
	Answer        string `gorm:"size:8"`
	Reason        string `gorm:"type:text"`
	QuestionType  string `gorm:"size:32;index"`
	ReferenceJSON string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetReferences persists the context snippets as JSON.
func (p *PredictionRecord) SetReferences(refs []string) {
	if refs == nil {
		p.ReferenceJSON = "[]"
		return
	}
	payload, _ := json.Marshal(refs)
	p.ReferenceJSON = string(payload)
}

// References returns the decoded context snippet list.
func (p *PredictionRecord) References() []string {
	if strings.TrimSpace(p.ReferenceJSON) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(p.ReferenceJSON), &out); err != nil {
		return nil
	}
	return out
}
