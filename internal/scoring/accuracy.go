// Package scoring evaluates prediction runs against gold labels and merges
// partial submissions.
package scoring

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/pipeline"
)

// Row is one graded question with the context snippets that informed it.
type Row struct {
	QID          string
	Question     string
	Choices      string
	Predicted    string
	Gold         string
	QuestionType string
	Reason       string
	Contexts     []string
}

// Report is the outcome of grading a run.
type Report struct {
	Total    int
	Correct  int
	Errors   []Row
	Corrects []Row
}

// Accuracy returns the fraction of graded questions answered correctly.
func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// Evaluate grades predictions against gold labels. Predictions without a
// label are skipped; labels without a prediction count as wrong.
func Evaluate(preds []pipeline.Prediction, labels map[string]string, questions map[string]pipeline.Question) Report {
	report := Report{}
	graded := make(map[string]struct{}, len(preds))

	for _, p := range preds {
		gold, ok := labels[p.QID]
		if !ok {
			continue
		}
		graded[p.QID] = struct{}{}
		row := Row{
			QID:          p.QID,
			Predicted:    p.Predict,
			Gold:         gold,
			QuestionType: p.QuestionType,
			Reason:       p.Reason,
			Contexts:     p.ReferenceDocs,
		}
		if q, ok := questions[p.QID]; ok {
			row.Question = q.Question
			row.Choices = pipeline.FormatChoices(q.Choices)
		}
		report.Total++
		if p.Predict == gold {
			report.Correct++
			report.Corrects = append(report.Corrects, row)
		} else {
			report.Errors = append(report.Errors, row)
		}
	}

	for qid, gold := range labels {
		if _, ok := graded[qid]; ok {
			continue
		}
		row := Row{QID: qid, Gold: gold}
		if q, ok := questions[qid]; ok {
			row.Question = q.Question
			row.Choices = pipeline.FormatChoices(q.Choices)
		}
		report.Total++
		report.Errors = append(report.Errors, row)
	}
	return report
}

// LoadLabels reads a qid,answer CSV into a map. A header row is tolerated.
func LoadLabels(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	labels := make(map[string]string)
	for {
		record, err := r.Read()
		if err == io.EOF {
			return labels, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse labels: %w", err)
		}
		if len(record) < 2 || record[0] == "qid" {
			continue
		}
		labels[record[0]] = record[1]
	}
}

const maxContextColumns = 5

// WriteRows writes graded rows as CSV with one column per context snippet.
func WriteRows(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"qid", "question", "choices", "predicted", "gold", "question_type", "reason"}
	for i := 1; i <= maxContextColumns; i++ {
		header = append(header, fmt.Sprintf("context%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.QID, row.Question, row.Choices, row.Predicted, row.Gold, row.QuestionType, row.Reason}
		for i := 0; i < maxContextColumns; i++ {
			if i < len(row.Contexts) {
				record = append(record, row.Contexts[i])
			} else {
				record = append(record, "")
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
