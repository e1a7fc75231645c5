package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WritePredictions atomically writes the prediction records as pretty JSON.
func WritePredictions(path string, preds []Prediction) error {
	raw, err := json.MarshalIndent(preds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadPredictions loads a prediction file; a missing file yields an empty
// slice so fresh runs and resumed runs share one code path.
func ReadPredictions(path string) ([]Prediction, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read predictions: %w", err)
	}
	var preds []Prediction
	if err := json.Unmarshal(raw, &preds); err != nil {
		return nil, fmt.Errorf("parse predictions: %w", err)
	}
	return preds, nil
}

// WriteSubmissionCSV writes the qid,answer file the grader consumes.
func WriteSubmissionCSV(path string, preds []Prediction) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"qid", "answer"}); err != nil {
		return err
	}
	for _, p := range preds {
		if err := w.Write([]string{p.QID, p.Predict}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
