package scoring

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/pipeline"
)

// MergeSubmission overlays updated predictions onto a base submission CSV,
// keeping the base ordering. Updated answers replace base answers for the
// same qid; new qids append at the end.
func MergeSubmission(basePath, outPath string, updates []pipeline.Prediction) error {
	f, err := os.Open(basePath)
	if err != nil {
		return fmt.Errorf("open base submission: %w", err)
	}
	defer f.Close()

	updated := make(map[string]string, len(updates))
	for _, p := range updates {
		updated[p.QID] = p.Predict
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var merged []pipeline.Prediction
	seen := make(map[string]struct{})
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse base submission: %w", err)
		}
		if len(record) < 2 || record[0] == "qid" {
			continue
		}
		answer := record[1]
		if override, ok := updated[record[0]]; ok {
			answer = override
		}
		merged = append(merged, pipeline.Prediction{QID: record[0], Predict: answer})
		seen[record[0]] = struct{}{}
	}

	for _, p := range updates {
		if _, ok := seen[p.QID]; !ok {
			merged = append(merged, pipeline.Prediction{QID: p.QID, Predict: p.Predict})
		}
	}
	return pipeline.WriteSubmissionCSV(outPath, merged)
}
