package main

import (
	"flag"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/pipeline"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/scoring"
)

func main() {
	var (
		predictPath   = flag.String("predict", "output/predict.json", "Prediction records to grade")
		labelsPath    = flag.String("labels", "labels.csv", "Gold labels CSV (qid,answer)")
		questionsPath = flag.String("questions", "", "Optional question file for error context")
		reportDir     = flag.String("report", "", "Optional directory for error/correct CSV reports")
		mergeBase     = flag.String("merge-base", "", "Optional base submission to overlay answers onto")
		mergeOut      = flag.String("merge-out", "submission_merged.csv", "Merged submission output path")
	)
	flag.Parse()

	preds, err := pipeline.ReadPredictions(*predictPath)
	if err != nil {
		logrus.Fatalf("read predictions: %v", err)
	}
	if len(preds) == 0 {
		logrus.Fatalf("no predictions in %s", *predictPath)
	}

	if *mergeBase != "" {
		if err := scoring.MergeSubmission(*mergeBase, *mergeOut, preds); err != nil {
			logrus.Fatalf("merge submission: %v", err)
		}
		logrus.WithField("output", *mergeOut).Info("merged submission written")
	}

	labels, err := scoring.LoadLabels(*labelsPath)
	if err != nil {
		logrus.Fatalf("load labels: %v", err)
	}

	questions := make(map[string]pipeline.Question)
	if *questionsPath != "" {
		loaded, err := pipeline.LoadQuestions(*questionsPath)
		if err != nil {
			logrus.Fatalf("load questions: %v", err)
		}
		for _, q := range loaded {
			questions[q.QID] = q
		}
	}

	report := scoring.Evaluate(preds, labels, questions)
	logrus.WithFields(logrus.Fields{
		"total":    report.Total,
		"correct":  report.Correct,
		"accuracy": report.Accuracy(),
	}).Info("run graded")

	if *reportDir != "" {
		if err := scoring.WriteRows(filepath.Join(*reportDir, "errors.csv"), report.Errors); err != nil {
			logrus.Fatalf("write error report: %v", err)
		}
		if err := scoring.WriteRows(filepath.Join(*reportDir, "corrects.csv"), report.Corrects); err != nil {
			logrus.Fatalf("write correct report: %v", err)
		}
		logrus.WithField("dir", *reportDir).Info("reports written")
	}
}
