// Package store persists runs and per-question results in SQLite for the
// progress API.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}, &PredictionRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_prediction_records_run_qid ON prediction_records(run_id, qid)").Error; err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateRun inserts a new run row.
func (d *Database) CreateRun(run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(run).Error
}

// UpdateRun refreshes progress counters and status of a run.
func (d *Database) UpdateRun(runID string, processed, total int, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Model(&Run{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"processed":  processed,
			"total":      total,
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

// GetRun retrieves a run by ID.
func (d *Database) GetRun(runID string) (*Run, error) {
	var run Run
	if err := d.gorm.First(&run, "id = ?", runID).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs ordered newest first.
func (d *Database) ListRuns(offset, limit int) ([]Run, int64, error) {
	var total int64
	if err := d.gorm.Model(&Run{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query := d.gorm.Model(&Run{}).Order("created_at DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	var runs []Run
	if err := query.Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// SavePrediction inserts or updates the result for a (run, qid) pair.
func (d *Database) SavePrediction(record *PredictionRecord) error {
	if record == nil {
		return errors.New("prediction record is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "qid"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "reason", "question_type", "reference_json", "updated_at"}),
	}).Create(record).Error
}

// PredictionQuery encapsulates filters and pagination for listing results.
type PredictionQuery struct {
	RunID        string
	QuestionType string
	Query        string
	Offset       int
	Limit        int
}

// ListPredictions returns paginated prediction records applying optional filters.
func (d *Database) ListPredictions(opts PredictionQuery) ([]PredictionRecord, int64, error) {
	base := d.gorm.Model(&PredictionRecord{})
	if opts.RunID != "" {
		base = base.Where("run_id = ?", opts.RunID)
	}
	if qt := strings.TrimSpace(opts.QuestionType); qt != "" {
		base = base.Where("question_type = ?", qt)
	}
	if opts.Query != "" {
		like := fmt.Sprintf("%%%s%%", opts.Query)
		base = base.Where("qid LIKE ? OR reason LIKE ?", like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Order("qid ASC").Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	var rows []PredictionRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// TypeCount is the number of answered questions of one category.
type TypeCount struct {
	QuestionType string
	Count        int64
}

// RunSummary aggregates per-category counts for a run.
func (d *Database) RunSummary(runID string) ([]TypeCount, error) {
	var counts []TypeCount
	if err := d.gorm.Model(&PredictionRecord{}).
		Select("question_type, COUNT(*) AS count").
		Where("run_id = ?", runID).
		Group("question_type").
		Order("count DESC").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}
