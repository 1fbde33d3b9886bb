// Package repository persists runs and their evaluation results in SQLite.
package repository

import (
	"database/sql"
	"fmt"

	"github.com/chanmujie/ner-using-llms/internal/evaluation"
	"github.com/chanmujie/ner-using-llms/internal/models"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// RunRepository handles data storage
type RunRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunRepository opens the database and creates tables as needed.
func NewRunRepository(dbPath string, logger *zap.Logger) (*RunRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &RunRepository{
		db:     db,
		logger: logger,
	}

	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Run repository initialized", zap.String("db_path", dbPath))

	return repo, nil
}

// migrate creates tables
func (r *RunRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		dataset_path TEXT NOT NULL,
		provider TEXT NOT NULL,
		model_version TEXT,
		prompt_tag TEXT NOT NULL,
		run_tag TEXT,
		status TEXT NOT NULL,
		total_count INTEGER NOT NULL,
		processed_count INTEGER DEFAULT 0,
		failed_count INTEGER DEFAULT 0,
		micro_precision REAL DEFAULT 0,
		micro_recall REAL DEFAULT 0,
		micro_f1 REAL DEFAULT 0,
		avg_latency_sec REAL DEFAULT 0,
		created_at DATETIME NOT NULL,
		completed_at DATETIME,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_run_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_run_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS instance_results (
		run_id TEXT NOT NULL,
		instance_id INTEGER NOT NULL,
		precision REAL NOT NULL,
		recall REAL NOT NULL,
		f1 REAL NOT NULL,
		partial_precision REAL NOT NULL,
		partial_recall REAL NOT NULL,
		partial_f1 REAL NOT NULL,
		PRIMARY KEY (run_id, instance_id)
	);

	CREATE TABLE IF NOT EXISTS label_results (
		run_id TEXT NOT NULL,
		label TEXT NOT NULL,
		precision REAL NOT NULL,
		recall REAL NOT NULL,
		f1 REAL NOT NULL,
		partial_precision REAL NOT NULL,
		partial_recall REAL NOT NULL,
		partial_f1 REAL NOT NULL,
		tp INTEGER NOT NULL,
		fp INTEGER NOT NULL,
		fn INTEGER NOT NULL,
		PRIMARY KEY (run_id, label)
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// CreateRun inserts a new run record.
func (r *RunRepository) CreateRun(run *models.Run) error {
	query := `
		INSERT INTO runs (
			id, dataset_path, provider, model_version, prompt_tag, run_tag,
			status, total_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.DatasetPath,
		run.Provider,
		run.ModelVersion,
		run.PromptTag,
		run.RunTag,
		run.Status,
		run.TotalCount,
		run.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// UpdateRun updates run progress and summary metrics.
func (r *RunRepository) UpdateRun(run *models.Run) error {
	query := `
		UPDATE runs
		SET status = ?, processed_count = ?, failed_count = ?,
		    micro_precision = ?, micro_recall = ?, micro_f1 = ?,
		    avg_latency_sec = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		run.Status,
		run.ProcessedCount,
		run.FailedCount,
		run.MicroPrecision,
		run.MicroRecall,
		run.MicroF1,
		run.AvgLatencySec,
		run.CompletedAt,
		run.ErrorMessage,
		run.ID,
	)
	return err
}

// SaveResult stores the per-instance and per-label rows for a run.
func (r *RunRepository) SaveResult(runID string, result *evaluation.Result) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	instStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO instance_results (
			run_id, instance_id, precision, recall, f1,
			partial_precision, partial_recall, partial_f1
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare instance insert: %w", err)
	}
	defer instStmt.Close()

	for _, inst := range result.PerInstance {
		if _, err := instStmt.Exec(
			runID, inst.InstanceID,
			inst.Precision, inst.Recall, inst.F1,
			inst.PartialPrecision, inst.PartialRecall, inst.PartialF1,
		); err != nil {
			return fmt.Errorf("failed to save instance result: %w", err)
		}
	}

	labelStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO label_results (
			run_id, label, precision, recall, f1,
			partial_precision, partial_recall, partial_f1, tp, fp, fn
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare label insert: %w", err)
	}
	defer labelStmt.Close()

	for _, lbl := range result.PerLabel {
		if _, err := labelStmt.Exec(
			runID, lbl.Label,
			lbl.Precision, lbl.Recall, lbl.F1,
			lbl.PartialPrecision, lbl.PartialRecall, lbl.PartialF1,
			lbl.TP, lbl.FP, lbl.FN,
		); err != nil {
			return fmt.Errorf("failed to save label result: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by ID.
func (r *RunRepository) GetRun(runID string) (*models.Run, error) {
	query := `
		SELECT id, dataset_path, provider, model_version, prompt_tag, run_tag,
		       status, total_count, processed_count, failed_count,
		       micro_precision, micro_recall, micro_f1, avg_latency_sec,
		       created_at, completed_at, error_message
		FROM runs
		WHERE id = ?
	`

	run := &models.Run{}
	var modelVersion, runTag, errorMessage sql.NullString
	err := r.db.QueryRow(query, runID).Scan(
		&run.ID,
		&run.DatasetPath,
		&run.Provider,
		&modelVersion,
		&run.PromptTag,
		&runTag,
		&run.Status,
		&run.TotalCount,
		&run.ProcessedCount,
		&run.FailedCount,
		&run.MicroPrecision,
		&run.MicroRecall,
		&run.MicroF1,
		&run.AvgLatencySec,
		&run.CreatedAt,
		&run.CompletedAt,
		&errorMessage,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.ModelVersion = modelVersion.String
	run.RunTag = runTag.String
	run.ErrorMessage = errorMessage.String

	return run, nil
}

// ListRuns returns all runs, newest first.
func (r *RunRepository) ListRuns() ([]*models.Run, error) {
	query := `
		SELECT id, dataset_path, provider, model_version, prompt_tag, run_tag,
		       status, total_count, processed_count, failed_count,
		       micro_precision, micro_recall, micro_f1, avg_latency_sec,
		       created_at, completed_at, error_message
		FROM runs
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run := &models.Run{}
		var modelVersion, runTag, errorMessage sql.NullString
		err := rows.Scan(
			&run.ID,
			&run.DatasetPath,
			&run.Provider,
			&modelVersion,
			&run.PromptTag,
			&runTag,
			&run.Status,
			&run.TotalCount,
			&run.ProcessedCount,
			&run.FailedCount,
			&run.MicroPrecision,
			&run.MicroRecall,
			&run.MicroF1,
			&run.AvgLatencySec,
			&run.CreatedAt,
			&run.CompletedAt,
			&errorMessage,
		)
		if err != nil {
			r.logger.Error("Failed to scan run", zap.Error(err))
			continue
		}
		run.ModelVersion = modelVersion.String
		run.RunTag = runTag.String
		run.ErrorMessage = errorMessage.String
		runs = append(runs, run)
	}

	return runs, nil
}

// GetInstanceResults returns per-instance scores for a run.
func (r *RunRepository) GetInstanceResults(runID string) ([]evaluation.InstanceResult, error) {
	query := `
		SELECT instance_id, precision, recall, f1,
		       partial_precision, partial_recall, partial_f1
		FROM instance_results
		WHERE run_id = ?
		ORDER BY instance_id
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query instance results: %w", err)
	}
	defer rows.Close()

	var results []evaluation.InstanceResult
	for rows.Next() {
		var res evaluation.InstanceResult
		err := rows.Scan(
			&res.InstanceID,
			&res.Precision, &res.Recall, &res.F1,
			&res.PartialPrecision, &res.PartialRecall, &res.PartialF1,
		)
		if err != nil {
			r.logger.Error("Failed to scan instance result", zap.Error(err))
			continue
		}
		results = append(results, res)
	}

	return results, nil
}

// GetLabelResults returns per-label scores for a run.
func (r *RunRepository) GetLabelResults(runID string) ([]evaluation.LabelResult, error) {
	query := `
		SELECT label, precision, recall, f1,
		       partial_precision, partial_recall, partial_f1, tp, fp, fn
		FROM label_results
		WHERE run_id = ?
		ORDER BY label
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query label results: %w", err)
	}
	defer rows.Close()

	var results []evaluation.LabelResult
	for rows.Next() {
		var res evaluation.LabelResult
		err := rows.Scan(
			&res.Label,
			&res.Precision, &res.Recall, &res.F1,
			&res.PartialPrecision, &res.PartialRecall, &res.PartialF1,
			&res.TP, &res.FP, &res.FN,
		)
		if err != nil {
			r.logger.Error("Failed to scan label result", zap.Error(err))
			continue
		}
		results = append(results, res)
	}

	return results, nil
}

// Close closes the database connection
func (r *RunRepository) Close() error {
	return r.db.Close()
}
