package models

import "time"

// Run statuses.
const (
	RunPending    = "pending"
	RunProcessing = "processing"
	RunCompleted  = "completed"
	RunFailed     = "failed"
)

// Run represents one extraction-and-evaluation pass over a dataset.
type Run struct {
	ID             string     `json:"id" db:"id"`
	DatasetPath    string     `json:"dataset_path" db:"dataset_path"`
	Provider       string     `json:"provider" db:"provider"`
	ModelVersion   string     `json:"model_version,omitempty" db:"model_version"`
	PromptTag      string     `json:"prompt_tag" db:"prompt_tag"`
	RunTag         string     `json:"run_tag,omitempty" db:"run_tag"`
	Status         string     `json:"status" db:"status"`
	TotalCount     int        `json:"total_count" db:"total_count"`
	ProcessedCount int        `json:"processed_count" db:"processed_count"`
	FailedCount    int        `json:"failed_count" db:"failed_count"`
	MicroPrecision float64    `json:"micro_precision" db:"micro_precision"`
	MicroRecall    float64    `json:"micro_recall" db:"micro_recall"`
	MicroF1        float64    `json:"micro_f1" db:"micro_f1"`
	AvgLatencySec  float64    `json:"avg_latency_sec" db:"avg_latency_sec"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage   string     `json:"error_message,omitempty" db:"error_message"`
}

// StartRunRequest starts an async extraction run over a gold dataset.
type StartRunRequest struct {
	DatasetPath string `json:"dataset_path" binding:"required"`
	PromptTag   string `json:"prompt_tag"`
	RunTag      string `json:"run_tag"`
}

// EvaluateRequest scores pre-computed predictions against a gold dataset.
type EvaluateRequest struct {
	DatasetPath string      `json:"dataset_path" binding:"required"`
	Predictions Predictions `json:"predictions" binding:"required"`
	Labels      []string    `json:"labels,omitempty"`
}
