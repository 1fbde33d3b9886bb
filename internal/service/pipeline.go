// Package service orchestrates extraction runs: prompting the model over
// dataset batches, reconciling predictions, scoring, and persisting.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chanmujie/ner-using-llms/internal/dataset"
	"github.com/chanmujie/ner-using-llms/internal/evaluation"
	"github.com/chanmujie/ner-using-llms/internal/extractor"
	"github.com/chanmujie/ner-using-llms/internal/models"
	"github.com/chanmujie/ner-using-llms/internal/prompt"
	"github.com/chanmujie/ner-using-llms/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompletionClient interface for any completion provider
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// BatchResponse is one raw model response with its batch position, kept
// for audit artifacts.
type BatchResponse struct {
	Batch    int    `json:"batch"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// ExtractionOutput is everything one extraction pass produces before
// evaluation. AvgLatencySec is total model latency divided by the number
// of dataset instances, not by the number of batch calls.
type ExtractionOutput struct {
	Predictions   models.Predictions
	Responses     []BatchResponse
	FailedBatches int
	AvgLatencySec float64
}

// Pipeline handles extraction-and-evaluation business logic
type Pipeline struct {
	client    CompletionClient
	repo      *repository.RunRepository
	extractor *extractor.Extractor
	logger    *zap.Logger
	batchSize int
	labels    []string
}

// NewPipeline creates a new pipeline service. batchSize controls how many
// instances share one prompt; zero means the default of 5.
func NewPipeline(
	client CompletionClient,
	repo *repository.RunRepository,
	logger *zap.Logger,
	batchSize int,
	labels []string,
) *Pipeline {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Pipeline{
		client:    client,
		repo:      repo,
		extractor: extractor.New(logger),
		logger:    logger,
		batchSize: batchSize,
		labels:    labels,
	}
}

// modelInfo pulls provider and model identifiers off the client.
func (p *Pipeline) modelInfo() (provider, modelVersion string) {
	provider = "unknown"
	modelVersion = "unknown"
	info := p.client.GetModelInfo()
	if v, ok := info["provider"].(string); ok {
		provider = v
	}
	if v, ok := info["model"].(string); ok {
		modelVersion = v
	}
	return provider, modelVersion
}

// StartRun validates the dataset, records a pending run, and processes it
// asynchronously. The returned ID can be polled via GetRun.
func (p *Pipeline) StartRun(ctx context.Context, req models.StartRunRequest) (string, error) {
	ds, err := dataset.Load(req.DatasetPath, p.logger)
	if err != nil {
		return "", fmt.Errorf("failed to load dataset: %w", err)
	}

	promptTag := req.PromptTag
	if promptTag == "" {
		promptTag = prompt.DefaultTag
	}
	if _, ok := prompt.Get(promptTag); !ok {
		return "", fmt.Errorf("unknown prompt tag: %s", promptTag)
	}

	provider, modelVersion := p.modelInfo()

	run := &models.Run{
		ID:           uuid.New().String(),
		DatasetPath:  req.DatasetPath,
		Provider:     provider,
		ModelVersion: modelVersion,
		PromptTag:    promptTag,
		RunTag:       req.RunTag,
		Status:       models.RunPending,
		TotalCount:   ds.Len(),
		CreatedAt:    time.Now(),
	}

	if err := p.repo.CreateRun(run); err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	go p.processRun(run, ds)

	return run.ID, nil
}

// processRun drives one extraction run to completion in the background.
func (p *Pipeline) processRun(run *models.Run, ds *dataset.Dataset) {
	ctx := context.Background()

	run.Status = models.RunProcessing
	p.repo.UpdateRun(run)

	out := p.Extract(ctx, ds, run.PromptTag)

	ds.UpdatePredictions(out.Predictions)
	result := evaluation.New(ds, p.labels).Evaluate(out.Predictions)

	run.ProcessedCount = ds.Len()
	run.FailedCount = out.FailedBatches * p.batchSize
	if run.FailedCount > ds.Len() {
		run.FailedCount = ds.Len()
	}
	run.MicroPrecision = result.MicroPrecision
	run.MicroRecall = result.MicroRecall
	run.MicroF1 = result.MicroF1
	run.AvgLatencySec = out.AvgLatencySec
	run.Status = models.RunCompleted
	completedAt := time.Now()
	run.CompletedAt = &completedAt

	if err := p.repo.SaveResult(run.ID, result); err != nil {
		p.logger.Error("Failed to save evaluation result",
			zap.String("run_id", run.ID),
			zap.Error(err))
		run.Status = models.RunFailed
		run.ErrorMessage = err.Error()
	}

	if err := p.repo.UpdateRun(run); err != nil {
		p.logger.Error("Failed to update run",
			zap.String("run_id", run.ID),
			zap.Error(err))
		return
	}

	p.logger.Info("Run completed",
		zap.String("run_id", run.ID),
		zap.Float64("micro_f1", run.MicroF1),
		zap.Int("failed", run.FailedCount))
}

// Extract sends the dataset through the model in batches and collects
// predictions keyed by instance ID. Batch failures are absorbed: their
// instances simply have no predictions.
func (p *Pipeline) Extract(ctx context.Context, ds *dataset.Dataset, promptTag string) *ExtractionOutput {
	systemPrompt := prompt.GetOrDefault(promptTag)
	instances := ds.Instances()

	out := &ExtractionOutput{
		Predictions: make(models.Predictions),
	}

	var totalLatency time.Duration
	var batchCount int

	for start := 0; start < len(instances); start += p.batchSize {
		end := start + p.batchSize
		if end > len(instances) {
			end = len(instances)
		}
		batch := instances[start:end]
		batchNum := start/p.batchSize + 1

		texts := make([]string, len(batch))
		for i, inst := range batch {
			texts[i] = inst.Text
		}
		userPrompt := prompt.BuildUserPrompt(texts)

		began := time.Now()
		raw, err := p.client.Complete(ctx, systemPrompt, userPrompt)
		latency := time.Since(began)
		totalLatency += latency
		batchCount++

		resp := BatchResponse{Batch: batchNum, Prompt: userPrompt, Response: raw}

		if err != nil {
			p.logger.Error("Batch completion failed",
				zap.Int("batch", batchNum),
				zap.Error(err))
			resp.Error = err.Error()
			out.Responses = append(out.Responses, resp)
			out.FailedBatches++
			continue
		}

		items, err := p.extractor.Parse(raw)
		if err != nil {
			p.logger.Error("Batch parse failed",
				zap.Int("batch", batchNum),
				zap.Error(err))
			resp.Error = err.Error()
			out.Responses = append(out.Responses, resp)
			out.FailedBatches++
			continue
		}
		out.Responses = append(out.Responses, resp)

		if len(items) != len(batch) {
			p.logger.Warn("Extracted item count does not match batch size",
				zap.Int("batch", batchNum),
				zap.Int("expected", len(batch)),
				zap.Int("got", len(items)))
		}

		// Items come back in prompt order, so position i belongs to
		// batch[i]. Extra items past the batch have no home and are
		// dropped.
		for i, item := range items {
			if i >= len(batch) {
				break
			}
			key := fmt.Sprintf("%d", batch[i].InstanceID)
			out.Predictions[key] = append(out.Predictions[key], item.Entities...)
		}

		p.logger.Debug("Batch extracted",
			zap.Int("batch", batchNum),
			zap.Int("items", len(items)),
			zap.Duration("latency", latency))
	}

	if batchCount > 0 && len(instances) > 0 {
		out.AvgLatencySec = totalLatency.Seconds() / float64(len(instances))
	}

	return out
}

// RunSync performs a full extraction-and-evaluation pass synchronously and
// writes the report artifacts to outDir. Used by the CLI.
func (p *Pipeline) RunSync(ctx context.Context, datasetPath, promptTag, outDir string) (*evaluation.Result, error) {
	ds, err := dataset.Load(datasetPath, p.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	if promptTag == "" {
		promptTag = prompt.DefaultTag
	}
	if _, ok := prompt.Get(promptTag); !ok {
		return nil, fmt.Errorf("unknown prompt tag: %s", promptTag)
	}

	out := p.Extract(ctx, ds, promptTag)

	ds.UpdatePredictions(out.Predictions)
	result := evaluation.New(ds, p.labels).Evaluate(out.Predictions)

	if outDir != "" {
		if err := WriteArtifacts(outDir, result, out); err != nil {
			return nil, fmt.Errorf("failed to write artifacts: %w", err)
		}
	}

	p.logger.Info("Synchronous run completed",
		zap.Int("instances", ds.Len()),
		zap.Int("failed_batches", out.FailedBatches),
		zap.Float64("micro_f1", result.MicroF1))

	return result, nil
}

// EvaluateOnly scores a pre-computed prediction set against a gold dataset
// without touching the model.
func (p *Pipeline) EvaluateOnly(req models.EvaluateRequest) (*evaluation.Result, error) {
	ds, err := dataset.Load(req.DatasetPath, p.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	labels := req.Labels
	if len(labels) == 0 {
		labels = p.labels
	}

	ds.UpdatePredictions(req.Predictions)
	return evaluation.New(ds, labels).Evaluate(req.Predictions), nil
}

// GetRun returns run metadata by ID.
func (p *Pipeline) GetRun(runID string) (*models.Run, error) {
	return p.repo.GetRun(runID)
}

// ListRuns returns all recorded runs.
func (p *Pipeline) ListRuns() ([]*models.Run, error) {
	return p.repo.ListRuns()
}

// GetInstanceResults returns per-instance scores for a run.
func (p *Pipeline) GetInstanceResults(runID string) ([]evaluation.InstanceResult, error) {
	return p.repo.GetInstanceResults(runID)
}

// GetLabelResults returns per-label scores for a run.
func (p *Pipeline) GetLabelResults(runID string) ([]evaluation.LabelResult, error) {
	return p.repo.GetLabelResults(runID)
}
