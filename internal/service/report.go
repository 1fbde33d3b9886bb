package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chanmujie/ner-using-llms/internal/evaluation"
)

// WriteArtifacts lays out one run's report under outDir:
//
//	per_instance.csv      per-instance exact and partial scores
//	per_label.csv         per-label scores with raw counts
//	metrics.json          the full evaluation result
//	raw_predictions.json  predictions keyed by instance ID
//	api_responses/        one file per model call, prompts included
func WriteArtifacts(outDir string, result *evaluation.Result, out *ExtractionOutput) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	if err := writeInstanceCSV(filepath.Join(outDir, "per_instance.csv"), result.PerInstance); err != nil {
		return err
	}
	if err := writeLabelCSV(filepath.Join(outDir, "per_label.csv"), result.PerLabel); err != nil {
		return err
	}
	metrics := metricsReport{Result: result, AvgLatencySec: out.AvgLatencySec}
	if err := writeJSON(filepath.Join(outDir, "metrics.json"), metrics); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(outDir, "raw_predictions.json"), out.Predictions); err != nil {
		return err
	}

	respDir := filepath.Join(outDir, "api_responses")
	if err := os.MkdirAll(respDir, 0o755); err != nil {
		return fmt.Errorf("failed to create responses dir: %w", err)
	}
	for _, resp := range out.Responses {
		name := fmt.Sprintf("response_batch_%d.json", resp.Batch)
		if err := writeJSON(filepath.Join(respDir, name), resp); err != nil {
			return err
		}
	}

	return nil
}

// metricsReport is the metrics.json shape: the evaluation result plus the
// run's per-instance average model latency.
type metricsReport struct {
	*evaluation.Result
	AvgLatencySec float64 `json:"avg_latency_sec"`
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

func writeInstanceCSV(path string, rows []evaluation.InstanceResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"instance_id", "precision", "recall", "f1",
		"partial_precision", "partial_recall", "partial_f1",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.InstanceID),
			formatScore(row.Precision),
			formatScore(row.Recall),
			formatScore(row.F1),
			formatScore(row.PartialPrecision),
			formatScore(row.PartialRecall),
			formatScore(row.PartialF1),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeLabelCSV(path string, rows []evaluation.LabelResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"label", "precision", "recall", "f1",
		"partial_precision", "partial_recall", "partial_f1",
		"tp", "fp", "fn",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Label,
			formatScore(row.Precision),
			formatScore(row.Recall),
			formatScore(row.F1),
			formatScore(row.PartialPrecision),
			formatScore(row.PartialRecall),
			formatScore(row.PartialF1),
			strconv.Itoa(row.TP),
			strconv.Itoa(row.FP),
			strconv.Itoa(row.FN),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
