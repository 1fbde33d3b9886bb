package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/chanmujie/ner-using-llms/internal/models"
)

// Export modes for SaveJSONL.
const (
	ModeFlat   = "flat"   // one record per (instance, entity) pair
	ModeNested = "nested" // one record per instance, entities inlined
)

// FlatRecord is the per-entity export row used for external reporting.
type FlatRecord struct {
	InstanceID      int            `json:"instance_id"`
	Text            string         `json:"text"`
	EntityLabel     string         `json:"entity_label"`
	GoldText        string         `json:"gold_text"`
	GoldClean       string         `json:"gold_clean"`
	ModelPrediction *string        `json:"model_prediction"`
	Correct         *bool          `json:"correct"`
	GoldFields      map[string]any `json:"gold_fields"`
}

// Records flattens the corpus to one row per gold entity.
func (d *Dataset) Records() []FlatRecord {
	var records []FlatRecord
	for _, inst := range d.instances {
		for _, e := range inst.Entities {
			records = append(records, FlatRecord{
				InstanceID:      inst.InstanceID,
				Text:            inst.Text,
				EntityLabel:     e.Label,
				GoldText:        e.RawText,
				GoldClean:       e.CleanText,
				ModelPrediction: e.ModelPrediction,
				Correct:         e.Correct,
				GoldFields:      e.ExtraFields,
			})
		}
	}
	return records
}

// SaveCSV writes the flat per-entity form as CSV. Extra gold fields are
// JSON-encoded into a single column.
func (d *Dataset) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"instance_id", "text", "entity_label", "gold_text", "gold_clean", "model_prediction", "correct", "gold_fields"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range d.Records() {
		prediction := ""
		if r.ModelPrediction != nil {
			prediction = *r.ModelPrediction
		}
		correct := ""
		if r.Correct != nil {
			correct = strconv.FormatBool(*r.Correct)
		}
		fields := ""
		if len(r.GoldFields) > 0 {
			encoded, err := json.Marshal(r.GoldFields)
			if err != nil {
				return fmt.Errorf("failed to encode gold fields: %w", err)
			}
			fields = string(encoded)
		}
		row := []string{
			strconv.Itoa(r.InstanceID), r.Text, r.EntityLabel,
			r.GoldText, r.GoldClean, prediction, correct, fields,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// SaveJSONL serializes the corpus back to JSON Lines, either flat (one
// record per entity, evaluation-ready) or nested (one record per instance,
// entity extra fields inlined alongside any recorded prediction verdicts).
func (d *Dataset) SaveJSONL(path, mode string) error {
	if mode != ModeFlat && mode != ModeNested {
		return fmt.Errorf("unknown export mode %q", mode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create jsonl: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	if mode == ModeFlat {
		for _, r := range d.Records() {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
		}
		return w.Flush()
	}

	for _, inst := range d.instances {
		entities := make([]map[string]any, 0, len(inst.Entities))
		for _, e := range inst.Entities {
			entry := map[string]any{
				"label": e.Label,
				"text":  e.RawText,
				"clean": e.CleanText,
			}
			for k, v := range e.ExtraFields {
				entry[k] = v
			}
			entry["model_prediction"] = e.ModelPrediction
			entry["correct"] = e.Correct
			entities = append(entities, entry)
		}
		record := map[string]any{
			"instance_id": inst.InstanceID,
			"text":        inst.Text,
			"entities":    entities,
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("failed to encode instance: %w", err)
		}
	}
	return w.Flush()
}

// LoadPredictions reads a raw predictions JSON file: a mapping from
// instance identifier to predicted entity list. Numeric keys are accepted
// and normalized to their decimal string form.
func LoadPredictions(path string) (models.Predictions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read predictions: %w", err)
	}

	var preds models.Predictions
	if err := json.Unmarshal(data, &preds); err != nil {
		return nil, fmt.Errorf("failed to parse predictions: %w", err)
	}
	return preds, nil
}
