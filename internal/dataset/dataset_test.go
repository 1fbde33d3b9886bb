package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/chanmujie/ner-using-llms/internal/models"

	"go.uber.org/zap"
)

func writeCorpus(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gold.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create corpus: %v", err)
	}
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatalf("write corpus: %v", err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close corpus: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCorpus(t,
		`{"text": "tan ah kow manager", "annotations": [{"label": "name", "text": "tan ah kow", "clean": "Tan Ah Kow", "gender": "M"}, {"label": "relationship", "text": "manager"}]}`,
		`{"text": "no entities here", "annotations": []}`,
		`{"text": "just text"}`,
	)

	ds, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if ds.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ds.Len())
	}

	first := ds.Instance(0)
	if first.InstanceID != 0 {
		t.Errorf("InstanceID = %d, want 0", first.InstanceID)
	}
	if len(first.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(first.Entities))
	}

	name := first.Entities[0]
	if name.Label != "name" || name.RawText != "tan ah kow" || name.CleanText != "Tan Ah Kow" {
		t.Errorf("unexpected name entity: %+v", name)
	}
	if got := name.ExtraFields["gender"]; got != "M" {
		t.Errorf("extra field gender = %v, want M", got)
	}

	// clean defaults to the raw text when absent
	rel := first.Entities[1]
	if rel.CleanText != "manager" {
		t.Errorf("CleanText = %q, want raw text fallback", rel.CleanText)
	}

	if len(ds.Instance(1).Entities) != 0 {
		t.Errorf("instance 1 should have no entities")
	}
	if len(ds.Instance(2).Entities) != 0 {
		t.Errorf("instance without annotations should have no entities")
	}
}

func TestLoadInvalidAnnotationDropped(t *testing.T) {
	path := writeCorpus(t,
		`{"text": "truncated beyond use", "annotations": [{"label": "email", "text": "ta", "is_valid": false}]}`,
	)

	ds, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(ds.Instance(0).Entities); got != 0 {
		t.Errorf("entities = %d, want 0 (invalid annotation must be dropped)", got)
	}
}

func TestLoadFormatErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing text", `{"annotations": []}`},
		{"text not a string", `{"text": 42}`},
		{"annotation missing label", `{"text": "x", "annotations": [{"text": "y"}]}`},
		{"annotation missing text", `{"text": "x", "annotations": [{"label": "name"}]}`},
		{"invalid json", `{"text": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCorpus(t, tt.line)
			_, err := Load(path, zap.NewNop())
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("Load() error = %v, want FormatError", err)
			}
			if formatErr.Line != 1 {
				t.Errorf("FormatError.Line = %d, want 1", formatErr.Line)
			}
		})
	}
}

func TestShuffledDoesNotMutateLoadOrder(t *testing.T) {
	path := writeCorpus(t,
		`{"text": "a"}`, `{"text": "b"}`, `{"text": "c"}`, `{"text": "d"}`, `{"text": "e"}`,
	)
	ds, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ds.Shuffled(rand.New(rand.NewSource(1)))

	for i, inst := range ds.Instances() {
		if inst.InstanceID != i {
			t.Fatalf("canonical order mutated: position %d holds instance %d", i, inst.InstanceID)
		}
	}
}

func TestUpdatePredictions(t *testing.T) {
	path := writeCorpus(t,
		`{"text": "tan ah kow manager", "annotations": [{"label": "name", "text": "tan ah kow", "clean": "Tan Ah Kow"}, {"label": "relationship", "text": "manager", "clean": "Manager"}]}`,
	)
	ds, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ds.UpdatePredictions(models.Predictions{
		"0": {{Label: "name", CleanText: "tan ah kow"}},
	})

	name := ds.Instance(0).Entities[0]
	if name.Correct == nil || !*name.Correct {
		t.Errorf("name entity should match case-insensitively")
	}
	if name.ModelPrediction == nil || *name.ModelPrediction != "tan ah kow" {
		t.Errorf("ModelPrediction = %v, want predicted clean text", name.ModelPrediction)
	}

	rel := ds.Instance(0).Entities[1]
	if rel.Correct == nil || *rel.Correct {
		t.Errorf("relationship entity should be marked incorrect")
	}
	if rel.ModelPrediction != nil {
		t.Errorf("unmatched entity should carry no prediction")
	}
}

func TestUpdatePredictionsDuplicateGoldTieBreak(t *testing.T) {
	path := writeCorpus(t,
		`{"text": "x", "annotations": [{"label": "email", "text": "a@b.com"}, {"label": "email", "text": "a@b.com"}]}`,
	)
	ds, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// One matching prediction, two identical gold entities: the pool holds a
	// single slot per identity, so only the first-listed gold entity wins.
	ds.UpdatePredictions(models.Predictions{
		"0": {{Label: "email", CleanText: "A@B.com"}},
	})

	entities := ds.Instance(0).Entities
	if entities[0].Correct == nil || !*entities[0].Correct {
		t.Errorf("first gold duplicate should claim the pool slot")
	}
	if entities[1].Correct == nil || *entities[1].Correct {
		t.Errorf("second gold duplicate should be marked incorrect")
	}
}

func TestUpdatePredictionsMissingInstance(t *testing.T) {
	path := writeCorpus(t,
		`{"text": "x", "annotations": [{"label": "name", "text": "ann lee"}]}`,
	)
	ds, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ds.UpdatePredictions(models.Predictions{})

	e := ds.Instance(0).Entities[0]
	if e.Correct == nil || *e.Correct {
		t.Errorf("entity without predictions should be marked incorrect, got %v", e.Correct)
	}
}

func TestSaveJSONLFlatAndNested(t *testing.T) {
	path := writeCorpus(t,
		`{"text": "tan ah kow", "annotations": [{"label": "name", "text": "tan ah kow", "clean": "Tan Ah Kow", "batch": "2"}]}`,
	)
	ds, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ds.UpdatePredictions(models.Predictions{"0": {{Label: "name", CleanText: "Tan Ah Kow"}}})

	flatPath := filepath.Join(t.TempDir(), "flat.jsonl")
	if err := ds.SaveJSONL(flatPath, ModeFlat); err != nil {
		t.Fatalf("SaveJSONL(flat) error = %v", err)
	}

	var flat FlatRecord
	decodeFirstLine(t, flatPath, &flat)
	if flat.EntityLabel != "name" || flat.GoldClean != "Tan Ah Kow" {
		t.Errorf("unexpected flat record: %+v", flat)
	}
	if flat.Correct == nil || !*flat.Correct {
		t.Errorf("flat record should carry the recorded verdict")
	}
	if flat.GoldFields["batch"] != "2" {
		t.Errorf("gold_fields missing preserved batch field: %v", flat.GoldFields)
	}

	nestedPath := filepath.Join(t.TempDir(), "nested.jsonl")
	if err := ds.SaveJSONL(nestedPath, ModeNested); err != nil {
		t.Fatalf("SaveJSONL(nested) error = %v", err)
	}

	var nested map[string]any
	decodeFirstLine(t, nestedPath, &nested)
	entities, ok := nested["entities"].([]any)
	if !ok || len(entities) != 1 {
		t.Fatalf("nested record entities = %v", nested["entities"])
	}
	entity := entities[0].(map[string]any)
	if entity["batch"] != "2" {
		t.Errorf("nested entity should inline extra fields, got %v", entity)
	}
	if entity["model_prediction"] != "Tan Ah Kow" {
		t.Errorf("nested entity prediction = %v", entity["model_prediction"])
	}

	if err := ds.SaveJSONL(filepath.Join(t.TempDir(), "bad.jsonl"), "unknown"); err == nil {
		t.Errorf("SaveJSONL should reject unknown modes")
	}
}

func TestSaveCSV(t *testing.T) {
	path := writeCorpus(t,
		`{"text": "a@b.com", "annotations": [{"label": "email", "text": "a@b.com"}]}`,
	)
	ds, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	if err := ds.SaveCSV(csvPath); err != nil {
		t.Fatalf("SaveCSV() error = %v", err)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("csv output is empty")
	}
}

func decodeFirstLine(t *testing.T, path string, v any) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatalf("%s is empty", path)
	}
	if err := json.Unmarshal(scanner.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}
