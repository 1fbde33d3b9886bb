package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/chanmujie/ner-using-llms/internal/models"

	"go.uber.org/zap"
)

// FormatError reports a malformed gold record. Gold data is the source of
// truth for scoring, so loading aborts on the first structural problem
// instead of proceeding with a partial corpus.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("gold record line %d: %s", e.Line, e.Msg)
}

// Dataset is an ordered gold corpus, one instance per input line.
type Dataset struct {
	path      string
	instances []*models.GoldInstance
	logger    *zap.Logger
}

// Load reads a gold JSONL corpus. Each line must be an object with a "text"
// string and an "annotations" list; annotations need at least "label" and
// "text", optionally "clean" and "is_valid". Annotations explicitly marked
// `is_valid: false` are dropped (upstream noising marked them unrecoverable);
// any other key is preserved verbatim into the entity's extra fields.
func Load(path string, logger *zap.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	d := &Dataset{path: path, logger: logger}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		inst, err := parseInstance(line, lineNo, len(d.instances))
		if err != nil {
			return nil, err
		}
		d.instances = append(d.instances, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	logger.Info("Gold dataset loaded",
		zap.String("path", path),
		zap.Int("instances", len(d.instances)))

	return d, nil
}

func parseInstance(line []byte, lineNo, instanceID int) (*models.GoldInstance, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}

	rawText, ok := record["text"]
	if !ok {
		return nil, &FormatError{Line: lineNo, Msg: `missing "text" field`}
	}
	var text string
	if err := json.Unmarshal(rawText, &text); err != nil {
		return nil, &FormatError{Line: lineNo, Msg: `"text" is not a string`}
	}

	var annotations []map[string]json.RawMessage
	if raw, ok := record["annotations"]; ok {
		if err := json.Unmarshal(raw, &annotations); err != nil {
			return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf(`invalid "annotations": %v`, err)}
		}
	}

	inst := &models.GoldInstance{InstanceID: instanceID, Text: text}
	for i, ann := range annotations {
		entity, err := parseAnnotation(ann, lineNo, i)
		if err != nil {
			return nil, err
		}
		if entity != nil {
			inst.Entities = append(inst.Entities, entity)
		}
	}
	return inst, nil
}

// parseAnnotation returns nil for annotations marked invalid; missing
// label/text is a parse error for the whole line, not a silent skip.
func parseAnnotation(ann map[string]json.RawMessage, lineNo, idx int) (*models.GoldEntity, error) {
	if raw, ok := ann["is_valid"]; ok {
		var valid bool
		if err := json.Unmarshal(raw, &valid); err == nil && !valid {
			return nil, nil
		}
	}

	var label, rawText string
	if raw, ok := ann["label"]; !ok || json.Unmarshal(raw, &label) != nil {
		return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("annotation %d missing label", idx)}
	}
	if raw, ok := ann["text"]; !ok || json.Unmarshal(raw, &rawText) != nil {
		return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("annotation %d missing text", idx)}
	}

	cleanText := rawText
	if raw, ok := ann["clean"]; ok {
		if err := json.Unmarshal(raw, &cleanText); err != nil {
			return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf(`annotation %d: "clean" is not a string`, idx)}
		}
	}

	var extra map[string]any
	for key, raw := range ann {
		switch key {
		case "label", "text", "clean":
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			extra[key] = v
		}
	}

	return &models.GoldEntity{
		Label:       label,
		RawText:     rawText,
		CleanText:   cleanText,
		ExtraFields: extra,
	}, nil
}

// Path returns the source file path.
func (d *Dataset) Path() string { return d.path }

// Len returns the instance count.
func (d *Dataset) Len() int { return len(d.instances) }

// Instance returns the instance at the canonical load position.
func (d *Dataset) Instance(i int) *models.GoldInstance { return d.instances[i] }

// Instances returns instances in canonical load order. Callers must not
// reorder the returned slice; use Shuffled for randomized presentation.
func (d *Dataset) Instances() []*models.GoldInstance { return d.instances }

// Shuffled returns a randomized copy of the instance ordering. The canonical
// load order is never mutated; scoring is order-independent and always runs
// over the canonical order.
func (d *Dataset) Shuffled(rng *rand.Rand) []*models.GoldInstance {
	shuffled := make([]*models.GoldInstance, len(d.instances))
	copy(shuffled, d.instances)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
