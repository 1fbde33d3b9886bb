// Package extractor turns raw LLM completions into structured predicted
// entities. Model output is untrusted: it may be fenced in markdown,
// wrapped in a transport envelope, or be almost-JSON; this package absorbs
// those faults so that prediction-side noise never aborts a run.
package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/chanmujie/ner-using-llms/internal/models"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"
)

// ExtractedItem is one input string's worth of predictions, in the order
// the model returned them.
type ExtractedItem struct {
	Input    string
	Entities []models.PredictedEntity
}

// Extractor parses raw model responses.
type Extractor struct {
	logger *zap.Logger
}

// New creates an extractor.
func New(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

var fencePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*(.*?)```"),
	regexp.MustCompile("(?s)```\\s*(.*?)```"),
	regexp.MustCompile(`(?s)(\[.*\])`),
	regexp.MustCompile(`(?s)({.*})`),
}

// valueKeyForLabel maps an entity label to the key holding its value in
// the prompt output schema ("name" objects keep the value under "name",
// "phone_number" under "number", and so on).
func valueKeyForLabel(label string) string {
	switch label {
	case "name", "organisation":
		return "name"
	case "email":
		return "email"
	case "phone_number":
		return "number"
	default:
		return label
	}
}

// Parse extracts the batched prediction items from a raw completion.
// It unwraps an {"output": ...} transport envelope if present, strips
// markdown fences, and falls back to jsonrepair when the payload is
// almost-JSON. A response that yields no JSON at all is an error; the
// caller decides whether to retry or record the batch as failed.
func (e *Extractor) Parse(raw string) ([]ExtractedItem, error) {
	content := unwrapEnvelope(raw)

	payload, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var objects []map[string]json.RawMessage
	switch {
	case strings.HasPrefix(strings.TrimSpace(payload), "["):
		if err := json.Unmarshal([]byte(payload), &objects); err != nil {
			return nil, fmt.Errorf("failed to decode response array: %w", err)
		}
	default:
		var single map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &single); err != nil {
			return nil, fmt.Errorf("failed to decode response object: %w", err)
		}
		objects = append(objects, single)
	}

	items := make([]ExtractedItem, 0, len(objects))
	for _, obj := range objects {
		items = append(items, e.parseItem(obj))
	}
	return items, nil
}

// parseItem converts one response object into predicted entities. Every
// key except "input" is treated as a label carrying a list of entity
// objects; values of "null" or empty strings are dropped.
func (e *Extractor) parseItem(obj map[string]json.RawMessage) ExtractedItem {
	var item ExtractedItem
	if raw, ok := obj["input"]; ok {
		var input string
		if err := json.Unmarshal(raw, &input); err == nil {
			item.Input = strings.TrimSpace(input)
		}
	}

	for label, raw := range obj {
		if label == "input" {
			continue
		}
		var values []map[string]any
		if err := json.Unmarshal(raw, &values); err != nil {
			// Not a list of entity objects; skip this key rather than the
			// whole item.
			e.logger.Debug("Skipping non-list entity field",
				zap.String("label", label))
			continue
		}

		valueKey := valueKeyForLabel(label)
		for _, v := range values {
			cleanText, _ := v[valueKey].(string)
			cleanText = strings.TrimSpace(cleanText)
			if cleanText == "" || strings.EqualFold(cleanText, "null") {
				continue
			}

			var extra map[string]any
			for k, val := range v {
				switch k {
				case label, "name", "email", "number":
					continue
				}
				if extra == nil {
					extra = make(map[string]any)
				}
				extra[k] = val
			}

			item.Entities = append(item.Entities, models.PredictedEntity{
				Label:       label,
				CleanText:   cleanText,
				ExtraFields: extra,
			})
		}
	}
	return item
}

// unwrapEnvelope handles responses delivered as {"output": "<content>"}.
func unwrapEnvelope(raw string) string {
	trimmed := strings.TrimSpace(raw)
	var envelope struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil && envelope.Output != "" {
		return envelope.Output
	}
	return trimmed
}

// extractJSON locates the JSON payload inside free-form model output.
func extractJSON(content string) (string, error) {
	for _, pattern := range fencePatterns {
		match := pattern.FindStringSubmatch(content)
		if match == nil {
			continue
		}
		candidate := strings.TrimSpace(match[1])
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
		if repaired, err := jsonrepair.JSONRepair(candidate); err == nil && json.Valid([]byte(repaired)) {
			return repaired, nil
		}
	}

	// Last resort: repair the whole content.
	if repaired, err := jsonrepair.JSONRepair(strings.TrimSpace(content)); err == nil && json.Valid([]byte(repaired)) {
		return repaired, nil
	}

	preview := content
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	return "", fmt.Errorf("no valid JSON found in response: %s", preview)
}
