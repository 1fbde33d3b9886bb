// Package evaluation scores model extractions against a gold corpus under
// two matching disciplines: exact identity and partial character overlap.
package evaluation

import (
	"sort"
	"strings"

	"github.com/chanmujie/ner-using-llms/internal/dataset"
	"github.com/chanmujie/ner-using-llms/internal/models"
)

// Bucket bands for per-instance exact precision/recall distributions.
const (
	Bucket100 = "100"
	Bucket70  = "70-99"
	Bucket30  = "30-69"
	Bucket0   = "0-29"
)

// InstanceResult holds per-instance scores under both disciplines.
type InstanceResult struct {
	InstanceID       int     `json:"instance_id"`
	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	F1               float64 `json:"f1"`
	PartialPrecision float64 `json:"partial_precision"`
	PartialRecall    float64 `json:"partial_recall"`
	PartialF1        float64 `json:"partial_f1"`
}

// LabelResult holds corpus-wide scores for one label.
type LabelResult struct {
	Label            string  `json:"label"`
	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	F1               float64 `json:"f1"`
	PartialPrecision float64 `json:"partial_precision"`
	PartialRecall    float64 `json:"partial_recall"`
	PartialF1        float64 `json:"partial_f1"`
	TP               int     `json:"tp"`
	FP               int     `json:"fp"`
	FN               int     `json:"fn"`
}

// Result is the full evaluation output for one prediction set.
type Result struct {
	MicroPrecision   float64          `json:"micro_precision"`
	MicroRecall      float64          `json:"micro_recall"`
	MicroF1          float64          `json:"micro_f1"`
	PerInstance      []InstanceResult `json:"per_instance"`
	PerLabel         []LabelResult    `json:"per_label"`
	PrecisionBuckets map[string]int   `json:"per_instance_precision_buckets"`
	RecallBuckets    map[string]int   `json:"per_instance_recall_buckets"`
}

// Evaluator computes exact and partial metrics over a gold dataset.
// Instances are scored independently over the canonical load order, so the
// output never depends on presentation shuffling.
type Evaluator struct {
	ds     *dataset.Dataset
	labels map[string]struct{} // nil means all labels are scored
}

// New creates an evaluator. A non-empty label list restricts scoring to
// those labels on both the gold and prediction side.
func New(ds *dataset.Dataset, labels []string) *Evaluator {
	e := &Evaluator{ds: ds}
	if len(labels) > 0 {
		e.labels = make(map[string]struct{}, len(labels))
		for _, l := range labels {
			e.labels[l] = struct{}{}
		}
	}
	return e
}

// identity is the unit of exact comparison: label plus lowercased text.
// Set semantics collapse exact duplicates, so scoring counts distinct
// correct extractions rather than repeated ones.
type identity struct {
	label string
	text  string
}

// entitySet maps each deduped identity to the original-cased text it was
// built from. Exact counts use the keys; partial overlap uses the values,
// since character comparison is case-sensitive. When case variants collapse
// to one identity, the first-seen spelling survives.
type entitySet map[identity]string

func (s entitySet) add(label, text string) {
	key := identity{label, strings.ToLower(text)}
	if _, ok := s[key]; !ok {
		s[key] = text
	}
}

// goldText prefers the raw noised span; entities without one fall back to
// the canonical form.
func goldText(e *models.GoldEntity) string {
	if e.RawText != "" {
		return e.RawText
	}
	return e.CleanText
}

type labelCounts struct {
	tp, fp, fn                      int
	partialTP, partialFP, partialFN float64
}

// Evaluate scores one prediction set. A missing prediction entry for an
// instance counts as an empty list; predicted entities missing a label or
// clean text are dropped individually.
func (e *Evaluator) Evaluate(preds models.Predictions) *Result {
	result := &Result{
		PrecisionBuckets: newBuckets(),
		RecallBuckets:    newBuckets(),
	}

	var microTP, microFP, microFN int
	perLabel := make(map[string]*labelCounts)

	for _, inst := range e.ds.Instances() {
		goldSet := e.goldSet(inst)
		predSet := e.predSet(preds.ForInstance(inst.InstanceID))

		tp, fp, fn := exactCounts(goldSet, predSet)
		microTP += tp
		microFP += fp
		microFN += fn

		precision := ratio(tp, tp+fp)
		recall := ratio(tp, tp+fn)

		instResult := InstanceResult{
			InstanceID: inst.InstanceID,
			Precision:  precision,
			Recall:     recall,
			F1:         f1(precision, recall),
		}
		instResult.PartialPrecision, instResult.PartialRecall = partialScores(goldSet, predSet)
		instResult.PartialF1 = f1(instResult.PartialPrecision, instResult.PartialRecall)
		result.PerInstance = append(result.PerInstance, instResult)

		result.PrecisionBuckets[bucketFor(precision)]++
		result.RecallBuckets[bucketFor(recall)]++

		accumulateLabels(perLabel, goldSet, predSet)
	}

	result.MicroPrecision = ratio(microTP, microTP+microFP)
	result.MicroRecall = ratio(microTP, microTP+microFN)
	result.MicroF1 = f1(result.MicroPrecision, result.MicroRecall)

	labels := make([]string, 0, len(perLabel))
	for label := range perLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		c := perLabel[label]
		row := LabelResult{
			Label:     label,
			Precision: ratio(c.tp, c.tp+c.fp),
			Recall:    ratio(c.tp, c.tp+c.fn),
			TP:        c.tp,
			FP:        c.fp,
			FN:        c.fn,
		}
		row.F1 = f1(row.Precision, row.Recall)
		row.PartialPrecision = fratio(c.partialTP, c.partialTP+c.partialFP)
		row.PartialRecall = fratio(c.partialTP, c.partialTP+c.partialFN)
		row.PartialF1 = f1(row.PartialPrecision, row.PartialRecall)
		result.PerLabel = append(result.PerLabel, row)
	}

	return result
}

func (e *Evaluator) scored(label string) bool {
	if e.labels == nil {
		return true
	}
	_, ok := e.labels[label]
	return ok
}

func (e *Evaluator) goldSet(inst *models.GoldInstance) entitySet {
	set := make(entitySet, len(inst.Entities))
	for _, entity := range inst.Entities {
		if !e.scored(entity.Label) {
			continue
		}
		set.add(entity.Label, goldText(entity))
	}
	return set
}

func (e *Evaluator) predSet(preds []models.PredictedEntity) entitySet {
	set := make(entitySet, len(preds))
	for _, p := range preds {
		if p.Label == "" || p.CleanText == "" {
			continue // malformed prediction, dropped without failing the run
		}
		if !e.scored(p.Label) {
			continue
		}
		set.add(p.Label, p.CleanText)
	}
	return set
}

func exactCounts(gold, pred entitySet) (tp, fp, fn int) {
	for key := range pred {
		if _, ok := gold[key]; ok {
			tp++
		} else {
			fp++
		}
	}
	fn = len(gold) - tp
	return tp, fp, fn
}

// partialScores averages best same-label character-overlap scores: over
// predictions for partial precision, over gold entities for partial recall.
func partialScores(gold, pred entitySet) (precision, recall float64) {
	if len(pred) > 0 {
		var sum float64
		for key, text := range pred {
			sum += bestOverlap(key.label, text, gold, false)
		}
		precision = sum / float64(len(pred))
	}
	if len(gold) > 0 {
		var sum float64
		for key, text := range gold {
			sum += bestOverlap(key.label, text, pred, true)
		}
		recall = sum / float64(len(gold))
	}
	return precision, recall
}

// bestOverlap finds the highest overlap against same-label candidates.
// When fromGold is set, the subject is the gold side and candidates are
// predictions; otherwise the reverse. Overlap is always normalized by the
// gold text's character set and compares original casing.
func bestOverlap(label, text string, candidates entitySet, fromGold bool) float64 {
	best := 0.0
	for key, candidate := range candidates {
		if key.label != label {
			continue
		}
		var overlap float64
		if fromGold {
			overlap = PartialOverlap(text, candidate)
		} else {
			overlap = PartialOverlap(candidate, text)
		}
		if overlap > best {
			best = overlap
		}
	}
	return best
}

// PartialOverlap is the fraction of the gold text's character set present
// in the predicted text: |set(gold) ∩ set(pred)| / |set(gold)|, 0 for an
// empty gold text. The measure is asymmetric, case-sensitive, and
// insensitive to order and multiplicity: a prediction whose characters are
// a strict superset of the gold's scores 1.0.
func PartialOverlap(goldText, predText string) float64 {
	goldChars := charSet(goldText)
	if len(goldChars) == 0 {
		return 0
	}
	predChars := charSet(predText)
	matched := 0
	for r := range goldChars {
		if _, ok := predChars[r]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(goldChars))
}

func charSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

// accumulateLabels folds one instance's deduped sets into the per-label
// exact counts and partial sums. Partial true positive is the sum of best
// overlaps per predicted entity; partial false positive/negative count the
// entities whose best overlap is exactly zero.
func accumulateLabels(perLabel map[string]*labelCounts, gold, pred entitySet) {
	labels := make(map[string]struct{})
	for key := range gold {
		labels[key.label] = struct{}{}
	}
	for key := range pred {
		labels[key.label] = struct{}{}
	}

	for label := range labels {
		c := perLabel[label]
		if c == nil {
			c = &labelCounts{}
			perLabel[label] = c
		}

		goldLabel := filterLabel(gold, label)
		predLabel := filterLabel(pred, label)

		tp, fp, fn := exactCounts(goldLabel, predLabel)
		c.tp += tp
		c.fp += fp
		c.fn += fn

		for key, text := range predLabel {
			best := bestOverlap(key.label, text, goldLabel, false)
			c.partialTP += best
			if best == 0 {
				c.partialFP++
			}
		}
		for key, text := range goldLabel {
			if bestOverlap(key.label, text, predLabel, true) == 0 {
				c.partialFN++
			}
		}
	}
}

func filterLabel(set entitySet, label string) entitySet {
	out := make(entitySet)
	for key, text := range set {
		if key.label == label {
			out[key] = text
		}
	}
	return out
}

func newBuckets() map[string]int {
	return map[string]int{Bucket0: 0, Bucket30: 0, Bucket70: 0, Bucket100: 0}
}

// bucketFor classifies an exact score into one of the four bands. The 100
// band requires strict equality; zero-entity degenerate instances score 0
// by the zero-denominator rule and land in 0-29.
func bucketFor(score float64) string {
	switch {
	case score == 1.0:
		return Bucket100
	case score >= 0.7:
		return Bucket70
	case score >= 0.3:
		return Bucket30
	default:
		return Bucket0
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func fratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
