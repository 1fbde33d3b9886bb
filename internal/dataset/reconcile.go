package dataset

import (
	"strings"

	"github.com/chanmujie/ner-using-llms/internal/models"
)

type identity struct {
	label string
	text  string
}

// UpdatePredictions attaches one run's predictions to the gold entities,
// deciding correctness by exact identity only: key = (label, lowercased
// clean text). Each pool slot is consumed at most once; because the pool is
// keyed by identity, duplicate predictions collapse to a single slot and
// duplicate gold entities are resolved first-listed-gold-wins. This greedy
// matching is not optimal bipartite matching when duplicate keys and
// imbalanced counts interact; the tie-break is load-bearing for downstream
// consumers and must not be "improved" silently.
//
// The method overwrites ModelPrediction/Correct in place, so two
// reconciliation runs over the same dataset must not execute concurrently.
func (d *Dataset) UpdatePredictions(preds models.Predictions) {
	for _, inst := range d.instances {
		pool := make(map[identity]models.PredictedEntity)
		for _, p := range preds.ForInstance(inst.InstanceID) {
			pool[identity{p.Label, strings.ToLower(p.CleanText)}] = p
		}

		for _, gold := range inst.Entities {
			key := identity{gold.Label, strings.ToLower(gold.CleanText)}
			if match, ok := pool[key]; ok {
				delete(pool, key)
				prediction := match.CleanText
				correct := true
				gold.ModelPrediction = &prediction
				gold.Correct = &correct
			} else {
				correct := false
				gold.ModelPrediction = nil
				gold.Correct = &correct
			}
		}
		// Leftover pool entries are false positives; they are only visible
		// through the evaluator's exact-match counts.
	}
}
