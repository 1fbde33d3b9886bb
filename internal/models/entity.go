package models

import "strconv"

// GoldEntity is one ground-truth extraction target inside a gold instance.
// ModelPrediction and Correct stay nil until a reconciliation run writes them.
type GoldEntity struct {
	Label           string         `json:"label"`
	RawText         string         `json:"text"`
	CleanText       string         `json:"clean"`
	ExtraFields     map[string]any `json:"extra_fields,omitempty"`
	ModelPrediction *string        `json:"model_prediction"`
	Correct         *bool          `json:"correct"`
}

// GoldInstance is one noised input string with its gold annotations.
// InstanceID is assigned by line order at load time and is unique per corpus.
type GoldInstance struct {
	InstanceID int           `json:"instance_id"`
	Text       string        `json:"text"`
	Entities   []*GoldEntity `json:"entities"`
}

// PredictedEntity is a model's proposed extraction for one instance.
type PredictedEntity struct {
	Label       string         `json:"label"`
	CleanText   string         `json:"clean_text"`
	ExtraFields map[string]any `json:"extra_fields,omitempty"`
}

// Predictions maps instance identifiers to predicted entity lists.
// Keys are the decimal string form of the instance ID; prediction files
// produced by external tooling sometimes carry numeric keys, so lookups
// always go through ForInstance rather than direct indexing.
type Predictions map[string][]PredictedEntity

// ForInstance returns the predicted entities for an instance, or nil when
// no prediction entry exists (the evaluator treats nil as an empty list).
func (p Predictions) ForInstance(id int) []PredictedEntity {
	if p == nil {
		return nil
	}
	return p[strconv.Itoa(id)]
}
