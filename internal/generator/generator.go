// Package generator builds synthetic gold corpora: sampled entities,
// per-entity noising, and structural noise over the assembled instance
// text. The output is JSONL consumable by the dataset loader.
package generator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"
)

// Options controls one generation run.
type Options struct {
	// EntityTypes names the entity types each instance draws from.
	// Email is derived from the sampled name and organisation when
	// requested alongside them.
	EntityTypes []string
	// NoiseBatch selects the noise level: "1" clean, "2" concatenated,
	// "3" heavy.
	NoiseBatch string
	// NumSamples is how many instances to generate.
	NumSamples int
}

// Generator produces synthetic gold instances.
type Generator struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// New creates a generator. A zero seed is replaced with a random one.
func New(seed int64, logger *zap.Logger) *Generator {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Generator{
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// annotation is the on-disk shape of one gold entity.
type annotation struct {
	Label   string   `json:"label"`
	Text    string   `json:"text"`
	Clean   string   `json:"clean,omitempty"`
	Alias   string   `json:"alias,omitempty"`
	Gender  string   `json:"gender,omitempty"`
	Noise   []string `json:"noise,omitempty"`
	IsValid *bool    `json:"is_valid,omitempty"`
}

// instance is the on-disk shape of one gold corpus line.
type instance struct {
	Text        string       `json:"text"`
	NoiseBatch  string       `json:"noise_batch"`
	Annotations []annotation `json:"annotations"`
	NoiseTypes  []string     `json:"noise_types,omitempty"`
}

// buildInstance samples entities of the requested types, noises each one
// per the batch pipeline, and assembles the instance text.
func (g *Generator) buildInstance(entityTypes []string, noiseBatch string) (*instance, error) {
	var name, org *Sample
	var samples []Sample

	for _, entityType := range entityTypes {
		switch entityType {
		case "email", "salutation":
			// Derived below once name and organisation are settled.
			continue
		case "name":
			s := g.sampleName()
			name = &s
			samples = append(samples, s)
		case "organisation":
			s := g.sampleOrganisation()
			org = &s
			samples = append(samples, s)
		default:
			s, err := g.sampleByType(entityType)
			if err != nil {
				return nil, err
			}
			samples = append(samples, s)
		}
	}

	for _, entityType := range entityTypes {
		switch entityType {
		case "email":
			samples = append(samples, g.sampleEmail(name, org))
		case "salutation":
			// The title agrees with the sampled name's gender.
			gender := ""
			if name != nil {
				gender = name.Gender
			}
			samples = append(samples, g.sampleSalutation(gender))
		}
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no entities sampled for types %v", entityTypes)
	}

	inst := &instance{NoiseBatch: noiseBatch}
	texts := make([]string, 0, len(samples))

	for _, s := range samples {
		ann := annotation{
			Label:  s.Label,
			Text:   s.Text,
			Clean:  s.Clean,
			Alias:  s.Alias,
			Gender: s.Gender,
		}

		if noiseBatch == "2" || noiseBatch == "3" {
			noised, applied := g.applyEntityNoise(s.Text, s.Label, noiseBatch)
			ann.Text = noised
			ann.Noise = applied
			valid := !invalidatesEntity(applied)
			ann.IsValid = &valid
		}

		texts = append(texts, ann.Text)
		inst.Annotations = append(inst.Annotations, ann)
	}

	text, noiseTypes := g.buildText(noiseBatch, texts)
	inst.Text = text
	inst.NoiseTypes = noiseTypes

	// Concatenation strips whitespace from the instance text, so the
	// annotation surface forms must match.
	if noiseBatch == "2" || noiseBatch == "3" {
		for i := range inst.Annotations {
			inst.Annotations[i].Text = concatenate(inst.Annotations[i].Text)
		}
	}

	return inst, nil
}

// Generate writes a corpus of opts.NumSamples instances to outPath.
func (g *Generator) Generate(opts Options, outPath string) error {
	if len(opts.EntityTypes) == 0 {
		return fmt.Errorf("at least one entity type is required")
	}
	if opts.NoiseBatch == "" {
		opts.NoiseBatch = "1"
	}
	if opts.NumSamples <= 0 {
		opts.NumSamples = 10
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	written := 0
	for i := 0; i < opts.NumSamples; i++ {
		inst, err := g.buildInstance(opts.EntityTypes, opts.NoiseBatch)
		if err != nil {
			g.logger.Warn("Skipping instance", zap.Error(err))
			continue
		}

		line, err := json.Marshal(inst)
		if err != nil {
			return fmt.Errorf("failed to marshal instance: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write instance: %w", err)
		}
		written++
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	g.logger.Info("Corpus generated",
		zap.String("path", outPath),
		zap.Int("instances", written),
		zap.String("noise_batch", opts.NoiseBatch))

	return nil
}
