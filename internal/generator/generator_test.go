package generator

import (
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/chanmujie/ner-using-llms/internal/dataset"

	"go.uber.org/zap"
)

func TestGenerateCleanBatchLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	g := New(42, zap.NewNop())

	err := g.Generate(Options{
		EntityTypes: []string{"name", "phone_number", "email", "organisation"},
		NoiseBatch:  "1",
		NumSamples:  20,
	}, path)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	ds, err := dataset.Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ds.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", ds.Len())
	}

	for _, inst := range ds.Instances() {
		if len(inst.Entities) == 0 {
			t.Fatalf("instance %d has no entities", inst.InstanceID)
		}
		// Clean batch: every entity surface form appears in the text.
		for _, e := range inst.Entities {
			if !strings.Contains(inst.Text, e.RawText) {
				t.Errorf("instance %d: %q not in text %q", inst.InstanceID, e.RawText, inst.Text)
			}
		}
	}
}

func TestGenerateHeavyBatchConcatenates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	g := New(7, zap.NewNop())

	err := g.Generate(Options{
		EntityTypes: []string{"name", "relationship"},
		NoiseBatch:  "3",
		NumSamples:  10,
	}, path)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	ds, err := dataset.Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, inst := range ds.Instances() {
		if strings.ContainsAny(inst.Text, " \t") {
			t.Errorf("instance %d text contains whitespace: %q", inst.InstanceID, inst.Text)
		}
	}
}

func TestGenerateInvalidEntitiesDroppedByLoader(t *testing.T) {
	// Noised batches mark truncated or character-swapped entities
	// is_valid: false, which the loader drops. Every surviving entity
	// must therefore carry recoverable noise only.
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	g := New(99, zap.NewNop())

	err := g.Generate(Options{
		EntityTypes: []string{"name", "organisation", "relationship"},
		NoiseBatch:  "2",
		NumSamples:  30,
	}, path)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	ds, err := dataset.Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, inst := range ds.Instances() {
		for _, e := range inst.Entities {
			noise, ok := e.ExtraFields["noise"].([]any)
			if !ok {
				continue
			}
			for _, n := range noise {
				if n == "truncation" || n == "swap_char" {
					t.Errorf("instance %d kept invalidated entity %q with noise %v",
						inst.InstanceID, e.RawText, noise)
				}
			}
		}
	}
}

func TestSamplersCoverAllEntityTypes(t *testing.T) {
	g := New(11, zap.NewNop())
	types := []string{
		"name", "relationship", "organisation", "phone_number", "date",
		"country", "airport_code", "plate", "id", "salutation", "random_entity",
	}
	for _, entityType := range types {
		s, err := g.sampleByType(entityType)
		if err != nil {
			t.Errorf("sampleByType(%q) error = %v", entityType, err)
			continue
		}
		if s.Text == "" || s.Clean == "" {
			t.Errorf("sampleByType(%q) = %+v, empty text or clean", entityType, s)
		}
		if entityType == "random_entity" {
			if s.Label != "plate" && s.Label != "id" {
				t.Errorf("random_entity label = %q, want plate or id", s.Label)
			}
		} else if s.Label != entityType {
			t.Errorf("sampleByType(%q) label = %q", entityType, s.Label)
		}
	}
	if _, err := g.sampleByType("nonsense"); err == nil {
		t.Error("sampleByType(nonsense) should error")
	}
}

func TestSamplePlateAndIDForms(t *testing.T) {
	g := New(5, zap.NewNop())
	for i := 0; i < 50; i++ {
		p := g.samplePlate()
		if p.Clean != strings.ToUpper(p.Clean) {
			t.Errorf("plate clean %q not uppercase", p.Clean)
		}
		if len(strings.Fields(p.Clean)) != 3 {
			t.Errorf("plate clean %q not three space-separated groups", p.Clean)
		}

		id := g.sampleID()
		if len(id.Clean) != 9 {
			t.Errorf("id clean %q length = %d, want 9", id.Clean, len(id.Clean))
		}
		if !strings.ContainsAny(id.Clean[:1], "STFGM") {
			t.Errorf("id clean %q has prefix %q", id.Clean, id.Clean[:1])
		}
	}
}

func TestSampleSalutationMatchesGender(t *testing.T) {
	g := New(21, zap.NewNop())
	for i := 0; i < 50; i++ {
		s := g.sampleSalutation("M")
		if s.Gender != "M" && s.Gender != "U" {
			t.Errorf("salutation %q gender = %q for a male name", s.Clean, s.Gender)
		}
	}
}

// Alias-bearing names render as "primary @ alias" with the primary name as
// the clean form and the alias preserved in its own field.
func TestGenerateAliasNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	g := New(8, zap.NewNop())

	err := g.Generate(Options{
		EntityTypes: []string{"name"},
		NoiseBatch:  "1",
		NumSamples:  60,
	}, path)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	ds, err := dataset.Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var sawAlias bool
	for _, inst := range ds.Instances() {
		for _, e := range inst.Entities {
			alias, ok := e.ExtraFields["alias"].(string)
			if !ok || alias == "" {
				continue
			}
			sawAlias = true
			if !strings.Contains(strings.ToLower(e.RawText), "@") {
				t.Errorf("alias name %q missing the @ separator", e.RawText)
			}
			if strings.Contains(e.CleanText, "@") {
				t.Errorf("clean form %q should be the primary name alone", e.CleanText)
			}
		}
	}
	if !sawAlias {
		t.Error("60 sampled names produced no alias-bearing entries")
	}
}

func TestGenerateReproducibleWithSeed(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.jsonl")
	pathB := filepath.Join(dir, "b.jsonl")

	opts := Options{EntityTypes: []string{"name", "date"}, NoiseBatch: "2", NumSamples: 5}
	if err := New(1234, zap.NewNop()).Generate(opts, pathA); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := New(1234, zap.NewNop()).Generate(opts, pathB); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	dsA, err := dataset.Load(pathA, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	dsB, err := dataset.Load(pathB, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if dsA.Len() != dsB.Len() {
		t.Fatalf("lengths differ: %d vs %d", dsA.Len(), dsB.Len())
	}
	for i := 0; i < dsA.Len(); i++ {
		if dsA.Instance(i).Text != dsB.Instance(i).Text {
			t.Errorf("instance %d differs: %q vs %q", i, dsA.Instance(i).Text, dsB.Instance(i).Text)
		}
	}
}

func TestSwapCharPreservesCharacters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := "telephone"
	out := swapChar(rng, in)

	if len(out) != len(in) {
		t.Fatalf("length changed: %q -> %q", in, out)
	}
	a := strings.Split(in, "")
	b := strings.Split(out, "")
	sort.Strings(a)
	sort.Strings(b)
	if strings.Join(a, "") != strings.Join(b, "") {
		t.Errorf("character multiset changed: %q -> %q", in, out)
	}
}

func TestTruncationShortens(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := "organisation"
	out := truncation(rng, in)
	if len(out) >= len(in) {
		t.Errorf("truncation(%q) = %q, not shorter", in, out)
	}
	if !strings.HasPrefix(in, out) {
		t.Errorf("truncation(%q) = %q, not a prefix", in, out)
	}
}

func TestConcatenateStripsWhitespace(t *testing.T) {
	if got := concatenate("a b\tc  d"); got != "abcd" {
		t.Errorf("concatenate = %q, want abcd", got)
	}
}

func TestDuplicateDoubles(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := duplicate(rng, "mum"); got != "mum mum" {
		t.Errorf("duplicate = %q, want \"mum mum\"", got)
	}
	if got := duplicate(rng, "  "); got != "  " {
		t.Errorf("duplicate on blank = %q, want unchanged", got)
	}
}

func TestTypoOnlySubstitutesMappedChars(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	in := "session"
	out := typo(rng, in)
	if len(out) != len(in) {
		t.Fatalf("length changed: %q -> %q", in, out)
	}
	for i, c := range out {
		orig := rune(in[i])
		if c == orig {
			continue
		}
		if sub, ok := typoMap[orig]; !ok || sub != c {
			t.Errorf("position %d: %q replaced by %q outside the typo map", i, orig, c)
		}
	}
}

func TestInvalidatesEntity(t *testing.T) {
	tests := []struct {
		applied []string
		want    bool
	}{
		{[]string{"random_casing", "typo"}, false},
		{[]string{"truncation"}, true},
		{[]string{"typo", "swap_char"}, true},
		{nil, false},
	}
	for _, tt := range tests {
		if got := invalidatesEntity(tt.applied); got != tt.want {
			t.Errorf("invalidatesEntity(%v) = %v, want %v", tt.applied, got, tt.want)
		}
	}
}
