package generator

import (
	"math/rand"
	"regexp"
	"sort"
	"strings"
)

type noiseFunc struct {
	name string
	fn   func(*rand.Rand, string) string
}

func randomCasing(rng *rand.Rand, text string) string {
	var b strings.Builder
	for _, c := range text {
		if rng.Float64() < 0.5 {
			b.WriteString(strings.ToUpper(string(c)))
		} else {
			b.WriteString(strings.ToLower(string(c)))
		}
	}
	return b.String()
}

func swapChar(rng *rand.Rand, text string) string {
	runes := []rune(text)
	if len(runes) < 2 {
		return text
	}
	i := rng.Intn(len(runes))
	j := rng.Intn(len(runes))
	for j == i {
		j = rng.Intn(len(runes))
	}
	runes[i], runes[j] = runes[j], runes[i]
	return string(runes)
}

var wordGap = regexp.MustCompile(`\w\w`)

func punctuation(rng *rand.Rand, text string) string {
	text = strings.ReplaceAll(text, "/", "")
	text = strings.ReplaceAll(text, "-", "=")
	if rng.Float64() < 0.3 {
		if loc := wordGap.FindStringIndex(text); loc != nil {
			mid := loc[0] + 1
			text = text[:mid] + "." + text[mid:]
		}
	}
	return text
}

var typoMap = map[rune]rune{'e': '3', 'a': '@', 'o': '0', 'i': '1', 's': '$'}

func typo(rng *rand.Rand, text string) string {
	runes := []rune(text)
	for i, c := range runes {
		lower := []rune(strings.ToLower(string(c)))[0]
		if sub, ok := typoMap[lower]; ok && rng.Float64() < 0.2 {
			runes[i] = sub
		}
	}
	return string(runes)
}

func truncation(rng *rand.Rand, text string) string {
	runes := []rune(text)
	if len(runes) > 5 {
		cut := len(runes)/2 + rng.Intn(len(runes)-len(runes)/2)
		return string(runes[:cut])
	}
	return text
}

func duplicate(_ *rand.Rand, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	return text + " " + text
}

var junkChars = []string{"#", "%", "^", "*", "~", "|", "`"}

func randomChar(rng *rand.Rand, text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}
	inserts := 2
	if len(runes) < 2 {
		inserts = len(runes)
	}
	for n := 0; n < inserts; n++ {
		pos := rng.Intn(len(runes) + 1)
		junk := []rune(junkChars[rng.Intn(len(junkChars))])
		out := make([]rune, 0, len(runes)+len(junk))
		out = append(out, runes[:pos]...)
		out = append(out, junk...)
		out = append(out, runes[pos:]...)
		runes = out
	}
	return string(runes)
}

var junkTokens = []string{"PASSWD", "INFO", "ABCD", "NULL", "NA"}

func junkAffix(rng *rand.Rand, text string) string {
	if rng.Float64() < 0.5 {
		return junkTokens[rng.Intn(len(junkTokens))] + " " + text
	}
	if rng.Float64() > 0.5 {
		return text + " " + junkTokens[rng.Intn(len(junkTokens))]
	}
	return text
}

var phoneSeps = regexp.MustCompile(`[-/]`)

func phoneSeparators(rng *rand.Rand, text string) string {
	plusSub := []string{"--", "#", `"`}[rng.Intn(3)]
	text = strings.ReplaceAll(text, "+", plusSub)
	return phoneSeps.ReplaceAllStringFunc(text, func(string) string {
		return []string{".", "~", "/"}[rng.Intn(3)]
	})
}

var whitespace = regexp.MustCompile(`\s+`)

func concatenate(text string) string {
	return whitespace.ReplaceAllString(text, "")
}

// entityPipelines maps noise batch and label to the candidate noise
// functions for single entities. Batch 1 entities stay clean.
var entityPipelines = map[string]map[string][]noiseFunc{
	"2": {
		"name":         {{"random_casing", randomCasing}, {"typo", typo}, {"swap_char", swapChar}},
		"relationship": {{"random_casing", randomCasing}, {"typo", typo}, {"truncation", truncation}, {"swap_char", swapChar}},
		"organisation": {{"random_casing", randomCasing}, {"typo", typo}, {"truncation", truncation}, {"swap_char", swapChar}},
		"date":         {{"random_casing", randomCasing}, {"punctuation", punctuation}, {"typo", typo}},
		"phone_number": {{"phone_separators", phoneSeparators}, {"junk", junkAffix}},
		"email":        {{"random_casing", randomCasing}, {"typo", typo}},
	},
	"3": {
		"name":         {{"random_casing", randomCasing}, {"typo", typo}, {"truncation", truncation}, {"duplicate", duplicate}, {"junk", junkAffix}, {"swap_char", swapChar}},
		"relationship": {{"random_casing", randomCasing}, {"typo", typo}, {"truncation", truncation}, {"duplicate", duplicate}, {"junk", junkAffix}, {"swap_char", swapChar}},
		"organisation": {{"random_casing", randomCasing}, {"typo", typo}, {"truncation", truncation}, {"duplicate", duplicate}, {"junk", junkAffix}, {"swap_char", swapChar}},
		"date":         {{"random_casing", randomCasing}, {"punctuation", punctuation}, {"typo", typo}, {"truncation", truncation}, {"duplicate", duplicate}},
		"phone_number": {{"truncation", truncation}, {"duplicate", duplicate}, {"junk", junkAffix}, {"random_char", randomChar}, {"phone_separators", phoneSeparators}},
		"email":        {{"random_casing", randomCasing}, {"typo", typo}, {"truncation", truncation}, {"duplicate", duplicate}},
	},
}

var fallbackPipeline = []noiseFunc{{"typo", typo}, {"random_casing", randomCasing}}

// applyEntityNoise noises one entity surface form per its label's
// pipeline and reports which functions actually changed the text. Noise
// functions are probabilistic, so it retries until at least one lands.
func (g *Generator) applyEntityNoise(text, label, batch string) (string, []string) {
	pipeline := fallbackPipeline
	if byLabel, ok := entityPipelines[batch]; ok {
		if p, ok := byLabel[label]; ok {
			pipeline = p
		}
	}

	maxTries := 7
	if batch == "2" {
		maxTries = 5
	}

	for try := 0; try < maxTries; try++ {
		candidate := text
		shuffled := make([]noiseFunc, len(pipeline))
		copy(shuffled, pipeline)
		g.rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		limit := len(shuffled)
		if limit > 3 {
			limit = 3
		}
		apply := g.rng.Intn(limit) + 1

		var applied []string
		for _, nf := range shuffled[:apply] {
			before := candidate
			candidate = nf.fn(g.rng, candidate)
			if candidate != before {
				applied = append(applied, nf.name)
			}
		}

		if len(applied) > 0 {
			return candidate, applied
		}
	}

	nf := pipeline[g.rng.Intn(len(pipeline))]
	return nf.fn(g.rng, text), []string{nf.name}
}

// buildText assembles the instance surface string from entity texts
// according to the structural noise batch: clean spacing, concatenation,
// or concatenation with junk.
func (g *Generator) buildText(batch string, texts []string) (string, []string) {
	switch batch {
	case "1":
		return strings.Join(texts, " "), nil
	case "2":
		return concatenate(strings.Join(texts, "")), []string{"concatenate"}
	case "3":
		noiseTypes := map[string]struct{}{"concatenate": {}}
		parts := make([]string, len(texts))
		for i, t := range texts {
			if g.rng.Float64() < 0.3 {
				parts[i] = junkAffix(g.rng, t)
				noiseTypes["junk"] = struct{}{}
			} else {
				parts[i] = duplicate(g.rng, t)
				noiseTypes["duplicate"] = struct{}{}
			}
		}
		text := concatenate(strings.Join(parts, ""))
		if g.rng.Float64() < 0.5 {
			text = concatenate(junkAffix(g.rng, text))
			noiseTypes["junk"] = struct{}{}
		}

		names := make([]string, 0, len(noiseTypes))
		for name := range noiseTypes {
			names = append(names, name)
		}
		sort.Strings(names)
		return text, names
	default:
		return strings.Join(texts, " "), nil
	}
}

// invalidatesEntity reports whether a noise function damaged the surface
// form beyond recognition, which marks the annotation is_valid: false.
func invalidatesEntity(applied []string) bool {
	for _, name := range applied {
		if name == "truncation" || name == "swap_char" {
			return true
		}
	}
	return false
}
