package prompt

import (
	"strings"
	"testing"
)

func TestGetKnownTags(t *testing.T) {
	for _, tag := range []string{"p1", "p2", "p3", "p4", "p5"} {
		tpl, ok := Get(tag)
		if !ok {
			t.Errorf("Get(%q) not found", tag)
		}
		if tpl == "" {
			t.Errorf("Get(%q) returned empty template", tag)
		}
	}
	if _, ok := Get("p99"); ok {
		t.Error("Get(p99) should not be found")
	}
}

func TestGetOrDefaultFallsBack(t *testing.T) {
	def, _ := Get(DefaultTag)
	if got := GetOrDefault("does-not-exist"); got != def {
		t.Error("GetOrDefault should fall back to the default template")
	}
	p2, _ := Get("p2")
	if got := GetOrDefault("p2"); got != p2 {
		t.Error("GetOrDefault(p2) should return the p2 template")
	}
}

func TestTags(t *testing.T) {
	tags := Tags()
	if len(tags) != 5 {
		t.Fatalf("Tags() = %v, want 5 entries", tags)
	}
	seen := map[string]bool{}
	for _, tag := range tags {
		seen[tag] = true
	}
	for _, tag := range []string{"p1", "p2", "p3", "p4", "p5"} {
		if !seen[tag] {
			t.Errorf("Tags() = %v, missing %s", tags, tag)
		}
	}
}

func TestBuildUserPromptNumbersLines(t *testing.T) {
	got := BuildUserPrompt([]string{"alpha", "beta", "gamma"})

	for _, want := range []string{"1. alpha", "2. beta", "3. gamma"} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildUserPrompt missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "1. alpha") > strings.Index(got, "2. beta") {
		t.Error("inputs out of order")
	}
}
