package prescription

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSolutionStripsFences(t *testing.T) {
	raw := "```json\n" + validSolution + "\n```"
	solution, err := ParseSolution(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if solution.RootCause != "Exam pressure" || solution.QuickWins[0] != "Breathing breaks" {
		t.Fatalf("unexpected solution: %+v", solution)
	}
}

func TestParseSolutionNormalizesSeverity(t *testing.T) {
	solution, err := ParseSolution(`Here you go: {"severity":" Medium ","solutions":[{"title":"Peer circles"}]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if solution.Severity != "medium" {
		t.Fatalf("expected medium, got %q", solution.Severity)
	}
}

func TestBuildPromptWithoutContext(t *testing.T) {
	prompt := BuildPrompt(defaultPromptTemplate, "cyberbullying", nil)
	if !strings.Contains(prompt, "Trending issue: cyberbullying") {
		t.Fatalf("issue not substituted")
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("placeholders left in prompt")
	}
	if strings.Contains(prompt, "Context:") {
		t.Fatalf("unexpected context line")
	}
}

func TestBuildPromptContextSorted(t *testing.T) {
	prompt := BuildPrompt("{{issue}}|{{context}}", "x", map[string]any{"b": 2, "a": "one"})
	if prompt != "x|Context: a=\"one\", b=2\n" {
		t.Fatalf("unexpected prompt %q", prompt)
	}
}

func TestLoadPromptTemplate(t *testing.T) {
	tmpl, err := LoadPromptTemplate("")
	if err != nil || tmpl != defaultPromptTemplate {
		t.Fatalf("expected default template, got err=%v", err)
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	if err := os.WriteFile(good, []byte("Issue: {{issue}}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmpl, err = LoadPromptTemplate(good)
	if err != nil || tmpl != "Issue: {{issue}}" {
		t.Fatalf("unexpected template %q err=%v", tmpl, err)
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("no placeholder"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadPromptTemplate(bad); err == nil {
		t.Fatalf("expected error for template without placeholder")
	}
	if _, err := LoadPromptTemplate(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
