package prescription

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	issuePlaceholder   = "{{issue}}"
	contextPlaceholder = "{{context}}"
)

const defaultPromptTemplate = `You advise a school guidance office. Counselors have flagged the issue below as the one trending among students this week. Give short, practical countermeasures the school can start on right away.

Trending issue: {{issue}}
{{context}}
Reply with JSON only, no prose and no code fences, shaped exactly like this:

{
  "severity": "low|medium|high",
  "root_cause": "the main cause in one or two sentences",
  "solutions": [
    {
      "title": "three to five words",
      "steps": ["first step", "second step", "third step"],
      "impact": "expected outcome in one sentence"
    }
  ],
  "quick_wins": ["a small fix", "another small fix"]
}

Offer two or three solutions written for teachers, advisers and counselors.`

// LoadPromptTemplate reads a template file, or returns the built-in template when path is empty.
func LoadPromptTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return defaultPromptTemplate, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %s", path)
	}
	template := strings.TrimSpace(string(content))
	if !strings.Contains(template, issuePlaceholder) {
		return "", fmt.Errorf("prompt template %s does not contain %s", path, issuePlaceholder)
	}
	return template, nil
}

// BuildPrompt fills the template with the issue and a sorted rendering of the context tags.
func BuildPrompt(template, issue string, context map[string]any) string {
	contextLine := ""
	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for key := range context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			value, err := json.Marshal(context[key])
			if err != nil {
				continue
			}
			parts = append(parts, key+"="+string(value))
		}
		contextLine = "Context: " + strings.Join(parts, ", ") + "\n"
	}
	out := strings.ReplaceAll(template, issuePlaceholder, issue)
	return strings.ReplaceAll(out, contextPlaceholder, contextLine)
}

// ParseSolution extracts the JSON solution from model output, tolerating code fences
// and stray prose around the object.
func ParseSolution(raw string) (Solution, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Solution{}, errors.New("model response did not contain a JSON object")
	}
	var solution Solution
	if err := json.Unmarshal([]byte(text[start:end+1]), &solution); err != nil {
		return Solution{}, fmt.Errorf("model response is not valid JSON: %w", err)
	}
	solution.Severity = strings.ToLower(strings.TrimSpace(solution.Severity))
	switch solution.Severity {
	case "low", "medium", "high":
	default:
		return Solution{}, fmt.Errorf("model response has unknown severity %q", solution.Severity)
	}
	if len(solution.Solutions) == 0 {
		return Solution{}, errors.New("model response has no solutions")
	}
	return solution, nil
}
