package llm

import (
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"fenced with tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"no newline after fence", "```{\"a\":1}```", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripFences(tc.in); got != tc.want {
				t.Fatalf("StripFences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtendSummaryPromptFresh(t *testing.T) {
	p := ExtendSummaryPrompt("", "Human: hello\nAI: hi")
	if !strings.HasPrefix(p, "Create a summary") {
		t.Fatalf("fresh summary prompt should start from scratch, got %q", p)
	}
	if !strings.Contains(p, "Human: hello") {
		t.Fatalf("prompt missing message lines: %q", p)
	}
}

func TestExtendSummaryPromptIncremental(t *testing.T) {
	p := ExtendSummaryPrompt("user asked about widgets", "Human: and gadgets?")
	if !strings.Contains(p, "existing summary") {
		t.Fatalf("incremental prompt should reference the existing summary, got %q", p)
	}
	if !strings.Contains(p, "user asked about widgets") {
		t.Fatalf("prompt missing prior summary: %q", p)
	}
}

func TestPromptInterpolation(t *testing.T) {
	if got := GeneralPrompt("just a greeting"); !strings.Contains(got, "just a greeting") {
		t.Fatalf("GeneralPrompt did not interpolate logic: %q", got)
	}
	if got := MoreInfoPrompt("no error text given"); !strings.Contains(got, "no error text given") {
		t.Fatalf("MoreInfoPrompt did not interpolate logic: %q", got)
	}
	if got := ResponsePrompt("<doc/>"); !strings.Contains(got, "<doc/>") {
		t.Fatalf("ResponsePrompt did not interpolate context: %q", got)
	}
}
