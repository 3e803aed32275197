package parse

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func mcqArrayJSON(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{
  "question": "Question %d?",
  "options": ["a","b","c","d"],
  "correct_option": "B",
  "explanation": "Because %d."
}`, i+1, i+1)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestQuiz_FencedMCQArray(t *testing.T) {
	raw := "Here is your quiz:\n```json\n" + mcqArrayJSON(5) + "\n```"
	got := Quiz(raw)
	if got.Raw != "" {
		t.Fatalf("unexpected raw fallback: %q", got.Raw)
	}
	if len(got.Items) != 5 {
		t.Fatalf("items: got %d, want 5", len(got.Items))
	}
	first := got.Items[0]
	if first.Question != "Question 1?" {
		t.Errorf("question: %q", first.Question)
	}
	if len(first.Options) != 4 || first.Options[1] != "b" {
		t.Errorf("options: %v", first.Options)
	}
	if first.CorrectOption != "B" {
		t.Errorf("correct_option: %q", first.CorrectOption)
	}
	if first.Explanation != "Because 1." {
		t.Errorf("explanation: %q", first.Explanation)
	}
}

func TestQuiz_BareArrayWithoutFence(t *testing.T) {
	got := Quiz("Sure!\n" + mcqArrayJSON(2) + "\nHope that helps.")
	if len(got.Items) != 2 {
		t.Fatalf("items: %+v", got)
	}
}

func TestQuiz_ObjectWithQuizKey(t *testing.T) {
	raw := `{"quiz": ` + mcqArrayJSON(3) + `}`
	got := Quiz(raw)
	if len(got.Items) != 3 {
		t.Fatalf("items: %+v", got)
	}
}

func TestQuiz_ShortAnswerItems(t *testing.T) {
	raw := "```json\n" + `[{"question": "Define entropy.", "answer": "A measure of disorder."}]` + "\n```"
	got := Quiz(raw)
	if len(got.Items) != 1 {
		t.Fatalf("items: %+v", got)
	}
	if got.Items[0].Answer != "A measure of disorder." {
		t.Errorf("answer: %q", got.Items[0].Answer)
	}
	if got.Items[0].CorrectOption != "" || len(got.Items[0].Options) != 0 {
		t.Errorf("short item carries MCQ fields: %+v", got.Items[0])
	}
}

func TestQuiz_NoJSONReturnsRawFallback(t *testing.T) {
	raw := "I'm sorry, I could not generate a quiz from this material."
	got := Quiz(raw)
	if got.Items != nil {
		t.Errorf("items: %+v", got.Items)
	}
	if got.Raw != raw {
		t.Errorf("raw: %q", got.Raw)
	}
}

func TestQuiz_EmptyInput(t *testing.T) {
	got := Quiz("")
	if got.Items != nil || got.Raw != "" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestQuiz_ArrayOfScalarsFallsBack(t *testing.T) {
	got := Quiz(`["just", "strings"]`)
	if got.Items != nil {
		t.Errorf("items: %+v", got.Items)
	}
	if got.Raw == "" {
		t.Error("expected raw fallback")
	}
}

func TestQuiz_ResultSerialization(t *testing.T) {
	parsed := Quiz("```json\n" + mcqArrayJSON(1) + "\n```")
	data, err := json.Marshal(parsed)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "quiz_raw") {
		t.Errorf("parsed result should omit quiz_raw: %s", data)
	}
	fallback := Quiz("no json")
	data, err = json.Marshal(fallback)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "quiz_raw") {
		t.Errorf("fallback result should include quiz_raw: %s", data)
	}
}
