package prompt

import (
	"strings"
	"testing"

	"github.com/hyperjump/manabu/internal/models"
)

func retrievedFixture() []models.Retrieved {
	return []models.Retrieved{
		{Chunk: models.Chunk{Title: "Linear Algebra", Page: 12, Text: "A matrix is a rectangular array of numbers."}, Score: 0.1},
		{Chunk: models.Chunk{Title: "Linear Algebra", Page: 14, Text: "The determinant measures volume scaling."}, Score: 0.3},
	}
}

func TestBuildAnswer_SourceNumbering(t *testing.T) {
	_, user := BuildAnswer("what is a matrix?", retrievedFixture(), models.LengthShort)
	if !strings.Contains(user, "[Source 1] Linear Algebra | page 12") {
		t.Errorf("user prompt missing source 1 header:\n%s", user)
	}
	if !strings.Contains(user, "[Source 2] Linear Algebra | page 14") {
		t.Errorf("user prompt missing source 2 header:\n%s", user)
	}
	if !strings.Contains(user, "what is a matrix?") {
		t.Error("user prompt missing question")
	}
}

func TestBuildAnswer_TruncatesLongChunks(t *testing.T) {
	long := strings.Repeat("x", 5000)
	retrieved := []models.Retrieved{{Chunk: models.Chunk{Title: "Big", Page: 1, Text: long}}}
	_, user := BuildAnswer("q", retrieved, models.LengthShort)
	if !strings.Contains(user, "... (truncated)") {
		t.Error("expected truncation marker for long chunk")
	}
	if strings.Contains(user, long) {
		t.Error("full chunk text should not be rendered")
	}
}

func TestBuildAnswer_LengthProfiles(t *testing.T) {
	tests := []struct {
		length string
		want   string
	}{
		{models.LengthShort, "2-4 sentences"},
		{models.LengthMedium, "80-120 words"},
		{models.LengthLong, "150-250 words"},
		{"gigantic", "2-4 sentences"}, // unknown falls back to short
		{"", "2-4 sentences"},
	}
	for _, tt := range tests {
		t.Run(tt.length, func(t *testing.T) {
			system, _ := BuildAnswer("q", retrievedFixture(), tt.length)
			if !strings.Contains(system, tt.want) {
				t.Errorf("length %q: system prompt missing %q", tt.length, tt.want)
			}
		})
	}
}

func TestBuildAnswer_NoContext(t *testing.T) {
	_, user := BuildAnswer("q", nil, models.LengthShort)
	if !strings.Contains(user, "No context available.") {
		t.Error("expected empty-context marker")
	}
}

func TestBuildQuiz_MCQ(t *testing.T) {
	system, user := BuildQuiz(retrievedFixture(), models.QuizMCQ, 5)
	if !strings.Contains(system, "exam question generator") {
		t.Errorf("system prompt: %q", system)
	}
	for _, want := range []string{"exactly 5 multiple-choice", "correct_option", "```json"} {
		if !strings.Contains(user, want) {
			t.Errorf("mcq prompt missing %q", want)
		}
	}
}

func TestBuildQuiz_Short(t *testing.T) {
	_, user := BuildQuiz(retrievedFixture(), models.QuizShort, 3)
	if !strings.Contains(user, "exactly 3 short answer questions") {
		t.Errorf("short prompt:\n%s", user)
	}
	if strings.Contains(user, "correct_option") {
		t.Error("short-answer prompt should not request MCQ fields")
	}
}

func TestBuildSummary(t *testing.T) {
	_, user := BuildSummary(retrievedFixture(), models.LengthMedium)
	if !strings.Contains(user, "medium summary") {
		t.Errorf("summary prompt:\n%s", user)
	}
	if !strings.Contains(user, "The determinant measures volume scaling.") {
		t.Error("summary prompt missing chunk text")
	}
}
