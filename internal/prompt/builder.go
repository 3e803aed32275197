// Package prompt formats retrieved chunks and task instructions into
// system/user prompt pairs. Pure formatting; nothing here performs I/O.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// maxChunkChars bounds how much of a chunk's text is rendered into a prompt,
// capping prompt size regardless of source document length.
const maxChunkChars = 2000

var lengthInstructions = map[string]string{
	models.LengthShort:  "Provide a concise answer (2-4 sentences).",
	models.LengthMedium: "Provide a detailed answer (~80-120 words, 2-4 short paragraphs).",
	models.LengthLong:   "Provide an in-depth answer (~150-250 words, multiple short paragraphs).",
}

// contextBlock renders retrieved chunks with 1-based source numbers, title,
// page, and truncated text.
func contextBlock(retrieved []models.Retrieved) string {
	if len(retrieved) == 0 {
		return "No context available."
	}
	entries := make([]string, len(retrieved))
	for i, r := range retrieved {
		text := strings.TrimSpace(r.Chunk.Text)
		if len(text) > maxChunkChars {
			text = text[:maxChunkChars] + " ... (truncated)"
		}
		title := r.Chunk.Title
		if title == "" {
			title = "Untitled"
		}
		entries[i] = fmt.Sprintf("[Source %d] %s | page %d\n%s", i+1, title, r.Chunk.Page, text)
	}
	return strings.Join(entries, "\n\n---\n\n")
}

// plainContext renders chunks without source numbering, for summary and quiz
// prompts where per-source citations are not requested.
func plainContext(retrieved []models.Retrieved) string {
	entries := make([]string, len(retrieved))
	for i, r := range retrieved {
		title := r.Chunk.Title
		if title == "" {
			title = "Untitled"
		}
		entries[i] = fmt.Sprintf("%s | page %d\n%s", title, r.Chunk.Page, r.Chunk.Text)
	}
	return strings.Join(entries, "\n\n---\n\n")
}

// BuildAnswer builds the system and user prompts for a grounded answer.
// length selects an answer-length profile; unrecognized values fall back to
// short.
func BuildAnswer(question string, retrieved []models.Retrieved, length string) (system, user string) {
	instr, ok := lengthInstructions[length]
	if !ok {
		instr = lengthInstructions[models.LengthShort]
	}

	system = strings.Join([]string{
		"You are a helpful study assistant. Follow instructions carefully.",
		"- You may ONLY use the context provided below. Do not invent facts.",
		"- When you use information from a source, you MUST include a short quoted sentence (in double quotes) exactly from the source text you used.",
		"- " + instr,
		"- After the answer, provide 1 short study suggestion (one line).",
		"- Then include a SOURCES section listing source numbers, titles, and pages used.",
		`- If no answer is found in the context, reply exactly: "I could not find a direct answer in the provided documents."`,
	}, "\n")

	user = fmt.Sprintf(`CONTEXT:
%s

QUESTION:
%s

TASK (format MUST be followed):
1) Start with: Answer:
   (Example: Answer: <your answer here>)
2) After the answer, include a QUOTE section with the exact sentence(s) used from the context, prefixed by the Source number (e.g. Quote - Source 1: "..." ).
3) Then list 1 Study suggestion (single bullet).
4) Finally, include a SOURCES: section that lists which Source numbers you used, formatted like: Source 1: Title | page X
5) If you cannot find the answer in the context, respond exactly: "I could not find a direct answer in the provided documents."

IMPORTANT: Follow the format above and do not add extraneous commentary.`, contextBlock(retrieved), question)

	return system, user
}

// BuildSummary builds prompts for summarizing retrieved material.
func BuildSummary(retrieved []models.Retrieved, length string) (system, user string) {
	system = "You are an assistant that summarizes study materials. Keep it clear and concise."
	user = fmt.Sprintf("Summarize the following material in a %s summary. Provide numbered bullet points of main ideas and key definitions/formulas if any.\n\n%s",
		length, plainContext(retrieved))
	return system, user
}

// BuildQuiz builds prompts requesting strict fenced-JSON quiz output.
// kind is mcq or short; anything else is treated as short-answer.
func BuildQuiz(retrieved []models.Retrieved, kind string, count int) (system, user string) {
	system = "You are an exam question generator. Use ONLY the provided CONTEXT."
	ctx := plainContext(retrieved)

	if kind == models.QuizMCQ {
		user = fmt.Sprintf(`From the following CONTEXT, generate exactly %d multiple-choice questions (MCQs).
Each question object MUST have the following fields:
  - question (string)
  - options (array of 4 strings, order corresponds to A,B,C,D)
  - correct_option (one of "A","B","C","D")
  - explanation (one-line string explaining the correct option)

Return a single JSON array containing exactly %d objects and NOTHING ELSE.
Place the JSON array inside triple backticks.

Example:
`+"```json"+`
[
  {
    "question": "Question text",
    "options": ["opt A","opt B","opt C","opt D"],
    "correct_option": "B",
    "explanation": "One-line explanation"
  }
]
`+"```"+`

CONTEXT:
%s`, count, count, ctx)
		return system, user
	}

	user = fmt.Sprintf(`From the following CONTEXT, generate exactly %d short answer questions.
Return a single JSON array of objects, each with:
  - question (string)
  - answer (short model answer as string)

Return ONLY the JSON array inside triple backticks.

CONTEXT:
%s`, count, ctx)
	return system, user
}
