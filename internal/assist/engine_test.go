package assist

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/manabu/internal/chunker"
	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/ingest"
	"github.com/hyperjump/manabu/internal/keyword"
	"github.com/hyperjump/manabu/internal/llm"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
)

type fixture struct {
	engine *Engine
	store  storage.Storage
	index  *vector.Index
	gen    *llm.MockGenerator
	docID  string
}

// newFixture ingests one document and wires an engine around a mock model.
func newFixture(t *testing.T, responses ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	kw, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kw.Close() })

	idx, err := vector.NewIndex(embedding.NewMockEmbedder(64))
	if err != nil {
		t.Fatal(err)
	}
	chk, _ := chunker.New(20, 5)
	ing := ingest.NewIngester(store, idx, kw, extract.NewExtractor(), chk, nil)

	text := "Paris is the capital of France. " + strings.Repeat("The Seine flows through Paris. ", 15)
	doc, err := ing.IngestBytes(context.Background(), "geography.txt", []byte(text))
	if err != nil {
		t.Fatal(err)
	}

	gen := &llm.MockGenerator{Responses: responses}
	return &fixture{
		engine: NewEngine(idx, kw, store, gen, nil),
		store:  store,
		index:  idx,
		gen:    gen,
		docID:  doc.ID,
	}
}

func TestQuery_SemanticMode(t *testing.T) {
	f := newFixture(t)
	req := &models.QueryRequest{Question: "capital of France", TopK: 3}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}

	got, err := f.engine.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got.Mode != "semantic" {
		t.Errorf("mode: %q", got.Mode)
	}
	if len(got.Results) == 0 || len(got.Results) > 3 {
		t.Fatalf("results: %d", len(got.Results))
	}
	first := got.Results[0]
	if first.Title != "geography" || first.Snippet == "" {
		t.Errorf("first hit: %+v", first)
	}
	if len(first.Snippet) > maxSnippetChars {
		t.Errorf("snippet length %d exceeds cap", len(first.Snippet))
	}
}

func TestQuery_KeywordMode(t *testing.T) {
	f := newFixture(t)
	req := &models.QueryRequest{Question: "Seine", TopK: 5, Keyword: true}
	_ = req.Validate()

	got, err := f.engine.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got.Mode != "keyword" {
		t.Errorf("mode: %q", got.Mode)
	}
	if len(got.Results) == 0 {
		t.Fatal("expected keyword hits")
	}
	if got.Results[0].Score <= 0 {
		t.Errorf("keyword score: %f", got.Results[0].Score)
	}
}

func TestQuery_KeywordModeDisabled(t *testing.T) {
	f := newFixture(t)
	engine := NewEngine(f.index, nil, f.store, f.gen, nil)
	req := &models.QueryRequest{Question: "x", TopK: 5, Keyword: true}
	if _, err := engine.Query(context.Background(), req); err == nil {
		t.Fatal("expected error when keyword index is nil")
	}
}

func TestAnswer_ParsesModelOutput(t *testing.T) {
	f := newFixture(t, "Answer: Paris is the capital of France.\nQuote - Source 1: \"Paris is the capital of France.\"")
	req := &models.AnswerRequest{Question: "What is the capital of France?"}
	_ = req.Validate()

	got, err := f.engine.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.HasPrefix(got.Answer, "Paris is the capital of France.") {
		t.Errorf("answer: %q", got.Answer)
	}
	if len(got.Quotes) != 1 || got.Quotes[0].Source != 1 {
		t.Errorf("quotes: %+v", got.Quotes)
	}
	if got.ContextChunks == 0 {
		t.Error("expected context chunks to be reported")
	}
	if !strings.Contains(f.gen.LastUser, "CONTEXT:") || !strings.Contains(f.gen.LastUser, req.Question) {
		t.Errorf("prompt missing context or question: %q", f.gen.LastUser)
	}
}

func TestAnswer_ModelFailureFallsBackToDocuments(t *testing.T) {
	f := newFixture(t)
	f.gen.Err = errors.New("model unavailable")
	req := &models.AnswerRequest{Question: "capital of France"}
	_ = req.Validate()

	got, err := f.engine.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.HasPrefix(got.Answer, "(From documents) ") {
		t.Errorf("expected document-derived fallback, got %q", got.Answer)
	}
	if len(got.Sources) == 0 {
		t.Error("expected default source attribution")
	}
}

func TestAnswer_EmptyIndex(t *testing.T) {
	idx, _ := vector.NewIndex(embedding.NewMockEmbedder(64))
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	gen := &llm.MockGenerator{Responses: []string{"should not be called"}}
	engine := NewEngine(idx, nil, store, gen, nil)

	req := &models.AnswerRequest{Question: "anything"}
	_ = req.Validate()
	got, err := engine.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.Answer != "I could not find an answer in the uploaded documents." {
		t.Errorf("answer: %q", got.Answer)
	}
	if gen.LastUser != "" {
		t.Error("model should not be called with an empty index")
	}
}

func TestSummarize_ByQuestion(t *testing.T) {
	f := newFixture(t, "1. Paris is the capital.\n2. The Seine flows through it.")
	req := &models.SummarizeRequest{Question: "Paris", Length: models.LengthShort}
	_ = req.Validate()

	got, err := f.engine.Summarize(context.Background(), req)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(got.Summary, "Paris is the capital.") {
		t.Errorf("summary: %q", got.Summary)
	}
}

func TestSummarize_ByDocID(t *testing.T) {
	f := newFixture(t, "Document summary.")
	req := &models.SummarizeRequest{DocID: f.docID, TopK: 2}
	_ = req.Validate()

	got, err := f.engine.Summarize(context.Background(), req)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.ContextChunks != 2 {
		t.Errorf("context chunks: %d, want topK cap 2", got.ContextChunks)
	}
}

func TestSummarize_UnknownDocID(t *testing.T) {
	f := newFixture(t, "unused")
	req := &models.SummarizeRequest{DocID: "missing"}
	_ = req.Validate()
	if _, err := f.engine.Summarize(context.Background(), req); err == nil {
		t.Fatal("expected error for unknown document")
	}
}

func TestQuiz_ParsesItems(t *testing.T) {
	quiz := "```json\n" + `[{"question": "What is the capital of France?", "options": ["Lyon","Paris","Nice","Lille"], "correct_option": "B", "explanation": "Paris is the capital."}]` + "\n```"
	f := newFixture(t, quiz)
	req := &models.QuizRequest{Question: "Paris", Count: 1}
	_ = req.Validate()

	got, err := f.engine.Quiz(context.Background(), req)
	if err != nil {
		t.Fatalf("Quiz: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].CorrectOption != "B" {
		t.Errorf("items: %+v", got.Items)
	}
}

func TestQuiz_UnparseableFallsBackToRaw(t *testing.T) {
	f := newFixture(t, "Sorry, here are some questions in prose form.")
	req := &models.QuizRequest{Question: "Paris"}
	_ = req.Validate()

	got, err := f.engine.Quiz(context.Background(), req)
	if err != nil {
		t.Fatalf("Quiz: %v", err)
	}
	if got.Items != nil || got.Raw == "" {
		t.Errorf("expected raw fallback: %+v", got)
	}
}

func TestQuiz_ModelErrorSurfaces(t *testing.T) {
	f := newFixture(t)
	f.gen.Err = errors.New("model unavailable")
	req := &models.QuizRequest{Question: "Paris"}
	_ = req.Validate()
	if _, err := f.engine.Quiz(context.Background(), req); err == nil {
		t.Fatal("expected error when generation fails")
	}
}
