// Package assist implements the study-assistant flows: raw retrieval,
// grounded answers, summaries, and quiz generation. Each flow retrieves
// context, prompts the model, and parses the output; model failures degrade
// to document-derived fallbacks instead of surfacing as request errors.
package assist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/keyword"
	"github.com/hyperjump/manabu/internal/llm"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/parse"
	"github.com/hyperjump/manabu/internal/prompt"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
	"github.com/hyperjump/manabu/pkg/utils"
)

// maxSnippetChars bounds chunk text in raw query responses.
const maxSnippetChars = 800

// Engine coordinates retrieval and generation.
type Engine struct {
	index     *vector.Index
	keyword   keyword.Index
	storage   storage.Storage
	generator llm.Generator
	logger    *zap.Logger
}

// NewEngine creates an engine. keywordIndex may be nil when keyword search is
// disabled; generator may be nil for retrieval-only deployments.
func NewEngine(
	index *vector.Index,
	keywordIndex keyword.Index,
	store storage.Storage,
	generator llm.Generator,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		index:     index,
		keyword:   keywordIndex,
		storage:   store,
		generator: generator,
		logger:    logger,
	}
}

// Hit is one raw retrieval result. Snippet is the chunk text clipped for
// transport; Score semantics depend on the mode (distance for semantic,
// relevance for keyword).
type Hit struct {
	DocID      string  `json:"doc_id"`
	Title      string  `json:"title"`
	Page       int     `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// QueryResult is the response to a raw retrieval request.
type QueryResult struct {
	Results []Hit  `json:"results"`
	Mode    string `json:"mode"`
}

// AnswerResult is a parsed answer plus how much context backed it.
type AnswerResult struct {
	*models.ParsedAnswer
	ContextChunks int `json:"context_chunks"`
}

// SummaryResult is a generated summary.
type SummaryResult struct {
	Summary       string `json:"summary"`
	ContextChunks int    `json:"context_chunks"`
}

// Query runs raw retrieval without calling the model.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) (*QueryResult, error) {
	if req.Keyword {
		if e.keyword == nil {
			return nil, fmt.Errorf("keyword search is disabled")
		}
		hits, err := e.keyword.Search(ctx, req.Question, req.TopK)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		result := &QueryResult{Results: make([]Hit, 0, len(hits)), Mode: "keyword"}
		for _, h := range hits {
			result.Results = append(result.Results, toHit(h.Chunk, h.Score))
		}
		return result, nil
	}

	retrieved, err := e.index.Query(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	result := &QueryResult{Results: make([]Hit, 0, len(retrieved)), Mode: "semantic"}
	for _, r := range retrieved {
		result.Results = append(result.Results, toHit(r.Chunk, r.Score))
	}
	return result, nil
}

// Answer retrieves context and generates a grounded, parsed answer. With no
// indexed material the parser's terminal fallback answers without a model
// call; a model failure degrades to the document-derived fallback.
func (e *Engine) Answer(ctx context.Context, req *models.AnswerRequest) (*AnswerResult, error) {
	retrieved, err := e.index.Query(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(retrieved) == 0 {
		return &AnswerResult{ParsedAnswer: parse.Answer("", nil)}, nil
	}

	raw := ""
	if e.generator != nil {
		system, user := prompt.BuildAnswer(req.Question, retrieved, req.Length)
		raw, err = e.generator.Generate(ctx, system, user)
		if err != nil {
			e.logger.Warn("answer generation failed, falling back to documents",
				zap.Error(err))
			raw = ""
		}
	}
	return &AnswerResult{
		ParsedAnswer:  parse.Answer(raw, retrieved),
		ContextChunks: len(retrieved),
	}, nil
}

// Summarize generates a summary of retrieved material or a whole document.
func (e *Engine) Summarize(ctx context.Context, req *models.SummarizeRequest) (*SummaryResult, error) {
	if e.generator == nil {
		return nil, fmt.Errorf("generation is disabled")
	}
	retrieved, err := e.gatherContext(ctx, req.Question, req.DocID, req.TopK)
	if err != nil {
		return nil, err
	}
	if len(retrieved) == 0 {
		return nil, fmt.Errorf("no material to summarize")
	}

	system, user := prompt.BuildSummary(retrieved, req.Length)
	raw, err := e.generator.Generate(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}
	return &SummaryResult{Summary: raw, ContextChunks: len(retrieved)}, nil
}

// Quiz generates quiz questions from retrieved material or a whole document.
// Parsing never fails; unparseable output is returned raw.
func (e *Engine) Quiz(ctx context.Context, req *models.QuizRequest) (*models.QuizResult, error) {
	if e.generator == nil {
		return nil, fmt.Errorf("generation is disabled")
	}
	retrieved, err := e.gatherContext(ctx, req.Question, req.DocID, req.TopK)
	if err != nil {
		return nil, err
	}
	if len(retrieved) == 0 {
		return nil, fmt.Errorf("no material to generate a quiz from")
	}

	system, user := prompt.BuildQuiz(retrieved, req.Kind, req.Count)
	raw, err := e.generator.Generate(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	return parse.Quiz(raw), nil
}

// gatherContext retrieves chunks either semantically by question or directly
// by document ID.
func (e *Engine) gatherContext(ctx context.Context, question, docID string, topK int) ([]models.Retrieved, error) {
	if docID != "" {
		chunks, err := e.storage.GetChunksByDocumentID(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("load document chunks: %w", err)
		}
		if len(chunks) > topK {
			chunks = chunks[:topK]
		}
		retrieved := make([]models.Retrieved, len(chunks))
		for i, c := range chunks {
			retrieved[i] = models.Retrieved{Chunk: c}
		}
		return retrieved, nil
	}
	retrieved, err := e.index.Query(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	return retrieved, nil
}

func toHit(c models.Chunk, score float64) Hit {
	return Hit{
		DocID:      c.DocID,
		Title:      c.Title,
		Page:       c.Page,
		ChunkIndex: c.ChunkIndex,
		Snippet:    utils.Truncate(c.Text, maxSnippetChars),
		Score:      score,
	}
}
