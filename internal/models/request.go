package models

import "fmt"

// Answer length profiles. Unrecognized values fall back to LengthShort.
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// Quiz kinds.
const (
	QuizMCQ   = "mcq"
	QuizShort = "short"
)

// QueryRequest is a raw retrieval request.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	// Keyword switches the query to the keyword (BM25) index instead of
	// semantic retrieval.
	Keyword bool `json:"keyword,omitempty"`
}

// Validate normalizes the request and returns an error if the question is empty.
func (q *QueryRequest) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = 5
	}
	if q.TopK > 50 {
		q.TopK = 50
	}
	return nil
}

// AnswerRequest asks for a grounded answer to a question.
type AnswerRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	Length   string `json:"length,omitempty"`
}

// Validate normalizes the request and returns an error if the question is empty.
func (a *AnswerRequest) Validate() error {
	if a.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if a.TopK <= 0 {
		a.TopK = 6
	}
	if a.TopK > 50 {
		a.TopK = 50
	}
	if a.Length == "" {
		a.Length = LengthShort
	}
	return nil
}

// SummarizeRequest asks for a summary of retrieved material (by question)
// or of a whole document (by doc_id). Exactly one of the two must be set.
type SummarizeRequest struct {
	Question string `json:"question,omitempty"`
	DocID    string `json:"doc_id,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	Length   string `json:"length,omitempty"`
}

// Validate normalizes the request; question or doc_id is required.
func (s *SummarizeRequest) Validate() error {
	if s.Question == "" && s.DocID == "" {
		return fmt.Errorf("provide question or doc_id")
	}
	if s.TopK <= 0 {
		s.TopK = 20
	}
	if s.Length == "" {
		s.Length = LengthShort
	}
	return nil
}

// QuizRequest asks for generated quiz questions over retrieved material
// (by question) or a whole document (by doc_id).
type QuizRequest struct {
	Question string `json:"question,omitempty"`
	DocID    string `json:"doc_id,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// Validate normalizes the request; question or doc_id is required.
func (q *QuizRequest) Validate() error {
	if q.Question == "" && q.DocID == "" {
		return fmt.Errorf("provide question or doc_id")
	}
	if q.TopK <= 0 {
		q.TopK = 20
	}
	if q.Kind != QuizMCQ && q.Kind != QuizShort {
		q.Kind = QuizMCQ
	}
	if q.Count <= 0 {
		q.Count = 5
	}
	if q.Count > 20 {
		q.Count = 20
	}
	return nil
}
