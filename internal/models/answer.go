package models

// Quote is a verbatim snippet the model attributed to a numbered source.
// Source is 1-based into the retrieval list that produced the prompt;
// 0 means the model did not attribute the quote.
type Quote struct {
	Source int    `json:"source"`
	Text   string `json:"text"`
}

// SourceRef identifies a retrieved chunk cited by an answer.
// Page is nil when the source document has no page information.
type SourceRef struct {
	SourceNumber int    `json:"source_number"`
	Title        string `json:"title,omitempty"`
	Page         *int   `json:"page,omitempty"`
}

// ParsedAnswer is the structured result recovered from a raw model response.
// Raw always carries the verbatim response so callers can display something
// even when every structured extraction strategy failed.
type ParsedAnswer struct {
	Answer           string      `json:"answer"`
	Quotes           []Quote     `json:"quotes"`
	Sources          []SourceRef `json:"sources"`
	StudySuggestions []string    `json:"study_suggestions,omitempty"`
	Raw              string      `json:"raw"`
}

// QuizItem is a single generated quiz question. MCQ items carry Options
// (4 entries, order corresponds to A-D), CorrectOption and Explanation;
// short-answer items carry Answer.
type QuizItem struct {
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectOption string   `json:"correct_option,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Answer        string   `json:"answer,omitempty"`
}

// QuizResult is the outcome of quiz parsing. When the model output could not
// be parsed as a quiz, Items is nil and Raw carries the unparsed text.
type QuizResult struct {
	Items []QuizItem `json:"quiz,omitempty"`
	Raw   string     `json:"quiz_raw,omitempty"`
}
