package parse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/manabu/internal/models"
)

const (
	// maxAnswerChars caps answer text recovered from free-form output.
	maxAnswerChars = 1200
	// maxSynthChars caps answers synthesized from a retrieved chunk.
	maxSynthChars = 600
	// docDerivedPrefix marks answers synthesized from documents rather than
	// produced by the model.
	docDerivedPrefix = "(From documents) "
	// noAnswerText is the terminal result when there is neither model output
	// nor retrieved material to fall back on.
	noAnswerText = "I could not find an answer in the uploaded documents."
)

var (
	answerLineRe = regexp.MustCompile(`(?im)^[ \t]*Answer[ \t]*:[ \t]*(.*)$`)
	// Section headers that end the answer body in structured text output.
	sectionBreakRe = regexp.MustCompile(`(?i)\n(?:QUOTE|SOURCES)\b`)
	// Strict quote pattern: Quote - Source 2: "..." with tolerant separators.
	quoteRe = regexp.MustCompile(`(?i)Quote\s*[-:]?\s*Source\s*(\d+)\s*[:\-]?\s*"([^"]+)"`)
	// Loose source marker used when no strict quotes matched.
	looseSourceRe = regexp.MustCompile(`(?i)Source\s*(\d+)\s*:`)
)

// Answer recovers a structured answer from raw model output. Strategies are
// tried in fixed priority order: fenced/brace JSON, an "Answer:" header with
// its following text, the first paragraph, and finally a snippet synthesized
// from the best retrieved chunk. The function never fails; Raw always carries
// the verbatim input.
func Answer(raw string, retrieved []models.Retrieved) *models.ParsedAnswer {
	raw = strings.TrimSpace(raw)

	if obj, ok := extractObject(raw); ok {
		return answerFromJSON(obj, retrieved, raw)
	}

	result := &models.ParsedAnswer{
		Quotes:  []models.Quote{},
		Sources: []models.SourceRef{},
		Raw:     raw,
	}
	result.Answer = answerText(raw, retrieved)

	quotes, quotedNums := scanQuotes(raw)
	result.Quotes = quotes
	if len(quotedNums) == 0 {
		quotedNums = scanLooseSources(raw)
	}
	result.Sources = mapSources(dedupe(quotedNums), retrieved)

	// Best-effort attribution: cite the top chunks when nothing matched.
	if len(result.Sources) == 0 && len(retrieved) > 0 {
		n := 2
		if len(retrieved) < n {
			n = len(retrieved)
		}
		for i := 0; i < n; i++ {
			page := retrieved[i].Chunk.Page
			result.Sources = append(result.Sources, models.SourceRef{
				SourceNumber: i + 1,
				Title:        retrieved[i].Chunk.Title,
				Page:         &page,
			})
		}
	}
	return result
}

// answerText extracts the answer body from free-form output. Prefers an
// "Answer:" header plus everything up to a QUOTE/SOURCES section; otherwise
// the first paragraph; otherwise a snippet from the best retrieved chunk.
func answerText(raw string, retrieved []models.Retrieved) string {
	if loc := answerLineRe.FindStringSubmatchIndex(raw); loc != nil {
		head := strings.TrimSpace(raw[loc[2]:loc[3]])
		tail := raw[loc[1]:]
		if m := sectionBreakRe.FindStringIndex(tail); m != nil {
			tail = tail[:m[0]]
		}
		combined := strings.TrimSpace(head + "\n\n" + strings.TrimSpace(tail))
		return clip(combined, maxAnswerChars)
	}
	if para := firstParagraph(raw); para != "" {
		return clip(para, maxAnswerChars)
	}
	return synthesizeFromChunks(retrieved)
}

// synthesizeFromChunks builds a document-derived answer from the best-ranked
// chunk's first paragraph when the model produced nothing usable.
func synthesizeFromChunks(retrieved []models.Retrieved) string {
	if len(retrieved) == 0 {
		return noAnswerText
	}
	snippet := clip(firstParagraph(retrieved[0].Chunk.Text), maxSynthChars)
	return docDerivedPrefix + snippet
}

// answerFromJSON normalizes a parsed JSON object into the canonical shape.
// Field names drift between responses, so every lookup goes through the
// alias table.
func answerFromJSON(obj map[string]interface{}, retrieved []models.Retrieved, raw string) *models.ParsedAnswer {
	result := &models.ParsedAnswer{
		Quotes:  []models.Quote{},
		Sources: []models.SourceRef{},
		Raw:     raw,
	}
	if v, ok := fieldAlias(obj, "answer", "answer_text"); ok {
		result.Answer = asString(v)
	}

	if v, ok := fieldAlias(obj, "quotes", "quoted", "quote"); ok {
		switch list := v.(type) {
		case []interface{}:
			for _, q := range list {
				if m, isMap := q.(map[string]interface{}); isMap {
					src, _ := fieldAlias(m, "source", "source_number")
					result.Quotes = append(result.Quotes, models.Quote{
						Source: asInt(src),
						Text:   asString(m["text"]),
					})
				} else {
					// A bare string becomes an unattributed quote.
					result.Quotes = append(result.Quotes, models.Quote{Source: 0, Text: asString(q)})
				}
			}
		default:
			result.Quotes = append(result.Quotes, models.Quote{Source: 0, Text: asString(v)})
		}
	}

	if v, ok := fieldAlias(obj, "study_suggestions", "suggestions", "study_suggestion"); ok {
		switch list := v.(type) {
		case []interface{}:
			for _, s := range list {
				if text := asString(s); text != "" {
					result.StudySuggestions = append(result.StudySuggestions, text)
				}
			}
		default:
			if text := asString(v); text != "" {
				result.StudySuggestions = append(result.StudySuggestions, text)
			}
		}
	}

	if v, ok := fieldAlias(obj, "sources"); ok {
		if list, isList := v.([]interface{}); isList && len(list) > 0 {
			for _, s := range list {
				if m, isMap := s.(map[string]interface{}); isMap {
					num, _ := fieldAlias(m, "source_number", "source")
					ref := models.SourceRef{SourceNumber: asInt(num), Title: asString(m["title"])}
					if p, hasPage := m["page"]; hasPage && p != nil {
						page := asInt(p)
						ref.Page = &page
					}
					result.Sources = append(result.Sources, ref)
				} else {
					result.Sources = append(result.Sources, models.SourceRef{SourceNumber: 0, Title: asString(s)})
				}
			}
		}
	}
	// No structured sources: map the quoted source numbers to the retrieval
	// list instead.
	if len(result.Sources) == 0 {
		nums := make([]int, 0, len(result.Quotes))
		for _, q := range result.Quotes {
			if q.Source > 0 {
				nums = append(nums, q.Source)
			}
		}
		result.Sources = mapSources(dedupe(nums), retrieved)
	}
	return result
}

// scanQuotes extracts strict quote matches and the source numbers they cite.
func scanQuotes(raw string) ([]models.Quote, []int) {
	quotes := []models.Quote{}
	var nums []int
	for _, m := range quoteRe.FindAllStringSubmatch(raw, -1) {
		n := parseInt(m[1])
		quotes = append(quotes, models.Quote{Source: n, Text: strings.TrimSpace(m[2])})
		nums = append(nums, n)
	}
	return quotes, nums
}

// scanLooseSources extracts source numbers from bare "Source N:" markers.
func scanLooseSources(raw string) []int {
	var nums []int
	for _, m := range looseSourceRe.FindAllStringSubmatch(raw, -1) {
		nums = append(nums, parseInt(m[1]))
	}
	return nums
}

// mapSources maps 1-based source numbers onto the retrieval list. Numbers
// outside [1, len(retrieved)] are dropped, never an error.
func mapSources(nums []int, retrieved []models.Retrieved) []models.SourceRef {
	sources := []models.SourceRef{}
	for _, n := range nums {
		idx := n - 1
		if idx < 0 || idx >= len(retrieved) {
			continue
		}
		page := retrieved[idx].Chunk.Page
		sources = append(sources, models.SourceRef{
			SourceNumber: n,
			Title:        retrieved[idx].Chunk.Title,
			Page:         &page,
		})
	}
	return sources
}

// dedupe removes duplicate source numbers preserving first-occurrence order.
func dedupe(nums []int) []int {
	seen := make(map[int]bool, len(nums))
	out := nums[:0]
	for _, n := range nums {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// firstParagraph returns the first blank-line-delimited paragraph of text.
func firstParagraph(text string) string {
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// clip truncates s to at most max bytes without splitting a UTF-8 rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func parseInt(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
