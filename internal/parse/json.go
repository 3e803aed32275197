// Package parse recovers structured answers and quizzes from raw language
// model output. Model output is untrusted free text, so recovery degrades
// through independent strategies tried in fixed priority order; parsing never
// fails, it only falls back.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Fenced blocks optionally tagged as json. Non-greedy so the first complete
// fenced object/array wins.
var (
	fencedObjectRe = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	fencedArrayRe  = regexp.MustCompile("(?is)```(?:json)?\\s*(\\[.*?\\])\\s*```")
)

// extractObject tries to pull a JSON object out of text: first from a fenced
// block, then from the substring between the first '{' and the last '}'.
// The brace scan is a best-effort heuristic, not a validating parser; nested
// or unbalanced structures that fail to parse are an accepted failure mode.
func extractObject(text string) (map[string]interface{}, bool) {
	if text == "" {
		return nil, false
	}
	if m := fencedObjectRe.FindStringSubmatch(text); m != nil {
		if obj, ok := unmarshalObject(m[1]); ok {
			return obj, true
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if obj, ok := unmarshalObject(text[start : end+1]); ok {
			return obj, true
		}
	}
	return nil, false
}

// extractArray tries to pull a JSON array out of text, fenced block first,
// then the first-'['-to-last-']' substring.
func extractArray(text string) ([]interface{}, bool) {
	if text == "" {
		return nil, false
	}
	if m := fencedArrayRe.FindStringSubmatch(text); m != nil {
		if arr, ok := unmarshalArray(m[1]); ok {
			return arr, true
		}
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start != -1 && end > start {
		if arr, ok := unmarshalArray(text[start : end+1]); ok {
			return arr, true
		}
	}
	return nil, false
}

func unmarshalObject(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func unmarshalArray(s string) ([]interface{}, bool) {
	var arr []interface{}
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// fieldAlias returns the first non-nil value among the aliased keys. Model
// output drifts between field spellings (quotes/quoted/quote and so on), so
// normalization consults an explicit alias list instead of ad hoc lookups.
func fieldAlias(obj map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// asString renders a JSON scalar as a string, trimming whitespace.
func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}

// asInt converts a JSON number (or numeric string) to int, defaulting to 0.
func asInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(n)), &f); err == nil {
			return int(f)
		}
	}
	return 0
}
