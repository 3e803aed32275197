package parse

import (
	"encoding/json"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// Quiz recovers quiz items from raw model output. Strategies in order: a
// fenced or bracket-scanned JSON array, then a JSON object carrying the array
// under a "quiz" key. When neither applies the raw text is returned under the
// unparsed field; the function never fails.
func Quiz(raw string) *models.QuizResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &models.QuizResult{Raw: ""}
	}

	if arr, ok := extractArray(raw); ok {
		if items, ok := quizItems(arr); ok {
			return &models.QuizResult{Items: items}
		}
	}
	if obj, ok := extractObject(raw); ok {
		if v, ok := fieldAlias(obj, "quiz", "questions", "items"); ok {
			if arr, isList := v.([]interface{}); isList {
				if items, ok := quizItems(arr); ok {
					return &models.QuizResult{Items: items}
				}
			}
		}
	}
	return &models.QuizResult{Raw: raw}
}

// quizItems converts a decoded JSON array into QuizItems by round-tripping
// through encoding/json, which applies the struct field names. Entries that
// are not objects are dropped; an array with no usable entries is treated as
// a failed strategy.
func quizItems(arr []interface{}) ([]models.QuizItem, bool) {
	objs := make([]interface{}, 0, len(arr))
	for _, v := range arr {
		if _, isMap := v.(map[string]interface{}); isMap {
			objs = append(objs, v)
		}
	}
	if len(objs) == 0 {
		return nil, false
	}
	data, err := json.Marshal(objs)
	if err != nil {
		return nil, false
	}
	var items []models.QuizItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	// An item with no question text is noise from a malformed response.
	filtered := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Question) != "" {
			filtered = append(filtered, it)
		}
	}
	if len(filtered) == 0 {
		return nil, false
	}
	return filtered, true
}
