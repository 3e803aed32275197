package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a single page, validating it is valid
// UTF-8. Invalid sequences are replaced with the replacement character.
func extractPlain(content []byte) ([]string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "�"))
	}
	return []string{string(content)}, nil
}
