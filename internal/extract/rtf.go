package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// rtfDestinations are groups whose content is metadata rather than body text.
var rtfDestinations = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"header":     true,
	"footer":     true,
	"field":      false, // field results carry visible text
}

// extractRTF extracts text from .rtf bytes as a single page. RTF is a plain
// text format of control words and braces; this strips the markup and keeps
// the document text, including \'xx hex escapes and \uN unicode escapes.
func extractRTF(content []byte) ([]string, error) {
	if !bytes.HasPrefix(content, []byte(`{\rtf`)) {
		return nil, fmt.Errorf("extract RTF: missing {\\rtf header")
	}
	s := string(content)
	var b strings.Builder
	depth := 0
	skipDepth := -1
	i := 0
	for i < len(s) {
		c := s[i]
		if skipDepth >= 0 {
			switch c {
			case '{':
				depth++
			case '}':
				depth--
				if depth < skipDepth {
					skipDepth = -1
				}
			case '\\':
				i++ // do not count escaped braces
			}
			i++
			continue
		}
		switch c {
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		case '\r', '\n':
			i++
		case '\\':
			i++
			if i >= len(s) {
				break
			}
			ch := s[i]
			if ch == '\'' {
				if i+2 < len(s) {
					if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
						b.WriteByte(byte(v))
					}
					i += 3
				} else {
					i = len(s)
				}
				continue
			}
			if !isRTFAlpha(ch) {
				switch ch {
				case '\\', '{', '}':
					b.WriteByte(ch)
				case '~':
					b.WriteByte(' ')
				case '*':
					// Ignorable destination; skip the enclosing group.
					skipDepth = depth
				}
				i++
				continue
			}
			j := i
			for j < len(s) && isRTFAlpha(s[j]) {
				j++
			}
			word := s[i:j]
			paramStart := j
			if j < len(s) && s[j] == '-' {
				j++
			}
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			param := s[paramStart:j]
			if j < len(s) && s[j] == ' ' {
				j++
			}
			i = j
			switch {
			case word == "par" || word == "line" || word == "sect" || word == "page":
				b.WriteByte('\n')
			case word == "tab":
				b.WriteByte('\t')
			case word == "u" && param != "":
				if v, err := strconv.Atoi(param); err == nil {
					b.WriteRune(rune(uint16(v)))
				}
				// The character after \uN is a fallback for non-unicode
				// readers; drop it.
				if i < len(s) && s[i] != '\\' && s[i] != '{' && s[i] != '}' {
					i++
				}
			case rtfDestinations[word]:
				skipDepth = depth
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return []string{strings.TrimSpace(b.String())}, nil
}

func isRTFAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
