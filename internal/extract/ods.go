package extract

import (
	"regexp"
	"strings"
)

// odsContentPath is the path to the main content inside an .ods zip (OpenDocument Spreadsheet).
const odsContentPath = "content.xml"

// odsTextTags match OpenDocument text elements in spreadsheet cells (with optional attributes).
var (
	odsTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odsTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
)

// extractODS extracts cell text from .ods bytes as a single page.
func extractODS(content []byte) ([]string, error) {
	contentXML, err := readZipEntry(content, odsContentPath, "ODS")
	if err != nil {
		return nil, err
	}
	s := string(contentXML)
	var b strings.Builder
	appendMatches := func(parts [][]string) {
		for _, p := range parts {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(p[1]))
		}
	}
	appendMatches(odsTextP.FindAllStringSubmatch(s, -1))
	appendMatches(odsTextSpan.FindAllStringSubmatch(s, -1))
	return []string{strings.TrimSpace(b.String())}, nil
}
