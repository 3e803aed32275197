package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// odpContentPath is the path to the main content inside an .odp zip (OpenDocument Presentation).
const odpContentPath = "content.xml"

// odpTextTags match OpenDocument text elements (with optional attributes). Separate patterns
// keep opening and closing tags paired (e.g. <text:p>...</text:p> only).
var (
	odpTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odpTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odpTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

// extractODP extracts text from .odp bytes as a single page.
func extractODP(content []byte) ([]string, error) {
	return extractOpenDocument(content, "ODP")
}

// extractODT extracts text from .odt bytes as a single page. ODT shares the
// OpenDocument content.xml layout with ODP.
func extractODT(content []byte) ([]string, error) {
	return extractOpenDocument(content, "ODT")
}

// extractOpenDocument extracts text from an OpenDocument zip. content.xml
// holds the body; text:p, text:span, and text:h elements carry the visible
// text.
func extractOpenDocument(content []byte, format string) ([]string, error) {
	contentXML, err := readZipEntry(content, odpContentPath, format)
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
	appendMatches(odpTextP.FindAllStringSubmatch(s, -1))
	appendMatches(odpTextSpan.FindAllStringSubmatch(s, -1))
	appendMatches(odpTextH.FindAllStringSubmatch(s, -1))
	return []string{strings.TrimSpace(b.String())}, nil
}

// readZipEntry returns the named entry from a zip archive held in memory.
func readZipEntry(content []byte, name, format string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("extract %s: open %s: %w", format, f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("extract %s: read %s: %w", format, f.Name, err)
		}
		_ = rc.Close()
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("extract %s: %s not found", format, name)
}
