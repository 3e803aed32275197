// Package extract provides page-oriented text extraction from study document
// formats. Each extractor returns a slice of page texts; formats without a
// page concept return a single page (or one page per sheet or slide).
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts page texts from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExt reports whether ext (with leading dot) is a known document
// format. Unknown extensions still extract as plain text, but upload
// validation uses this to reject binaries early.
func SupportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx", ".odp", ".ods", ".txt", ".md", ".rst":
		return true
	}
	return false
}

// Pages reads the file at path and returns its page texts.
func (e *Extractor) Pages(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.PagesFromBytes(content, ext)
}

// PagesFromBytes extracts page texts from content based on the given
// extension. ext should include the leading dot (e.g. ".pdf"). Unknown
// extensions are treated as plain text.
func (e *Extractor) PagesFromBytes(content []byte, ext string) ([]string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt":
		return extractODT(content)
	case ".rtf":
		return extractRTF(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odp":
		return extractODP(content)
	case ".ods":
		return extractODS(content)
	default:
		return extractPlain(content)
	}
}
