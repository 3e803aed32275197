package chunker

import (
	"strings"
	"testing"
)

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split("", 400, 100)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
	chunks, err = Split("   \n\t  ", 400, 100)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace-only text, got %d", len(chunks))
	}
}

func TestSplit_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"negative overlap", 100, -1},
		{"zero chunk size", 0, 0},
		{"negative chunk size", -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Split("some words here", tt.chunkSize, tt.overlap); err == nil {
				t.Errorf("Split(%d, %d) expected error, got nil", tt.chunkSize, tt.overlap)
			}
		})
	}
}

func TestSplit_OverlapSharedWords(t *testing.T) {
	words := make([]string, 20)
	for i := range words {
		words[i] = string(rune('a' + i))
	}
	text := strings.Join(words, " ")

	chunks, err := Split(text, 8, 3)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		// The last `overlap` words of a full previous chunk are the first
		// words of the next chunk.
		if len(prev) == 8 {
			tail := prev[len(prev)-3:]
			head := cur[:min(3, len(cur))]
			for j := range head {
				if j < len(tail) && tail[j] != head[j] {
					t.Errorf("chunk %d: overlap mismatch: tail %v, head %v", i, tail, head)
				}
			}
		}
	}
}

func TestSplit_ReconstructsWordSequence(t *testing.T) {
	words := []string{"the", "quick", "brown", "fox", "jumps", "over", "the", "lazy", "dog", "again", "and", "again"}
	text := strings.Join(words, " ")
	chunkSize, overlap := 5, 2
	chunks, err := Split(text, chunkSize, overlap)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	// Each non-final chunk contributes its first `step` words, the final
	// chunk contributes everything; the concatenation is the original
	// word sequence.
	step := chunkSize - overlap
	var rebuilt []string
	for i, ch := range chunks {
		cw := strings.Fields(ch)
		if i == len(chunks)-1 {
			rebuilt = append(rebuilt, cw...)
		} else {
			rebuilt = append(rebuilt, cw[:step]...)
		}
	}
	if strings.Join(rebuilt, " ") != text {
		t.Errorf("reconstruction mismatch:\n got %q\nwant %q", strings.Join(rebuilt, " "), text)
	}
}

func TestSplit_SingleShortText(t *testing.T) {
	chunks, err := Split("hello world", 400, 100)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Errorf("got %v, want one chunk %q", chunks, "hello world")
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	if _, err := New(100, 100); err == nil {
		t.Error("New(100, 100) expected error")
	}
	if _, err := New(450, 100); err != nil {
		t.Errorf("New(450, 100) unexpected error: %v", err)
	}
}

func TestChunker_ChunkPage(t *testing.T) {
	c, err := New(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.ChunkPage("doc1", "Intro to Go", 3, "one two three four five six seven")
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if ch.DocID != "doc1" || ch.Title != "Intro to Go" || ch.Page != 3 {
			t.Errorf("chunk %d metadata: %+v", i, ch)
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d: index %d", i, ch.ChunkIndex)
		}
	}
	if chunks[0].Text != "one two three four" {
		t.Errorf("first chunk: %q", chunks[0].Text)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
