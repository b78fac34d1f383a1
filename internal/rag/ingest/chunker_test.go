package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/itdjship/chat-bot-app/internal/domain/docmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
)

func repeatText(n int) string {
	var b strings.Builder
	alphabet := "abcdefghijklmnopqrstuvwxyz0123456789 "
	for b.Len() < n {
		b.WriteString(alphabet)
	}
	return b.String()[:n]
}

func TestChunker_ExactOverlapReconstruction(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
		text    string
	}{
		{"typical", 1000, 200, repeatText(5321)},
		{"no_overlap", 100, 0, repeatText(1000)},
		{"tiny_windows", 10, 3, repeatText(97)},
		{"last_window_partial", 50, 10, repeatText(123)},
		{"multibyte_runs", 10, 3, strings.Repeat("ü", 20)},
		{"mixed_multibyte", 50, 10, strings.Repeat("curly “quotes”, dashes – and ünïcödé. ", 7)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewChunker(tc.size, tc.overlap)
			if err != nil {
				t.Fatalf("NewChunker failed: %v", err)
			}
			chunks := c.Split(docmodel.Document{Name: "doc.pdf"}, []docmodel.Page{{Number: 1, Content: tc.text}})

			var rebuilt strings.Builder
			for i, chunk := range chunks {
				if !utf8.ValidString(chunk.Content) {
					t.Fatalf("chunk %d is invalid UTF-8: %q", i, chunk.Content)
				}
				runes := []rune(chunk.Content)
				if i == 0 {
					rebuilt.WriteString(chunk.Content)
					continue
				}
				if len(runes) < tc.overlap {
					t.Fatalf("chunk %d shorter than overlap: %d < %d", i, len(runes), tc.overlap)
				}
				rebuilt.WriteString(string(runes[tc.overlap:]))
			}
			if rebuilt.String() != tc.text {
				t.Errorf("reconstruction mismatch: got %d bytes, want %d", rebuilt.Len(), len(tc.text))
			}
		})
	}
}

func TestChunker_ThreePageScenario(t *testing.T) {
	// 3 pages, 800 chars each, size=1000 overlap=200 -> exactly 3 chunks
	c, err := NewChunker(1000, 200)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	pageText := repeatText(800)
	pages := []docmodel.Page{
		{Number: 1, Content: pageText},
		{Number: 2, Content: pageText},
		{Number: 3, Content: pageText},
	}

	chunks := c.Split(docmodel.Document{Name: "report.pdf"}, pages)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Content) > 1000 {
		t.Errorf("chunk[0] length %d exceeds chunk size", len(chunks[0].Content))
	}
	tail := chunks[0].Content[len(chunks[0].Content)-200:]
	if !strings.HasPrefix(chunks[1].Content, tail) {
		t.Error("chunk[1] does not start with the last 200 chars of chunk[0]")
	}
	for i, chunk := range chunks {
		if chunk.Seq != i {
			t.Errorf("chunk %d has seq %d", i, chunk.Seq)
		}
	}
	// window starts 0, 800, 1600 land on pages 1, 2, 3
	wantPages := []int{1, 2, 3}
	for i, chunk := range chunks {
		if chunk.PageNum != wantPages[i] {
			t.Errorf("chunk %d attributed to page %d, want %d", i, chunk.PageNum, wantPages[i])
		}
	}
}

func TestChunker_ShortDocumentSingleChunk(t *testing.T) {
	c, _ := NewChunker(1000, 200)
	chunks := c.Split(docmodel.Document{Name: "note.txt"}, []docmodel.Page{{Number: 1, Content: "just a short note"}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "just a short note" {
		t.Errorf("unexpected chunk content: %q", chunks[0].Content)
	}
}

func TestChunker_EmptyInput(t *testing.T) {
	c, _ := NewChunker(100, 10)
	if chunks := c.Split(docmodel.Document{}, nil); chunks != nil {
		t.Errorf("expected nil for empty input, got %d chunks", len(chunks))
	}
}

func TestNewChunker_Validation(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap_equals_size", 100, 100},
		{"overlap_exceeds_size", 100, 150},
		{"negative_overlap", 100, -1},
		{"zero_size", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tc.size, tc.overlap)
			if err == nil {
				t.Fatal("expected a configuration error")
			}
			if !faults.Is(err, faults.Configuration) {
				t.Errorf("expected CONFIGURATION_ERROR, got %v", faults.KindOf(err))
			}
		})
	}
}
