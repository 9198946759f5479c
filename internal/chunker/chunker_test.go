package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestNew_RejectsNonAdvancingPolicy(t *testing.T) {
	tests := []struct {
		size, overlap int
		wantErr       bool
	}{
		{800, 200, false},
		{10, 0, false},
		{10, 10, true},
		{10, 11, true},
		{0, 0, true},
		{10, -1, true},
	}
	for _, tt := range tests {
		_, err := New(tt.size, tt.overlap)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
		}
	}
}

func TestChunk_PlainTextOverlapBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 2000; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	text := b.String()

	chunks := Default().Chunk(text)

	wantStarts := []int{0, 600, 1200, 1800}
	if len(chunks) != len(wantStarts) {
		t.Fatalf("Expected %d chunks, got %d", len(wantStarts), len(chunks))
	}
	for i, start := range wantStarts {
		end := min(start+800, len(text))
		if chunks[i].Content != text[start:end] {
			t.Errorf("chunk %d does not start at offset %d", i, start)
		}
		if chunks[i].ID != i {
			t.Errorf("chunk %d has id %d", i, chunks[i].ID)
		}
		if chunks[i].Page != nil || chunks[i].Slide != nil {
			t.Errorf("chunk %d should have no location", i)
		}
	}
	if chunks[3].Length != 200 {
		t.Errorf("Expected last chunk length 200, got %d", chunks[3].Length)
	}
}

func TestChunk_CountsRunesNotBytes(t *testing.T) {
	c, err := New(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunk("éèàùç")
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "éèàù" || chunks[1].Content != "ùç" {
		t.Errorf("unexpected chunks %q, %q", chunks[0].Content, chunks[1].Content)
	}
	if chunks[0].Length != 4 {
		t.Errorf("Expected length 4, got %d", chunks[0].Length)
	}
}

func TestChunk_PagesNeverSpanBoundaries(t *testing.T) {
	long := strings.Repeat("x", 1000)
	text := fmt.Sprintf("--- Page 1 ---\nshort page\n--- Page 2 ---\n%s\n--- Page 3 ---\n\n--- Page 4 ---\nlast", long)

	chunks := Default().Chunk(text)

	wantPages := []int{1, 2, 2, 4}
	if len(chunks) != len(wantPages) {
		t.Fatalf("Expected %d chunks, got %d", len(wantPages), len(chunks))
	}
	for i, want := range wantPages {
		if chunks[i].Page == nil || *chunks[i].Page != want {
			t.Errorf("chunk %d: expected page %d, got %v", i, want, chunks[i].Page)
		}
		if chunks[i].ID != i {
			t.Errorf("chunk %d has id %d", i, chunks[i].ID)
		}
		if strings.Contains(chunks[i].Content, "--- Page") {
			t.Errorf("chunk %d contains a page marker", i)
		}
	}
	if chunks[0].Content != "short page" {
		t.Errorf("unexpected first chunk %q", chunks[0].Content)
	}
	if chunks[1].Length != 800 || chunks[2].Length != 400 {
		t.Errorf("unexpected sub-chunk lengths %d, %d", chunks[1].Length, chunks[2].Length)
	}
}

func TestChunk_SlidesAreNotSubSplit(t *testing.T) {
	long := strings.Repeat("y", 1500)
	text := "--- Slide 1 ---\nTitle\n--- Slide 2 ---\n" + long

	chunks := Default().Chunk(text)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Slide == nil || *chunks[1].Slide != 2 {
		t.Errorf("Expected slide 2, got %v", chunks[1].Slide)
	}
	if chunks[1].Page != nil {
		t.Errorf("slide chunk should not carry a page")
	}
	if chunks[1].Length != 1500 {
		t.Errorf("Expected whole slide of 1500 chars, got %d", chunks[1].Length)
	}
}

func TestChunk_ShortTextIsOneChunk(t *testing.T) {
	chunks := Default().Chunk("Ohm's law: U = R × I.")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != 0 {
		t.Errorf("Expected id 0, got %d", chunks[0].ID)
	}
}

func TestClean(t *testing.T) {
	in := "  Hello\x00   world\r\n\r\n\r\n\nNext  line  "
	want := "Hello world\n\nNext line"
	if got := Clean(in); got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}
