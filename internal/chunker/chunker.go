package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rachid48133/studygenie/internal/models"
)

const (
	DefaultChunkSize    = 800 // characters
	DefaultChunkOverlap = 200 // characters
)

var (
	pageMarkerRe  = regexp.MustCompile(models.PageMarkerRegex)
	slideMarkerRe = regexp.MustCompile(models.SlideMarkerRegex)
	spacesRe      = regexp.MustCompile(` +`)
	blankLinesRe  = regexp.MustCompile(`\n\n+`)
)

// Chunker splits extracted course text into overlapping, page-attributed chunks.
type Chunker struct {
	size    int
	overlap int
}

// New returns a chunker. The overlap must be smaller than the chunk size,
// otherwise the window would never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Default returns a chunker with the 800/200 policy.
func Default() *Chunker {
	return &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
}

// Chunk splits text by page markers, then slide markers, then plain windows.
// IDs run from 0 across the whole output. Text is assumed non-empty.
func (c *Chunker) Chunk(text string) []models.Chunk {
	if sections := splitSections(text, pageMarkerRe); sections != nil {
		var chunks []models.Chunk
		for _, s := range sections {
			if s.body == "" {
				continue
			}
			pieces := []string{s.body}
			if utf8.RuneCountInString(s.body) > c.size {
				pieces = c.window(s.body)
			}
			for _, p := range pieces {
				page := s.number
				chunks = append(chunks, newChunk(len(chunks), p, &page, nil))
			}
		}
		return chunks
	}

	// slides are short enough to stay whole
	if sections := splitSections(text, slideMarkerRe); sections != nil {
		var chunks []models.Chunk
		for _, s := range sections {
			if s.body == "" {
				continue
			}
			slide := s.number
			chunks = append(chunks, newChunk(len(chunks), s.body, nil, &slide))
		}
		return chunks
	}

	var chunks []models.Chunk
	for _, p := range c.window(text) {
		chunks = append(chunks, newChunk(len(chunks), p, nil, nil))
	}
	return chunks
}

// window cuts text into fixed windows; window k starts at rune k*(size-overlap).
func (c *Chunker) window(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := min(start+c.size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

func newChunk(id int, content string, page, slide *int) models.Chunk {
	return models.Chunk{
		ID:      id,
		Content: content,
		Page:    page,
		Slide:   slide,
		Length:  utf8.RuneCountInString(content),
	}
}

type section struct {
	number int
	body   string
}

// splitSections returns the marker-delimited sections of text, or nil when
// no marker is present. Text before the first marker is dropped.
func splitSections(text string, markerRe *regexp.Regexp) []section {
	locs := markerRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	sections := make([]section, 0, len(locs))
	for i, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			n = i + 1
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, section{number: n, body: strings.TrimSpace(text[loc[1]:end])})
	}
	return sections
}

// Clean normalizes extracted text before chunking.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spacesRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
