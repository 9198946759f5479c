package models

import (
	"fmt"
	"time"
)

const SnapshotVersion = 1

// Chunk represents a parsed chunk with its page or slide attribution.
// At most one of Page and Slide is set; both are nil for unmarked text.
type Chunk struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Page    *int   `json:"page,omitempty"`
	Slide   *int   `json:"slide,omitempty"`
	Length  int    `json:"length"`
}

// Location returns where the chunk came from in the source document.
func (c Chunk) Location() Location {
	switch {
	case c.Page != nil:
		return Location{Kind: LocationPage, Number: *c.Page}
	case c.Slide != nil:
		return Location{Kind: LocationSlide, Number: *c.Slide}
	}
	return Location{}
}

type LocationKind string

const (
	LocationPage  LocationKind = "page"
	LocationSlide LocationKind = "slide"
)

// Location is a page or slide reference. The zero value means unknown.
type Location struct {
	Kind   LocationKind `json:"kind,omitempty"`
	Number int          `json:"number,omitempty"`
}

func (l Location) String() string {
	switch l.Kind {
	case LocationPage:
		return fmt.Sprintf("Page %d", l.Number)
	case LocationSlide:
		return fmt.Sprintf("Slide %d", l.Number)
	}
	return "N/A"
}

// Ref returns the page or slide number, or nil when unknown.
func (l Location) Ref() *int {
	if l.Kind == "" {
		return nil
	}
	n := l.Number
	return &n
}

// CourseMetadata describes one indexing run of a course.
type CourseMetadata struct {
	CourseName        string    `json:"course_name"`
	IndexedAt         time.Time `json:"indexed_at"`
	ChunksCount       int       `json:"chunks_count"`
	PageCount         int       `json:"page_count"`
	FileType          string    `json:"file_type"`
	EmbeddingModel    string    `json:"embedding_model,omitempty"`
	Dimension         int       `json:"dimension"`
	EmbeddingFailures int       `json:"embedding_failures"`
}

// Snapshot is the persisted state of an indexed course.
// Vectors[i] is the embedding of Chunks[i].Content.
type Snapshot struct {
	Version  int
	Vectors  [][]float32
	Chunks   []Chunk
	Metadata CourseMetadata
}

// Validate checks the positional correspondence between vectors and chunks.
func (s *Snapshot) Validate() error {
	if len(s.Vectors) != len(s.Chunks) {
		return fmt.Errorf("%w: %d vectors for %d chunks", ErrDimensionMismatch, len(s.Vectors), len(s.Chunks))
	}
	for i, c := range s.Chunks {
		if c.ID != i {
			return fmt.Errorf("chunk at position %d has id %d", i, c.ID)
		}
	}
	return nil
}

// IndexStats is returned to callers of an indexing run.
type IndexStats struct {
	ChunksCount       int     `json:"chunks_count"`
	PageCount         int     `json:"page_count"`
	ElapsedSeconds    float64 `json:"elapsed_seconds"`
	EmbeddingFailures int     `json:"embedding_failures"`
}
