package models

import (
	"errors"
	"fmt"
)

var (
	ErrExtraction        = errors.New("text extraction failed")
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file format", ErrExtraction)
	ErrEmptyContent      = errors.New("no text extracted from file")
	ErrNotFound          = errors.New("course snapshot not found")
	ErrCourseNotIndexed  = errors.New("course not indexed yet")
	ErrEmptyIndex        = errors.New("vector index is empty")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrGeneration        = errors.New("answer generation failed")
	ErrTimeout           = errors.New("upstream call timed out")
	ErrInvalidID         = errors.New("invalid user or course id")
)

// GenerationError reports a failed call to the language model or to the
// embedding service on the query path.
type GenerationError struct {
	Model   string
	Attempt int
	Timeout bool
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("generation timed out (model %s, attempt %d): %v", e.Model, e.Attempt, e.Err)
	}
	return fmt.Sprintf("generation failed (model %s, attempt %d): %v", e.Model, e.Attempt, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool {
	switch target {
	case ErrGeneration:
		return true
	case ErrTimeout:
		return e.Timeout
	}
	return false
}
