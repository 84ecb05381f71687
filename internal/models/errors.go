// Package models defines the data structures for the course eligibility engine.
package models

import (
	"errors"
	"fmt"
)

// Quiz validation errors
var (
	ErrNoAnswers           = errors.New("no answers")
	ErrMissingQuestionID   = errors.New("missing question_id")
	ErrUnknownQuestionID   = errors.New("Unknown question_id")
	ErrOptionOutOfRange    = errors.New("option_index out of range")
	ErrEditionMismatch     = errors.New("question bank editions differ")
	ErrEmptyQuestionBank   = errors.New("question bank is empty")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Requirement data errors
var (
	ErrInvalidGrade               = errors.New("invalid grade")
	ErrEmptyORGroup               = errors.New("or_group has no subjects")
	ErrInvalidORGroupCount        = errors.New("or_group count out of range")
	ErrInvalidComplexRequirements = errors.New("invalid complex_requirements")
	ErrEmptyCourseID              = errors.New("course_id cannot be empty")
)

// ValidationError is a malformed request that is reported back to the caller as-is.
type ValidationError struct {
	Index  int
	Err    error
	Detail string
}

// NewValidationError wraps a sentinel with the position of the offending answer.
func NewValidationError(index int, err error, detail string) *ValidationError {
	return &ValidationError{Index: index, Err: err, Detail: detail}
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Err.Error()
	}
	if e.Detail == "" {
		return fmt.Sprintf("answer %d: %s", e.Index, e.Err.Error())
	}
	return fmt.Sprintf("answer %d: %s: %s", e.Index, e.Err.Error(), e.Detail)
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
