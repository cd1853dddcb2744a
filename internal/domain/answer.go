package domain

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
)

// Answer is an immutable answer value tagged with its comparison category.
// Construct it with NewAnswer or NewNumberAnswer; the zero value is invalid.
type Answer struct {
	value         string
	category      Category
	confidence    float64
	hasConfidence bool
	metadata      map[string]string
}

// AnswerOption customizes an Answer at construction time.
type AnswerOption func(*Answer)

// WithConfidence attaches a producer-reported confidence to the answer.
func WithConfidence(c float64) AnswerOption {
	return func(a *Answer) {
		a.confidence = c
		a.hasConfidence = true
	}
}

// WithMetadata attaches free-form metadata. The map is copied.
func WithMetadata(md map[string]string) AnswerOption {
	return func(a *Answer) { a.metadata = maps.Clone(md) }
}

// NewAnswer builds an Answer and runs the category's validator on it.
func NewAnswer(value string, category Category, opts ...AnswerOption) (Answer, error) {
	a := Answer{value: value, category: category}
	for _, opt := range opts {
		opt(&a)
	}
	if err := a.Validate(); err != nil {
		return Answer{}, err
	}
	return a, nil
}

// NewNumberAnswer builds a CategoryNumber answer from a float. The value is
// rendered with the shortest representation that round-trips.
func NewNumberAnswer(v float64, opts ...AnswerOption) (Answer, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Answer{}, fmt.Errorf("%w: number answer must be finite, got %v", ErrInvalidAnswer, v)
	}
	return NewAnswer(strconv.FormatFloat(v, 'g', -1, 64), CategoryNumber, opts...)
}

// Value returns the raw answer text.
func (a Answer) Value() string { return a.value }

// Category returns the category assigned at construction.
func (a Answer) Category() Category { return a.category }

// Confidence returns the attached confidence and whether one was set.
func (a Answer) Confidence() (float64, bool) { return a.confidence, a.hasConfidence }

// Metadata returns a copy of the attached metadata.
func (a Answer) Metadata() map[string]string { return maps.Clone(a.metadata) }

// Validate runs the validator registered for the answer's category.
func (a Answer) Validate() error {
	validator, ok := answerValidators[a.category]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, a.category)
	}
	if a.hasConfidence && (math.IsNaN(a.confidence) || a.confidence < 0 || a.confidence > 1) {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidAnswer, a.confidence)
	}
	return validator(a.value)
}

// answerValidators holds one validation function per category variant.
var answerValidators = map[Category]func(string) error{
	CategoryNumber:           validateNumeric,
	CategoryPhysicalQuantity: validateNumeric,
	CategoryFormula:          validateNonEmpty,
	CategoryEquation:         validateNonEmpty,
	CategoryText:             validateNonEmpty,
	CategoryOption:           validateNonEmpty,
}

func validateNonEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAnswer, ErrEmptyValue)
	}
	return nil
}

// validateNumeric rejects empty values and plain literals that overflow to
// infinity. Text that is not a plain float literal is accepted here; the
// comparator falls back to string comparison for it.
func validateNumeric(v string) error {
	if err := validateNonEmpty(v); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && math.IsInf(f, 0) {
			return fmt.Errorf("%w: %q is not a finite number", ErrInvalidAnswer, v)
		}
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %q is not a finite number", ErrInvalidAnswer, v)
	}
	return nil
}
