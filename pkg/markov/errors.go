package markov

import (
	"errors"
	"fmt"
)

var (
	// ErrModelLoad is matched by every error returned while decoding a model
	// document.
	ErrModelLoad = errors.New("markov: malformed model")

	// ErrModelExhausted is returned when a draw falls through every observed
	// symbol of a distribution and its Others bucket is empty.
	ErrModelExhausted = errors.New("markov: model exhausted")

	// ErrEmptyDepthWindow is returned by Extend when the requested depth
	// window excludes every observed depth.
	ErrEmptyDepthWindow = errors.New("markov: depth window holds no probability mass")

	// ErrInvalidLevel is returned for generation levels outside [0, MaxLevels).
	ErrInvalidLevel = errors.New("markov: invalid level")

	// ErrEmptyCorpus is returned by Build when no usable name was collected.
	ErrEmptyCorpus = errors.New("markov: corpus has no usable names")
)

// ModelLoadError describes a model document that could not be decoded.
type ModelLoadError struct {
	Path string // empty when the model was read from a stream
	Err  error
}

func (e *ModelLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load model: %v", e.Err)
	}
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrModelLoad and the underlying cause to errors.Is.
func (e *ModelLoadError) Unwrap() []error {
	return []error{ErrModelLoad, e.Err}
}

// ModelExhaustedError reports which table could not produce a value.
type ModelExhaustedError struct {
	Table string
	Level int // -1 for tables that are not per level
}

func (e *ModelExhaustedError) Error() string {
	if e.Level < 0 {
		return fmt.Sprintf("markov: model exhausted sampling %s", e.Table)
	}
	return fmt.Sprintf("markov: model exhausted sampling %s at level %d", e.Table, e.Level)
}

func (e *ModelExhaustedError) Unwrap() error { return ErrModelExhausted }

// Table names used in ModelExhaustedError.
const (
	TableDepth      = "depth"
	TableWordLength = "word_length"
	TableFirst      = "first_char"
	TableTransition = "transition"
)
