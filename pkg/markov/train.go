package markov

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxLineLength bounds a single corpus line. Longer lines fail the scan.
const maxLineLength = 1 << 16

// Trainer builds models from corpora of names, one name per line.
type Trainer struct {
	logger *slog.Logger
}

// NewTrainer returns a Trainer that discards its logs.
func NewTrainer() *Trainer {
	return &Trainer{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// SetLogger sets the logger for the Trainer. By default, all logs are discarded.
func (t *Trainer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Train reads names from data, one per line, and builds a model from them.
// Lines are trimmed and lower-cased; lines without a label are skipped. The
// corpus is read in a single pass and never held in memory as a whole.
func (t *Trainer) Train(ctx context.Context, data io.Reader) (*Model, error) {
	h := NewHistogram()

	scanner := bufio.NewScanner(data)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	var lines int
	for scanner.Scan() {
		// checking the context every line is measurable on large corpora
		if lines++; lines%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		h.Add(Normalize(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	return t.build(ctx, h)
}

// TrainNames builds a model from an in-memory list of names.
func (t *Trainer) TrainNames(ctx context.Context, names []string) (*Model, error) {
	return t.build(ctx, Collect(names))
}

func (t *Trainer) build(ctx context.Context, h *Histogram) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := Build(h)
	if err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "Training completed",
		slog.Int("names_processed", h.Names),
		slog.Int("names_skipped", h.Skipped),
		slog.String("special_chars", strings.Join(m.special, "")),
	)
	return m, nil
}
