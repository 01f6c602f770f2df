package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/CTAG07/hostgen/pkg/markov"
	"github.com/CTAG07/hostgen/pkg/store"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

// modelSource selects where a command reads its model from: a JSON file
// (-i) or a named model in the store (-m).
type modelSource struct {
	file string
	name string
}

func (s *modelSource) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "input", "i", "", "Model JSON file to read ('-' for stdin)")
	cmd.Flags().StringVarP(&s.name, "model", "m", "", "Name of a model in the model store")
	cmd.MarkFlagsMutuallyExclusive("input", "model")
}

// loadModel reads the model selected by src.
func (a *app) loadModel(ctx context.Context, cmd *cobra.Command, src modelSource) (*markov.Model, error) {
	switch {
	case src.file == "-":
		return markov.ReadJSON(cmd.InOrStdin())
	case src.file != "":
		return markov.LoadFile(src.file)
	case src.name != "":
		var m *markov.Model
		err := a.withStore(func(s *store.Store) error {
			var err error
			m, err = s.Load(ctx, src.name)
			return err
		})
		return m, err
	default:
		return nil, ErrNoModelSource
	}
}

// openInput opens a corpus path, '-' or "" meaning the command's stdin.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// writeOutput writes the bytes produced by fn to path atomically, or to the
// command's stdout when path is empty or '-'.
func writeOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// fields splits a list flag on spaces and commas, so both "0 1 2" and
// "0,1,2" are accepted.
func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range fields(s) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", f)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range fields(s) {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", f)
		}
		out = append(out, v)
	}
	return out, nil
}
