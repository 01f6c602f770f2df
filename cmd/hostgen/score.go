package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/CTAG07/hostgen/pkg/markov"
	"github.com/spf13/cobra"
)

// scoreInput carries what score and features share: the model, the
// epsilons, and the names to process.
type scoreInput struct {
	src modelSource
	eps epsilonFlags
}

func (s *scoreInput) register(cmd *cobra.Command) {
	s.src.register(cmd)
	s.eps.register(cmd)
}

// prepare loads the model and resolves the epsilons.
func (s *scoreInput) prepare(a *app, cmd *cobra.Command) (*markov.Model, markov.Epsilons, error) {
	ec := a.config.Generate.Epsilons
	if err := s.eps.apply(cmd, &ec); err != nil {
		return nil, markov.Epsilons{}, err
	}
	if err := ec.Validate(); err != nil {
		return nil, markov.Epsilons{}, err
	}
	m, err := a.loadModel(cmd.Context(), cmd, s.src)
	if err != nil {
		return nil, markov.Epsilons{}, err
	}
	return m, ec.epsilons(), nil
}

// eachName calls fn for every name given as an argument, or for every
// non-blank line of stdin when there are none.
func eachName(ctx context.Context, cmd *cobra.Command, args []string, fn func(string) error) error {
	if len(args) > 0 {
		for _, name := range args {
			if err := fn(name); err != nil {
				return err
			}
		}
		return nil
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func newScoreCmd(a *app) *cobra.Command {
	var in scoreInput
	cmd := &cobra.Command{
		Use:   "score [name...]",
		Short: "Score how likely names are under a model",
		Long: `Score prints each name with the probability the model assigns to it,
as "name<TAB>score". Names are read from the arguments, or one per line from
stdin. Epsilons smooth unobserved symbols the same way they bias generation.

Examples:
  hostgen score -i model.json www.example.com mail.example.com
  hostgen generate -m corp | hostgen score -m corp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, eps, err := in.prepare(a, cmd)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(cmd.OutOrStdout())
			err = eachName(cmd.Context(), cmd, args, func(name string) error {
				_, err := fmt.Fprintf(w, "%s\t%s\n", name, strconv.FormatFloat(m.Score(name, eps), 'g', -1, 64))
				return err
			})
			if err != nil {
				return err
			}
			return w.Flush()
		},
	}
	in.register(cmd)
	return cmd
}

func newFeaturesCmd(a *app) *cobra.Command {
	var in scoreInput
	cmd := &cobra.Command{
		Use:   "features [name...]",
		Short: "Show the per-level measurements of names",
		Long: `Features prints, for each name, the number of labels and the length and
word probability of the label at every level. Level 0 is the rightmost label.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, eps, err := in.prepare(a, cmd)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			writeFeaturesHeader(tw)
			err = eachName(cmd.Context(), cmd, args, func(name string) error {
				return writeFeatures(tw, name, m.Features(name, eps))
			})
			if err != nil {
				return err
			}
			return tw.Flush()
		},
	}
	in.register(cmd)
	return cmd
}

func writeFeaturesHeader(w io.Writer) {
	header := []string{"NAME", "LABELS"}
	for i := range markov.MaxLevels {
		header = append(header, fmt.Sprintf("LEN%d", i), fmt.Sprintf("P%d", i))
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
}

func writeFeatures(w io.Writer, name string, f markov.Features) error {
	row := []string{name, strconv.Itoa(f.Labels)}
	for i := range markov.MaxLevels {
		row = append(row, strconv.Itoa(f.Lengths[i]), strconv.FormatFloat(f.WordProbs[i], 'g', 6, 64))
	}
	_, err := fmt.Fprintln(w, strings.Join(row, "\t"))
	return err
}
