package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/hostgen/pkg/dedup"
	"github.com/CTAG07/hostgen/pkg/markov"
	"github.com/CTAG07/hostgen/pkg/probe"
	"github.com/spf13/cobra"
)

// generateFlags are the raw generation flags; list values are strings so
// they can be written the way they are in the config ("0.001 0.001 ...").
type generateFlags struct {
	eps         epsilonFlags
	count       int
	suffix      string
	prefix      string
	levels      string
	customWords int
	maxWords    string
	minWords    string
	retryFactor int
	seed        uint64
}

func (f *generateFlags) register(cmd *cobra.Command) {
	f.eps.register(cmd)
	cmd.Flags().IntVarP(&f.count, "number-to-generate", "n", 0, "Number of names to generate")
	cmd.Flags().StringVarP(&f.suffix, "suffix", "s", "", "Fixed suffix appended to every name")
	cmd.Flags().StringVarP(&f.prefix, "prefix", "p", "", "Fixed prefix prepended to every name")
	cmd.Flags().StringVarP(&f.levels, "word-level", "w", "", "Model level used for each generated label, right to left")
	cmd.Flags().IntVar(&f.customWords, "cw", 0, "Number of levels covered by the prefix and suffix")
	cmd.Flags().StringVar(&f.maxWords, "mxw", "", "Maximum word length per level (0 keeps the observed bound)")
	cmd.Flags().StringVar(&f.minWords, "miw", "", "Minimum word length per level (0 keeps the observed bound)")
	cmd.Flags().IntVar(&f.retryFactor, "retry-factor", 0, "Draws allowed per requested name")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Random seed (0 picks one at random)")
}

// epsilonFlags are the three per-level epsilon vectors.
type epsilonFlags struct {
	trans  string
	start  string
	length string
}

func (f *epsilonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.trans, "epsilons", "e", "", "Transition epsilons, one per level")
	cmd.Flags().StringVarP(&f.start, "epsilons-start", "b", "", "First-character epsilons, one per level")
	cmd.Flags().StringVarP(&f.length, "epsilons-length", "l", "", "Word-length epsilons, one per level")
}

func (f *epsilonFlags) apply(cmd *cobra.Command, ec *EpsilonConfig) error {
	floats := []struct {
		flag string
		val  string
		dst  *[]float64
	}{
		{"epsilons", f.trans, &ec.Transition},
		{"epsilons-start", f.start, &ec.Start},
		{"epsilons-length", f.length, &ec.Length},
	}
	for _, fl := range floats {
		if !cmd.Flags().Changed(fl.flag) {
			continue
		}
		v, err := parseFloats(fl.val)
		if err != nil {
			return fmt.Errorf("%w: --%s: %v", ErrInvalidEpsilons, fl.flag, err)
		}
		*fl.dst = v
	}
	return nil
}

// apply overrides gc with every flag set on the command line.
func (f *generateFlags) apply(cmd *cobra.Command, gc *GenerateConfig) error {
	if err := f.eps.apply(cmd, &gc.Epsilons); err != nil {
		return err
	}
	changed := cmd.Flags().Changed

	ints := []struct {
		flag string
		val  string
		dst  *[]int
		err  error
	}{
		{"word-level", f.levels, &gc.Levels, ErrInvalidLevels},
		{"mxw", f.maxWords, &gc.MaxWordLength, ErrInvalidWordLength},
		{"miw", f.minWords, &gc.MinWordLength, ErrInvalidWordLength},
	}
	for _, fl := range ints {
		if !changed(fl.flag) {
			continue
		}
		v, err := parseInts(fl.val)
		if err != nil {
			return fmt.Errorf("%w: --%s: %v", fl.err, fl.flag, err)
		}
		*fl.dst = v
	}

	if changed("number-to-generate") {
		gc.Count = f.count
	}
	if changed("suffix") {
		gc.Suffix = f.suffix
	}
	if changed("prefix") {
		gc.Prefix = f.prefix
	}
	if changed("cw") {
		gc.CustomLevels = f.customWords
	}
	if changed("retry-factor") {
		gc.RetryFactor = f.retryFactor
	}
	if changed("seed") {
		gc.Seed = f.seed
	}
	return gc.Validate()
}

// newGenerator extends m for gc and returns a generator configured by it.
func newGenerator(m *markov.Model, gc GenerateConfig, logger *slog.Logger) (*markov.Generator, error) {
	ext, err := m.Extend(gc.extendOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to extend model: %w", err)
	}
	opts := []markov.GenerateOption{
		markov.WithEpsilons(gc.Epsilons.epsilons()),
		markov.WithLevels(gc.Levels...),
		markov.WithRetryFactor(gc.RetryFactor),
	}
	if gc.Seed != 0 {
		opts = append(opts, markov.WithSeed(gc.Seed))
	}
	g, err := markov.NewGenerator(ext, opts...)
	if err != nil {
		return nil, err
	}
	g.SetLogger(logger)
	return g, nil
}

func (g *GenerateConfig) affixes() markov.Affixes {
	return markov.Affixes{Prefix: g.Prefix, Suffix: g.Suffix, CustomLength: g.CustomLevels}
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		src       modelSource
		flags     generateFlags
		output    string
		validOnly bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate host names from a model",
		Long: `Generate draws distinct names from a model read from a JSON file (-i) or
the model store (-m). Defaults come from the generate section of the config
file; flags override them.

List flags take one value per level, separated by spaces or commas.

Examples:
  hostgen generate -i model.json -n 50
  hostgen generate -m corp -s example.com --cw 2 -w "1 2" -n 20
  hostgen generate -i model.json -e "0.01 0.01 0.01 0.01" --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gc := a.config.Generate
			if err := flags.apply(cmd, &gc); err != nil {
				return err
			}
			m, err := a.loadModel(cmd.Context(), cmd, src)
			if err != nil {
				return err
			}
			g, err := newGenerator(m, gc, a.logger)
			if err != nil {
				return err
			}

			aff := gc.affixes()
			draw := func() (string, error) { return g.Generate(aff) }
			if validOnly {
				draw = func() (string, error) {
					name, err := g.Generate(aff)
					if err == nil && !probe.ValidName(name) {
						a.logger.Debug("Invalid name skipped", "name", name)
						return "", nil
					}
					return name, err
				}
			}

			return writeOutput(cmd, output, func(w io.Writer) error {
				bw := bufio.NewWriter(w)
				filter := dedup.NewBloom(uint(gc.Count), gc.FalsePositiveRate)
				var werr error
				stats, err := markov.DrawUnique(gc.Count, gc.RetryFactor, filter, draw, func(name string) bool {
					_, werr = fmt.Fprintln(bw, name)
					return werr == nil
				})
				if err != nil {
					return err
				}
				if werr != nil {
					return werr
				}
				logBatch(a.logger, stats)
				return bw.Flush()
			})
		},
	}
	src.register(cmd)
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write names to this file instead of stdout")
	cmd.Flags().BoolVar(&validOnly, "valid-only", false, "Discard names that are not valid DNS names")
	return cmd
}

func logBatch(logger *slog.Logger, stats markov.BatchStats) {
	attrs := []any{
		"requested", stats.Requested,
		"produced", stats.Produced,
		"attempts", stats.Attempts,
		"exhausted", stats.Exhausted,
		"empty", stats.Empty,
		"duplicates", stats.Duplicates,
	}
	if stats.Produced < stats.Requested {
		logger.Warn("Generated fewer names than requested", attrs...)
		return
	}
	logger.Info("Generation completed", attrs...)
}
