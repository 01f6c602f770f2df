package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"text/tabwriter"

	"github.com/CTAG07/hostgen/pkg/dedup"
	"github.com/CTAG07/hostgen/pkg/markov"
	"github.com/CTAG07/hostgen/pkg/partition"
	"github.com/spf13/cobra"
)

func newPartitionCmd(a *app) *cobra.Command {
	var (
		count       int
		seed        uint64
		workers     int
		trainAll    bool
		list        bool
		output      string
		retryFactor int
	)
	cmd := &cobra.Command{
		Use:   "partition [corpus]",
		Short: "Generate names from per-suffix models",
		Long: `Partition splits a corpus by registrable domain (public suffix plus one
label) and trains a separate model for every domain with at least two names.
Each generated name picks a domain in proportion to its share of the corpus
and ends with that domain.

Models are trained the first time their domain is drawn; --train-all builds
them all up front in parallel.

Examples:
  hostgen partition hosts.txt -n 200
  hostgen partition hosts.txt --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gc := a.config.Generate
			if cmd.Flags().Changed("number-to-generate") {
				gc.Count = count
			}
			if cmd.Flags().Changed("retry-factor") {
				gc.RetryFactor = retryFactor
			}
			if cmd.Flags().Changed("seed") {
				gc.Seed = seed
			}
			if err := gc.Validate(); err != nil {
				return err
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			in, err := openInput(cmd, path)
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()

			opts := []partition.Option{
				partition.WithExtendOptions(gc.extendOptions()),
				partition.WithGenerateOptions(
					markov.WithEpsilons(gc.Epsilons.epsilons()),
					markov.WithLevels(gc.Levels...),
				),
			}
			if gc.Seed != 0 {
				opts = append(opts, partition.WithRand(rand.New(rand.NewPCG(gc.Seed, gc.Seed))))
			}
			p, err := partition.Read(in, opts...)
			if err != nil {
				return err
			}
			p.SetLogger(a.logger)
			a.logger.Info("Corpus partitioned",
				"usable", p.Usable(),
				"skipped", p.Skipped(),
				"suffixes", len(p.Suffixes()),
			)

			if list {
				return writeSuffixes(cmd.OutOrStdout(), p.Suffixes())
			}
			if trainAll {
				if err = p.TrainAll(cmd.Context(), workers); err != nil {
					return err
				}
			}

			filter := dedup.NewBloom(uint(gc.Count), gc.FalsePositiveRate)
			names, stats, err := p.Generate(cmd.Context(), gc.Count, gc.RetryFactor, filter)
			if err != nil {
				return err
			}
			logBatch(a.logger, stats)
			return writeOutput(cmd, output, func(w io.Writer) error {
				bw := bufio.NewWriter(w)
				for _, name := range names {
					if _, err := fmt.Fprintln(bw, name); err != nil {
						return err
					}
				}
				return bw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&count, "number-to-generate", "n", 0, "Number of names to generate")
	cmd.Flags().IntVar(&retryFactor, "retry-factor", 0, "Draws allowed per requested name")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 picks one at random)")
	cmd.Flags().BoolVar(&trainAll, "train-all", false, "Train every eligible partition before generating")
	cmd.Flags().IntVar(&workers, "workers", 4, "Parallel trainings with --train-all")
	cmd.Flags().BoolVar(&list, "list", false, "List the partitions instead of generating")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write names to this file instead of stdout")
	return cmd
}

func writeSuffixes(w io.Writer, suffixes []partition.SuffixInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SUFFIX\tNAMES\tFREQUENCY\tELIGIBLE")
	for _, s := range suffixes {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%t\n", s.Suffix, s.Names, strconv.FormatFloat(s.Frequency, 'f', 4, 64), s.Eligible)
	}
	return tw.Flush()
}
