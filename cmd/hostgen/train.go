package main

import (
	"fmt"
	"io"

	"github.com/CTAG07/hostgen/pkg/markov"
	"github.com/CTAG07/hostgen/pkg/store"
	"github.com/spf13/cobra"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		output    string
		storeName string
		ngramLen  int
	)
	cmd := &cobra.Command{
		Use:   "train [corpus]",
		Short: "Train a model from a corpus of host names",
		Long: `Train reads one host name per line and builds a model of its label
structure. Blank lines and names made only of dots are skipped.

The model is written as JSON to --output (stdout by default) and, with
--store, saved under that name in the model store.

Examples:
  hostgen train hosts.txt -o model.json
  cat hosts.txt | hostgen train --store corp`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ngramLen != 2 {
				return fmt.Errorf("%w: --ngram-length %d", ErrUnsupportedNgram, ngramLen)
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

			trainer := markov.NewTrainer()
			trainer.SetLogger(a.logger)
			m, err := trainer.Train(cmd.Context(), in)
			if err != nil {
				return err
			}

			if storeName != "" {
				err = a.withStore(func(s *store.Store) error {
					_, err := s.Save(cmd.Context(), storeName, m)
					return err
				})
				if err != nil {
					return err
				}
				if output == "" {
					return nil
				}
			}
			return writeOutput(cmd, output, func(w io.Writer) error { return m.WriteJSON(w) })
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the model JSON to this file")
	cmd.Flags().StringVar(&storeName, "store", "", "Save the model under this name in the model store")
	cmd.Flags().IntVar(&ngramLen, "ngram-length", 2, "Transition n-gram length (only 2 is supported)")
	return cmd
}
