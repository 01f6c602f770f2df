package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/CTAG07/hostgen/pkg/markov"
	"github.com/CTAG07/hostgen/pkg/store"
	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the model store",
		Long: `Models lists, imports, exports and removes the models kept in the SQLite
model store (database_path in the config, or --db).`,
	}
	cmd.AddCommand(newModelsListCmd(a))
	cmd.AddCommand(newModelsImportCmd(a))
	cmd.AddCommand(newModelsExportCmd(a))
	cmd.AddCommand(newModelsRemoveCmd(a))
	cmd.AddCommand(newModelsStatsCmd(a))
	return cmd
}

func newModelsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				models, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "NAME\tNAMES TRAINED\tCREATED")
				for _, m := range models {
					_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", m.Name, m.NamesTrained, m.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
}

func newModelsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE NAME",
		Short: "Import a model JSON file into the store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := markov.LoadFile(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s *store.Store) error {
				_, err := s.Save(cmd.Context(), args[1], m)
				return err
			})
		},
	}
}

func newModelsExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a stored model as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				m, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(cmd, output, func(w io.Writer) error { return m.WriteJSON(w) })
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the model JSON to this file")
	return cmd
}

func newModelsRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a stored model",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				return s.Remove(cmd.Context(), args[0])
			})
		},
	}
}

func newModelsStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts per stored model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				stats, err := s.Stats(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "NAME\tCHARS\tDEPTHS\tLENGTHS\tFIRST\tTRANSITIONS")
				for _, m := range stats.Models {
					t := stats.Tables[m.Name]
					_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
						m.Name, t.Characters, t.Depths, t.WordLengths, t.FirstChars, t.Transitions)
				}
				return tw.Flush()
			})
		},
	}
}
