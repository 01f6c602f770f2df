package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/CTAG07/hostgen/pkg/store"
	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	config *Config
	logger *slog.Logger
}

// NewRootCmd creates the root command for hostgen.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "hostgen",
		Short: "Learn and synthesize host names with a character-level Markov model",
		Long: `hostgen trains a per-level character Markov model on a corpus of dotted
host names and draws new, plausible names from it.

Models can be written to JSON files or kept in a SQLite model store. Generated
names can be scored against a model or checked for existence over DNS.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("hostgen version %s (commit %s, built %s)\n", Version, Commit, BuildDate))

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringVar(&a.configPath, "config", DefaultConfigPath(), "Path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path to the model database (overrides database_path)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newTrainCmd(a))
	cmd.AddCommand(newGenerateCmd(a))
	cmd.AddCommand(newScoreCmd(a))
	cmd.AddCommand(newFeaturesCmd(a))
	cmd.AddCommand(newPartitionCmd(a))
	cmd.AddCommand(newModelsCmd(a))
	cmd.AddCommand(newProbeCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

// Execute runs the root command.
// SIGINT and SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.dbPath != "" {
		config.DatabasePath = a.dbPath
	}

	level, _ := parseLogLevel(config.LogLevel)
	if a.verbose {
		level = slog.LevelDebug
	}
	a.config = config
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// openStore opens the model database, creating it and its schema if needed.
// The caller closes both the store and the returned closer.
func (a *app) openStore() (*store.Store, io.Closer, error) {
	path := a.config.DatabasePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := initDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup model schema: %w", err)
	}
	s, err := store.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	s.SetLogger(a.logger)
	return s, db, nil
}

// withStore runs fn against an open model store.
func (a *app) withStore(fn func(*store.Store) error) error {
	s, db, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		s.Close()
		if err := db.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}()
	return fn(s)
}
