package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/CTAG07/hostgen/pkg/dedup"
	"github.com/CTAG07/hostgen/pkg/probe"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newProbeCmd(a *app) *cobra.Command {
	var (
		src      modelSource
		flags    generateFlags
		all      bool
		resolver string
	)
	cmd := &cobra.Command{
		Use:   "probe [name...]",
		Short: "Check which names exist in DNS",
		Long: `Probe sends one DNS query per name to the configured resolver and prints
the names that resolve. Names are generated from a model when -i or -m is
given, otherwise they are taken from the arguments or read from stdin.

Queries are rate limited (probe.qps, probe.burst) and run on probe.workers
workers. Only query a resolver you are allowed to load.

Examples:
  hostgen probe -m corp -n 500 --resolver 10.0.0.53:53
  hostgen generate -i model.json | hostgen probe --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := a.config.Probe
			if cmd.Flags().Changed("resolver") {
				pc.Resolver = resolver
			}
			if err := pc.Validate(); err != nil {
				return err
			}
			qtype, _ := pc.queryType()
			prober, err := probe.New(probe.Config{
				Server:  pc.Resolver,
				Type:    qtype,
				QPS:     pc.QPS,
				Burst:   pc.Burst,
				Workers: pc.Workers,
				Timeout: pc.Timeout,
			})
			if err != nil {
				return err
			}
			prober.SetLogger(a.logger)

			produce, err := a.probeSource(cmd, src, &flags, args)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			names := make(chan string)
			results := make(chan probe.Result)

			g.Go(func() error {
				defer close(names)
				return produce(ctx, names)
			})
			g.Go(func() error {
				defer close(results)
				return prober.Run(ctx, names, results)
			})
			g.Go(func() error {
				return writeResults(a, cmd.OutOrStdout(), results, all)
			})
			return g.Wait()
		},
	}
	src.register(cmd)
	flags.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "Print every probed name with its response code")
	cmd.Flags().StringVar(&resolver, "resolver", "", "Resolver address host:port (overrides probe.resolver)")
	return cmd
}

// probeSource returns the function that feeds names to the prober.
func (a *app) probeSource(cmd *cobra.Command, src modelSource, flags *generateFlags, args []string) (func(context.Context, chan<- string) error, error) {
	if src.file == "" && src.name == "" {
		return func(ctx context.Context, names chan<- string) error {
			return eachName(ctx, cmd, args, func(name string) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case names <- name:
					return nil
				}
			})
		}, nil
	}

	gc := a.config.Generate
	if err := flags.apply(cmd, &gc); err != nil {
		return nil, err
	}
	m, err := a.loadModel(cmd.Context(), cmd, src)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(m, gc, a.logger)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, names chan<- string) error {
		filter := dedup.NewBloom(uint(gc.Count), gc.FalsePositiveRate)
		for name := range gen.Stream(ctx, gc.Count, gc.affixes(), filter) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case names <- name:
			}
		}
		return nil
	}, nil
}

func writeResults(a *app, w io.Writer, results <-chan probe.Result, all bool) error {
	bw := bufio.NewWriter(w)
	var probed, found, failed int
	for res := range results {
		probed++
		switch {
		case res.Err != nil:
			failed++
			a.logger.Debug("Probe failed", "name", res.Name, "error", res.Err)
		case res.Exists:
			found++
		}
		if !res.Exists && !all {
			continue
		}
		var err error
		if all {
			rcode := res.Rcode
			if res.Err != nil {
				rcode = "ERROR"
			}
			_, err = fmt.Fprintf(bw, "%s\t%s\t%d\n", res.Name, rcode, res.Answers)
		} else {
			_, err = fmt.Fprintln(bw, res.Name)
		}
		if err != nil {
			return err
		}
	}

	var rate float64
	if probed > 0 {
		rate = float64(found) / float64(probed)
	}
	a.logger.Info("Probe completed",
		"probed", probed,
		"found", found,
		"failed", failed,
		"hit_rate", rate,
	)
	return bw.Flush()
}
