// Package partition splits a corpus of names by registrable suffix and
// trains one model per suffix. Generation picks a suffix by its share of the
// corpus, builds that suffix's model on first use and appends the suffix to
// every name the model produces.
package partition

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/CTAG07/hostgen/pkg/markov"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNoEligiblePartition is returned when no suffix has enough names to
// train a model.
var ErrNoEligiblePartition = errors.New("partition: no suffix has at least two names")

// MinNames is the number of names a suffix needs before a model is trained
// for it.
const MinNames = 2

// maxResample bounds the suffix draws spent finding an eligible partition
// for a single name.
const maxResample = 1000

// TableSuffix names the suffix distribution in ModelExhaustedError.
const TableSuffix = "suffix"

type options struct {
	resolver SuffixResolver
	extend   markov.ExtendOptions
	generate []markov.GenerateOption
	rng      *rand.Rand
}

// Option configures a Partitioner.
type Option func(*options)

// WithResolver sets the suffix resolver. Default: PublicSuffixResolver.
func WithResolver(r SuffixResolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithExtendOptions sets how each partition model is extended. CustomLength
// is ignored; the suffix is stripped before training.
func WithExtendOptions(e markov.ExtendOptions) Option {
	return func(o *options) { o.extend = e }
}

// WithGenerateOptions sets the options of every partition generator.
func WithGenerateOptions(opts ...markov.GenerateOption) Option {
	return func(o *options) { o.generate = opts }
}

// WithRand sets the random source used for suffix draws and for every
// partition generator.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// SuffixInfo describes one partition.
type SuffixInfo struct {
	Suffix    string  `json:"suffix"`
	Names     int     `json:"names"`
	Frequency float64 `json:"frequency"`
	Eligible  bool    `json:"eligible"`
}

// partitionModel is a lazily built partition. gen is nil when the partition
// could not produce a usable model.
type partitionModel struct {
	gen *markov.Generator
}

// Partitioner holds a corpus split by suffix. Models are built lazily and
// cached; building is safe for concurrent use, but Generate shares one
// random source and must not be called concurrently.
type Partitioner struct {
	opts     options
	groups   map[string][]string // suffix -> names with the suffix stripped
	suffixes *markov.Distribution[string]
	usable   int
	skipped  int

	trainer *markov.Trainer
	mu      sync.Mutex
	models  map[string]*partitionModel
	flight  singleflight.Group
	logger  *slog.Logger
}

// New splits names by registrable suffix. Names with fewer than two labels
// or whose suffix cannot be resolved are skipped and do not count towards
// the suffix frequencies.
func New(names []string, opts ...Option) (*Partitioner, error) {
	o := options{resolver: PublicSuffixResolver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	o.extend.CustomLength = 0

	p := &Partitioner{
		opts:    o,
		groups:  make(map[string][]string),
		trainer: markov.NewTrainer(),
		models:  make(map[string]*partitionModel),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, name := range names {
		p.add(name)
	}

	entries := make([]markov.Entry[string], 0, len(p.groups))
	eligible := 0
	for suffix, group := range p.groups {
		entries = append(entries, markov.Entry[string]{Symbol: suffix, Prob: float64(len(group)) / float64(p.usable)})
		if len(group) >= MinNames {
			eligible++
		}
	}
	if eligible == 0 {
		return nil, ErrNoEligiblePartition
	}
	p.suffixes = markov.NewDistribution(entries)
	return p, nil
}

// Read is New over a corpus with one name per line.
func Read(r io.Reader, opts ...Option) (*Partitioner, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return New(names, opts...)
}

func (p *Partitioner) add(raw string) {
	name := strings.Trim(markov.Normalize(raw), ".")
	if len(markov.Labels(name)) < 2 {
		p.skipped++
		return
	}
	suffix, err := p.opts.resolver.RegistrableDomain(name)
	if err != nil || suffix == "" {
		p.skipped++
		return
	}
	prefix := strings.TrimSuffix(strings.TrimSuffix(name, suffix), ".")
	p.groups[suffix] = append(p.groups[suffix], prefix)
	p.usable++
}

// SetLogger sets the logger for the Partitioner and its trainer. By default,
// all logs are discarded.
func (p *Partitioner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
		p.trainer.SetLogger(logger)
	}
}

// Usable returns the number of names assigned to a partition.
func (p *Partitioner) Usable() int { return p.usable }

// Skipped returns the number of names that could not be assigned.
func (p *Partitioner) Skipped() int { return p.skipped }

// Suffixes returns every partition, sorted by suffix.
func (p *Partitioner) Suffixes() []SuffixInfo {
	out := make([]SuffixInfo, 0, p.suffixes.Len())
	for _, e := range p.suffixes.Entries() {
		n := len(p.groups[e.Symbol])
		out = append(out, SuffixInfo{Suffix: e.Symbol, Names: n, Frequency: e.Prob, Eligible: n >= MinNames})
	}
	return out
}

// Model returns the extended model of a suffix, building it on first use.
// It returns nil when the suffix is unknown, has fewer than MinNames names,
// or its names yield no usable model.
func (p *Partitioner) Model(ctx context.Context, suffix string) (*markov.Model, error) {
	pm, err := p.partition(ctx, suffix)
	if err != nil || pm.gen == nil {
		return nil, err
	}
	return pm.gen.Model(), nil
}

func (p *Partitioner) partition(ctx context.Context, suffix string) (*partitionModel, error) {
	p.mu.Lock()
	pm, ok := p.models[suffix]
	p.mu.Unlock()
	if ok {
		return pm, nil
	}

	v, err, _ := p.flight.Do(suffix, func() (any, error) {
		pm, err := p.build(ctx, suffix)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.models[suffix] = pm
		p.mu.Unlock()
		return pm, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*partitionModel), nil
}

func (p *Partitioner) build(ctx context.Context, suffix string) (*partitionModel, error) {
	group := p.groups[suffix]
	if len(group) < MinNames {
		return &partitionModel{}, nil
	}

	m, err := p.trainer.TrainNames(ctx, group)
	if errors.Is(err, markov.ErrEmptyCorpus) {
		p.logger.DebugContext(ctx, "Partition has no labels below its suffix", slog.String("suffix", suffix))
		return &partitionModel{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to train partition %s: %w", suffix, err)
	}

	ext, err := m.Extend(p.opts.extend)
	if errors.Is(err, markov.ErrEmptyDepthWindow) {
		p.logger.DebugContext(ctx, "Partition has no depth in window", slog.String("suffix", suffix))
		return &partitionModel{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extend partition %s: %w", suffix, err)
	}

	genOpts := append([]markov.GenerateOption{}, p.opts.generate...)
	genOpts = append(genOpts, markov.WithRand(p.opts.rng))
	gen, err := markov.NewGenerator(ext, genOpts...)
	if err != nil {
		return nil, err
	}
	gen.SetLogger(p.logger)

	p.logger.DebugContext(ctx, "Partition model built",
		slog.String("suffix", suffix),
		slog.Int("names", len(group)),
	)
	return &partitionModel{gen: gen}, nil
}

// TrainAll builds every eligible partition model up front, running at most
// workers trainings at once. Values below 1 mean one worker.
func (p *Partitioner) TrainAll(ctx context.Context, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, info := range p.Suffixes() {
		if !info.Eligible {
			continue
		}
		g.Go(func() error {
			_, err := p.partition(ctx, info.Suffix)
			return err
		})
	}
	return g.Wait()
}

// GenerateOne draws a suffix, resampling while the drawn partition cannot
// produce names, and generates one name under it.
func (p *Partitioner) GenerateOne(ctx context.Context) (string, error) {
	for range maxResample {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		suffix, err := markov.Sample(p.opts.rng, p.suffixes, 0)
		if err != nil {
			continue
		}
		pm, err := p.partition(ctx, suffix)
		if err != nil {
			return "", err
		}
		if pm.gen == nil {
			continue
		}
		return pm.gen.Generate(markov.Affixes{Suffix: suffix})
	}
	return "", &markov.ModelExhaustedError{Table: TableSuffix, Level: -1}
}

// Generate draws up to n distinct names across partitions, spending at most
// retryFactor*n draws. Returning fewer than n names is not an error.
func (p *Partitioner) Generate(ctx context.Context, n, retryFactor int, filter markov.Filter) ([]string, markov.BatchStats, error) {
	names := make([]string, 0, n)
	stats, err := markov.DrawUnique(n, retryFactor, filter,
		func() (string, error) { return p.GenerateOne(ctx) },
		func(name string) bool {
			names = append(names, name)
			return true
		})

	p.logger.InfoContext(ctx, "Partitioned batch generated",
		slog.Int("requested", stats.Requested),
		slog.Int("produced", stats.Produced),
		slog.Int("attempts", stats.Attempts),
		slog.Int("partitions_built", p.built()),
	)
	return names, stats, err
}

func (p *Partitioner) built() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.models)
}
