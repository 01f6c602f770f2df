package markov

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
)

// DefaultEpsilon is the per-level bias reserved for unobserved symbols when
// no other value is configured.
const DefaultEpsilon = 0.001

// DefaultRetryFactor bounds batch generation to RetryFactor*n draws.
const DefaultRetryFactor = 5

// Epsilons holds the per-level sampling bias for each table.
type Epsilons struct {
	Transition [MaxLevels]float64
	Start      [MaxLevels]float64
	Length     [MaxLevels]float64
}

// DefaultEpsilons returns DefaultEpsilon for every level and table.
func DefaultEpsilons() Epsilons {
	var e Epsilons
	for i := range MaxLevels {
		e.Transition[i] = DefaultEpsilon
		e.Start[i] = DefaultEpsilon
		e.Length[i] = DefaultEpsilon
	}
	return e
}

// Affixes describes the fixed parts of a generated name. Suffix is joined
// to the generated labels with a '.', Prefix is prepended verbatim.
// CustomLength is the number of levels the affixes already account for.
type Affixes struct {
	Prefix       string
	Suffix       string
	CustomLength int
}

// generateOptions holds the settings applied by GenerateOption functions.
type generateOptions struct {
	rng         *rand.Rand
	epsilons    Epsilons
	levels      []int
	retryFactor int
}

// GenerateOption configures a Generator.
type GenerateOption func(*generateOptions)

// WithRand sets the random source. Generators sharing a source must not be
// used concurrently.
func WithRand(rng *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = rng }
}

// WithSeed seeds a private random source, making output reproducible.
func WithSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) { o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithEpsilons sets the per-level sampling bias. Default: DefaultEpsilons().
func WithEpsilons(e Epsilons) GenerateOption {
	return func(o *generateOptions) { o.epsilons = e }
}

// WithLevels selects which model level is used for the i-th generated
// label, counted from the right. Default: 0, 1, 2, 3.
func WithLevels(levels ...int) GenerateOption {
	return func(o *generateOptions) { o.levels = levels }
}

// WithRetryFactor sets how many draws per requested name GenerateN may
// spend. Default: DefaultRetryFactor.
func WithRetryFactor(n int) GenerateOption {
	return func(o *generateOptions) { o.retryFactor = n }
}

// Generator synthesizes names from a Model. It only reads the model; its
// random source makes it unsafe for concurrent use.
type Generator struct {
	model       *Model
	rng         *rand.Rand
	epsilons    Epsilons
	levels      []int
	retryFactor int
	logger      *slog.Logger
}

// NewGenerator returns a Generator over m. m should normally be the result
// of Model.Extend; an unextended model never samples unobserved symbols.
func NewGenerator(m *Model, opts ...GenerateOption) (*Generator, error) {
	options := &generateOptions{
		epsilons:    DefaultEpsilons(),
		levels:      []int{0, 1, 2, 3},
		retryFactor: DefaultRetryFactor,
	}
	for _, opt := range opts {
		opt(options)
	}

	if len(options.levels) > MaxLevels {
		return nil, fmt.Errorf("%w: %d levels selected, at most %d", ErrInvalidLevel, len(options.levels), MaxLevels)
	}
	for _, l := range options.levels {
		if l < 0 || l >= MaxLevels {
			return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, l)
		}
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if options.retryFactor < 1 {
		options.retryFactor = 1
	}

	return &Generator{
		model:       m,
		rng:         options.rng,
		epsilons:    options.epsilons,
		levels:      options.levels,
		retryFactor: options.retryFactor,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Model returns the model the generator draws from.
func (g *Generator) Model() *Model { return g.model }

// Generate draws one name. Labels are generated right to left: first the
// number of labels, then for each label its length, its first character and
// the remaining characters through the level's transition table.
//
// A ModelExhaustedError is returned when a table cannot produce a value for
// the configured epsilons; callers are expected to skip the draw.
func (g *Generator) Generate(a Affixes) (string, error) {
	m := g.model

	depth, err := Sample(g.rng, m.depth, 0)
	if err != nil {
		return "", &ModelExhaustedError{Table: TableDepth, Level: -1}
	}
	nlevels := depth - a.CustomLength
	if nlevels > len(g.levels) {
		return "", fmt.Errorf("%w: depth %d needs %d levels, %d selected", ErrInvalidLevel, depth, nlevels, len(g.levels))
	}

	name := a.Suffix
	var label strings.Builder
	for i := 0; i < nlevels; i++ {
		level := g.levels[i]
		if err := g.label(&label, level); err != nil {
			return "", err
		}
		if name != "" {
			name = label.String() + "." + name
		} else {
			name = label.String()
		}
	}

	return a.Prefix + name, nil
}

// label writes one generated label for level into b.
func (g *Generator) label(b *strings.Builder, level int) error {
	m := g.model
	b.Reset()

	length, err := Sample(g.rng, m.wordLength[level], g.epsilons.Length[level])
	if err != nil {
		return &ModelExhaustedError{Table: TableWordLength, Level: level}
	}
	last, err := Sample(g.rng, m.first[level], g.epsilons.Start[level])
	if err != nil {
		return &ModelExhaustedError{Table: TableFirst, Level: level}
	}
	b.WriteString(last)

	for j := 1; j < length; j++ {
		row, ok := m.trans[level][last]
		if !ok {
			// last was only reachable through an Others bucket
			last = m.alphabet[g.rng.IntN(len(m.alphabet))]
		} else if last, err = Sample(g.rng, row, g.epsilons.Transition[level]); err != nil {
			return &ModelExhaustedError{Table: TableTransition, Level: level}
		}
		b.WriteString(last)
	}
	return nil
}

// Filter is an approximate membership set used to suppress duplicates.
// Test may report false positives but never false negatives.
type Filter interface {
	Test(name string) bool
	Add(name string)
}

// BatchStats describes how a batch of names was produced.
type BatchStats struct {
	Requested  int
	Produced   int
	Attempts   int
	Exhausted  int // draws skipped because a table could not produce a value
	Empty      int // draws that yielded no usable name
	Duplicates int // draws rejected by the filter
}

// DrawUnique calls draw until n names have been accepted or retryFactor*n
// draws have been spent. Names reported by filter as already seen are
// skipped and accepted names are added to it; a nil filter accepts every
// name. emit receives each accepted name in order and may stop the loop by
// returning false.
//
// Producing fewer than n names is not an error. Errors from draw that match
// ErrModelExhausted are counted and skipped; any other error stops the loop
// and is returned.
func DrawUnique(n, retryFactor int, filter Filter, draw func() (string, error), emit func(string) bool) (BatchStats, error) {
	stats := BatchStats{Requested: n}
	budget := n * max(retryFactor, 1)

	for stats.Attempts < budget && stats.Produced < n {
		stats.Attempts++

		name, err := draw()
		if err != nil {
			if errors.Is(err, ErrModelExhausted) {
				stats.Exhausted++
				continue
			}
			return stats, err
		}
		if name == "" {
			stats.Empty++
			continue
		}
		if filter != nil {
			if filter.Test(name) {
				stats.Duplicates++
				continue
			}
			filter.Add(name)
		}

		stats.Produced++
		if !emit(name) {
			break
		}
	}
	return stats, nil
}

// GenerateN draws up to n distinct names, spending at most retryFactor*n
// draws. The returned slice may hold fewer than n names when the model lacks
// diversity or the budget runs out; that is not an error.
func (g *Generator) GenerateN(n int, a Affixes, filter Filter) ([]string, BatchStats, error) {
	names := make([]string, 0, n)
	if filter != nil {
		filter = &loggedFilter{Filter: filter, logger: g.logger}
	}
	stats, err := DrawUnique(n, g.retryFactor, filter,
		func() (string, error) {
			name, err := g.Generate(a)
			if errors.Is(err, ErrModelExhausted) {
				g.logger.Debug("Draw skipped", slog.Any("error", err))
			}
			return name, err
		},
		func(name string) bool {
			names = append(names, name)
			return true
		})

	g.logger.Info("Batch generated",
		slog.Int("requested", stats.Requested),
		slog.Int("produced", stats.Produced),
		slog.Int("attempts", stats.Attempts),
		slog.Int("exhausted", stats.Exhausted),
		slog.Int("duplicates", stats.Duplicates),
	)
	return names, stats, err
}

// loggedFilter reports rejected duplicates at debug level.
type loggedFilter struct {
	Filter
	logger *slog.Logger
}

func (f *loggedFilter) Test(name string) bool {
	seen := f.Filter.Test(name)
	if seen {
		f.logger.Debug("Duplicate skipped", slog.String("name", name))
	}
	return seen
}
