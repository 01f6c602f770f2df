// Package probe checks which names resolve in DNS. It is used to measure how
// many generated names hit real hosts.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrInvalidName is reported in Result.Err for names that are not valid
// domain names. No query is sent for them.
var ErrInvalidName = errors.New("probe: invalid domain name")

// Config configures a Prober.
type Config struct {
	// Server is the resolver address, host:port.
	Server string
	// Type is the query type. Default: dns.TypeA.
	Type uint16
	// QPS limits queries per second over all workers; Burst is the limiter
	// bucket size. QPS <= 0 disables limiting.
	QPS   float64
	Burst int
	// Workers bounds the number of queries in flight. Default: 1.
	Workers int
	// Timeout applies to each query. Default: 2s.
	Timeout time.Duration
}

// Result is the outcome of probing one name.
type Result struct {
	Name    string `json:"name"`
	Exists  bool   `json:"exists"`
	Rcode   string `json:"rcode,omitempty"`
	Answers int    `json:"answers"`
	Err     error  `json:"-"`
}

// Prober sends one query per name to a single resolver.
type Prober struct {
	config  Config
	client  *dns.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New returns a Prober for cfg.
func New(cfg Config) (*Prober, error) {
	if cfg.Server == "" {
		return nil, errors.New("probe: no resolver configured")
	}
	if cfg.Type == 0 {
		cfg.Type = dns.TypeA
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	limit := rate.Inf
	if cfg.QPS > 0 {
		limit = rate.Limit(cfg.QPS)
	}
	burst := max(cfg.Burst, 1)

	return &Prober{
		config:  cfg,
		client:  &dns.Client{Net: "udp", Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the Prober. By default, all logs are discarded.
func (p *Prober) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Lookup sends a single query for name. Network failures are returned in
// Result.Err rather than as an error; the error return is reserved for
// context cancellation.
func (p *Prober) Lookup(ctx context.Context, name string) (Result, error) {
	res := Result{Name: name}
	if !ValidName(name) {
		res.Err = ErrInvalidName
		return res, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return res, err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), p.config.Type)
	msg.RecursionDesired = true

	resp, rtt, err := p.client.ExchangeContext(ctx, msg, p.config.Server)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Err = fmt.Errorf("query %s: %w", name, err)
		return res, nil
	}

	res.Rcode = dns.RcodeToString[resp.Rcode]
	res.Answers = len(resp.Answer)
	res.Exists = resp.Rcode == dns.RcodeSuccess && len(resp.Answer) > 0

	p.logger.DebugContext(ctx, "Name probed",
		slog.String("name", name),
		slog.String("rcode", res.Rcode),
		slog.Int("answers", res.Answers),
		slog.Duration("rtt", rtt),
	)
	return res, nil
}

// Run probes every name received on names and sends one Result per name to
// out, in completion order. It returns when names is closed and every probe
// has finished, or when ctx is cancelled. out is not closed.
func (p *Prober) Run(ctx context.Context, names <-chan string, out chan<- Result) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	var sent int
	for {
		var name string
		var ok bool
		select {
		case <-ctx.Done():
			if err := g.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case name, ok = <-names:
		}
		if !ok {
			break
		}

		sent++
		g.Go(func() error {
			res, err := p.Lookup(ctx, name)
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- res:
				return nil
			}
		})
	}

	err := g.Wait()
	p.logger.InfoContext(ctx, "Probe run completed",
		slog.String("server", p.config.Server),
		slog.Int("names", sent),
	)
	return err
}

// ValidName reports whether name is a syntactically valid domain name.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	_, ok := dns.IsDomainName(name)
	return ok
}
