package markov

import (
	"context"
	"log/slog"
)

// Stream draws up to n distinct names like GenerateN and sends them on the
// returned channel as they are accepted. The channel is closed once the
// batch is complete, the draw budget is spent, or ctx is cancelled.
//
// The Generator must not be used by anyone else until the channel is closed.
func (g *Generator) Stream(ctx context.Context, n int, a Affixes, filter Filter) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		stats, err := DrawUnique(n, g.retryFactor, filter,
			func() (string, error) {
				if err := ctx.Err(); err != nil {
					return "", err
				}
				return g.Generate(a)
			},
			func(name string) bool {
				select {
				case <-ctx.Done():
					return false
				case out <- name:
					return true
				}
			})

		if err != nil && ctx.Err() == nil {
			g.logger.ErrorContext(ctx, "Generation stream failed", slog.Any("error", err))
			return
		}
		if ctx.Err() != nil {
			g.logger.DebugContext(ctx, "Generation stream cancelled by context",
				slog.Int("produced", stats.Produced),
			)
			return
		}
		g.logger.DebugContext(ctx, "Generation stream completed",
			slog.Int("requested", stats.Requested),
			slog.Int("produced", stats.Produced),
			slog.Int("attempts", stats.Attempts),
		)
	}()

	return out
}
