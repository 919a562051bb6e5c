package bench

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// SweepResult holds metrics for one lookahead value.
type SweepResult struct {
	Lookahead int
	Metrics   Metrics
}

// SweepLookaheads generates lookahead values from min to max inclusive.
func SweepLookaheads(min, max, step int) []int {
	if step <= 0 || min < 0 {
		return nil
	}
	var values []int
	for n := min; n <= max; n += step {
		values = append(values, n)
	}
	return values
}

// EvaluateCorpus evaluates every talk with cfg and aggregates the results.
func EvaluateCorpus(ctx context.Context, talks []*Talk, cfg Config) (Metrics, error) {
	ms := make([]Metrics, 0, len(talks))
	for _, talk := range talks {
		m, err := EvaluateTalk(ctx, talk, cfg)
		if err != nil {
			return Metrics{}, err
		}
		ms = append(ms, m)
	}
	return Aggregate(ms, cfg), nil
}

// Sweep evaluates each lookahead concurrently and returns results sorted by
// weighted score, best first. Ties go to the lower mean delay.
func Sweep(ctx context.Context, talks []*Talk, cfg Config, lookaheads []int) ([]SweepResult, error) {
	results := make([]SweepResult, len(lookaheads))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, lookahead := range lookaheads {
		g.Go(func() error {
			c := cfg
			c.Lookahead = lookahead
			m, err := EvaluateCorpus(ctx, talks, c)
			if err != nil {
				return err
			}
			results[i] = SweepResult{Lookahead: lookahead, Metrics: m}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Metrics, results[j].Metrics
		if a.WeightedScore != b.WeightedScore {
			return a.WeightedScore > b.WeightedScore
		}
		return a.MeanDelay < b.MeanDelay
	})

	return results, nil
}
