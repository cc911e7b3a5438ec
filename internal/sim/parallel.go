package sim

import (
	"context"
	"runtime"

	"github.com/san-kum/gravsim/internal/body"
	"golang.org/x/sync/errgroup"
)

// ParallelFor splits [0, n) into at most workers contiguous chunks and runs
// fn on each concurrently. It returns once every chunk has finished.
func ParallelFor(n, workers int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		start, end := start, min(start+chunk, n)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// Ensemble runs one population under several configurations at once, e.g.
// to compare force methods on identical initial conditions.
type Ensemble struct {
	configs []Config
	metrics func() []Metric
}

func NewEnsemble(configs ...Config) *Ensemble {
	return &Ensemble{configs: configs}
}

// WithMetrics installs a factory called once per member, since metrics are
// stateful and cannot be shared between concurrent runs.
func (e *Ensemble) WithMetrics(factory func() []Metric) *Ensemble {
	e.metrics = factory
	return e
}

// Run returns one result per configuration, in order. The first error
// cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context, bodies []body.Body) ([]*Result, error) {
	results := make([]*Result, len(e.configs))
	g, ctx := errgroup.WithContext(ctx)
	for i, cfg := range e.configs {
		i, cfg := i, cfg
		g.Go(func() error {
			s, err := NewFromConfig(cfg)
			if err != nil {
				return err
			}
			if e.metrics != nil {
				for _, m := range e.metrics() {
					s.AddMetric(m)
				}
			}
			results[i], err = s.Run(ctx, bodies)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
