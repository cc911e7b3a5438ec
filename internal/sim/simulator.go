package sim

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/gravity"
	"github.com/san-kum/gravsim/internal/merge"
)

// Simulator advances a population with a fixed force evaluator. A Simulator
// is not safe for concurrent use; run several for parallel experiments.
type Simulator struct {
	cfg       Config
	eval      gravity.Evaluator
	ids       *merge.IDSource
	metrics   []Metric
	observers []Observer
}

func New(cfg Config, eval gravity.Evaluator) *Simulator {
	return &Simulator{
		cfg:       cfg,
		eval:      eval,
		ids:       merge.NewIDSource(),
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

// NewFromConfig validates cfg and builds the evaluator it names.
func NewFromConfig(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eval, err := NewEvaluator(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, eval), nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Config() Config               { return s.cfg }
func (s *Simulator) Evaluator() gravity.Evaluator { return s.eval }

// Step advances bodies by one time step in place and returns the population
// after merging together with the number of merges.
//
// The phases are separated by barriers: the evaluator is built on the
// calling goroutine, then every force is computed in parallel, then every
// body is kicked and drifted in parallel, then the merge pass runs. A NaN
// left in any body afterwards is reported as a *NumericFaultError.
func (s *Simulator) Step(step int, bodies []body.Body) ([]body.Body, int, error) {
	s.eval.Build(bodies)

	ParallelFor(len(bodies), s.cfg.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			bodies[i].Force = s.eval.ForceOn(&bodies[i])
		}
	})

	dt := s.cfg.Dt
	ParallelFor(len(bodies), s.cfg.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			bodies[i].Kick(dt)
			bodies[i].Drift(dt)
		}
	})

	next, merges := merge.Pass(bodies, s.cfg.Merge(), s.ids)

	if s.cfg.ValidateState {
		for i := range next {
			if field, ok := next[i].CheckFinite(); !ok {
				return next, merges, &NumericFaultError{Step: step, BodyID: next[i].ID, Field: field}
			}
		}
	}
	return next, merges, nil
}

// Run steps a copy of bodies until Config.Steps is reached or ctx is done.
// The context is only checked between steps. On cancellation the partial
// result is returned together with ctx.Err().
func (s *Simulator) Run(ctx context.Context, bodies []body.Body) (*Result, error) {
	for i := range bodies {
		if bodies[i].Dimensions() != s.cfg.Dimensions {
			return nil, errors.Wrapf(ErrDimension, "body %d has %d dimensions, want %d",
				bodies[i].ID, bodies[i].Dimensions(), s.cfg.Dimensions)
		}
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	population := body.CloneAll(bodies)
	s.ids = merge.NewIDSourceFor(population)
	law := s.cfg.Law()
	initialEnergy := law.TotalEnergy(population)

	result := &Result{Metrics: make(map[string]float64)}
	start := time.Now()
	log.Info().Msgf("simulating %d bodies in %dD with %s (theta=%.2f, dt=%g, steps=%d)",
		len(population), s.cfg.Dimensions, s.eval.Name(), s.cfg.Theta, s.cfg.Dt, s.cfg.Steps)

	finish := func() {
		result.Bodies = population
		result.Elapsed = time.Since(start)
		if initialEnergy != 0 {
			result.EnergyDrift = math.Abs(law.TotalEnergy(population)-initialEnergy) / math.Abs(initialEnergy)
		}
		for _, m := range s.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}

	for step := 0; s.cfg.Steps == 0 || step < s.cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			finish()
			log.Info().Msgf("simulation stopped after %d steps", result.StepsTaken)
			return result, ctx.Err()
		default:
		}

		next, merges, err := s.Step(step, population)
		population = next
		if err != nil {
			log.Error().Err(err).Int("step", step).Msg("simulation diverged")
			finish()
			return result, err
		}

		result.StepsTaken++
		result.Merges += merges

		for _, m := range s.metrics {
			m.Observe(step, population)
		}
		for _, obs := range s.observers {
			obs.OnStep(step, population)
		}

		if s.cfg.LogEvery > 0 && (step+1)%s.cfg.LogEvery == 0 {
			log.Debug().Int("step", step+1).Int("bodies", len(population)).
				Int("merges", result.Merges).Msg("progress")
		}
	}

	finish()
	log.Info().Msgf("simulation finished: %d steps, %d bodies, %d merges in %v",
		result.StepsTaken, len(population), result.Merges, result.Elapsed)
	return result, nil
}
