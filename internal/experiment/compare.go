package experiment

import (
	"context"
	"math"

	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
	"github.com/san-kum/gravsim/internal/gravity"
	"github.com/san-kum/gravsim/internal/sim"
)

// ForceComparison summarizes one evaluator against the direct sum.
type ForceComparison struct {
	Method string
	Theta  float64
	// RMSError is sqrt(Σ|F - F_direct|² / Σ|F_direct|²).
	RMSError float64
	// MaxError is the largest per-body error relative to the RMS direct force.
	MaxError float64
	Visits   int
	// DirectVisits is the number of interactions the direct sum evaluates.
	DirectVisits int
}

// CompareForces evaluates bodies with every tree method at each theta and
// measures the error against a direct sum.
func CompareForces(cfg sim.Config, bodies []body.Body, thetas []float64) ([]ForceComparison, error) {
	direct := gravity.NewDirect(cfg.Law())
	direct.Build(bodies)
	want := make([]vector.Vector, len(bodies))
	var sqForce float64
	directVisits := 0
	for i := range bodies {
		f, v := direct.ForceOnCounted(&bodies[i])
		want[i] = f
		m := f.Magnitude()
		sqForce += m * m
		directVisits += v
	}
	rmsForce := math.Sqrt(sqForce / math.Max(float64(len(bodies)), 1))

	var out []ForceComparison
	for _, method := range []string{sim.MethodBarnesHut, sim.MethodMultipole} {
		for _, theta := range thetas {
			c := cfg
			c.Method = method
			c.Theta = theta
			eval, err := sim.NewEvaluator(c)
			if err != nil {
				return nil, err
			}
			counter, ok := eval.(gravity.Counter)
			if !ok {
				continue
			}
			eval.Build(bodies)

			res := ForceComparison{Method: method, Theta: theta, DirectVisits: directVisits}
			var sqErr float64
			for i := range bodies {
				got, v := counter.ForceOnCounted(&bodies[i])
				e := geom.Distance(got, want[i])
				sqErr += e * e
				res.Visits += v
				if rmsForce > 0 {
					res.MaxError = math.Max(res.MaxError, e/rmsForce)
				}
			}
			if sqForce > 0 {
				res.RMSError = math.Sqrt(sqErr / sqForce)
			}
			out = append(out, res)
		}
	}
	return out, nil
}

// Bench runs bodies once per method, concurrently, splitting the workers
// between the runs. Results are in the order of methods.
func Bench(ctx context.Context, cfg sim.Config, bodies []body.Body, methods []string) ([]*sim.Result, error) {
	configs := make([]sim.Config, len(methods))
	for i, method := range methods {
		c := cfg
		c.Method = method
		c.Workers = max(1, cfg.Workers/len(methods))
		configs[i] = c
	}
	return sim.NewEnsemble(configs...).Run(ctx, bodies)
}
