package sim

import (
	"time"

	"github.com/san-kum/gravsim/internal/body"
)

// Metric accumulates a scalar over a run. Observe is called once per step
// with the post-step population, which it must not modify or retain.
type Metric interface {
	Name() string
	Observe(step int, bodies []body.Body)
	Value() float64
	Reset()
}

// Observer receives the population after every step. Implementations must
// treat bodies as read-only and copy anything they keep.
//
//go:generate mockgen -destination mock_observer.go -package sim . Observer
type Observer interface {
	OnStep(step int, bodies []body.Body)
}

type Result struct {
	Bodies     []body.Body
	StepsTaken int
	Merges     int
	Metrics    map[string]float64
	Elapsed    time.Duration
	// EnergyDrift is |E_end - E_start| / |E_start|, zero when E_start is zero.
	EnergyDrift float64
}

// StepsPerSecond returns the throughput of the run.
func (r *Result) StepsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.StepsTaken) / r.Elapsed.Seconds()
}
