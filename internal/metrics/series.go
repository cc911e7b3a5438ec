package metrics

import (
	"sync"

	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/gravity"
)

// Sample is one row of a Series.
type Sample struct {
	Step      int     `json:"step"`
	Bodies    int     `json:"bodies"`
	TotalMass float64 `json:"total_mass"`
	Energy    float64 `json:"energy"`
	Momentum  float64 `json:"momentum"`
}

// Series records a Sample every Every steps. It is a sim.Observer. Energy
// is only computed when a law is given, since it costs O(n²) per sample.
type Series struct {
	mu      sync.Mutex
	every   int
	law     *gravity.Law
	samples []Sample
}

func NewSeries(every int, law *gravity.Law) *Series {
	if every < 1 {
		every = 1
	}
	return &Series{every: every, law: law}
}

func (s *Series) OnStep(step int, bodies []body.Body) {
	if step%s.every != 0 {
		return
	}
	sample := Sample{
		Step:      step,
		Bodies:    len(bodies),
		TotalMass: body.TotalMass(bodies),
	}
	if p := TotalMomentum(bodies); p != nil {
		sample.Momentum = p.Magnitude()
	}
	if s.law != nil {
		sample.Energy = s.law.TotalEnergy(bodies)
	}

	s.mu.Lock()
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
}

// Samples returns a copy of the recorded samples.
func (s *Series) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s *Series) Reset() {
	s.mu.Lock()
	s.samples = nil
	s.mu.Unlock()
}

// Column extracts one field of every sample, e.g. for plotting.
func Column(samples []Sample, field func(Sample) float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = field(s)
	}
	return out
}
