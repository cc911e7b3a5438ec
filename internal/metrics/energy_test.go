package metrics

import (
	"math"
	"testing"

	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/gravity"
	"github.com/stretchr/testify/assert"
)

var law = gravity.Law{G: 1, Softening: 0, NormEpsilon: 1e-12}

func pair(vx float64) []body.Body {
	return []body.Body{
		body.New(0, 1, 1, vector.Vector{0, 0}, vector.Vector{vx, 0}),
		body.New(1, 1, 1, vector.Vector{2, 0}, vector.Vector{-vx, 0}),
	}
}

func TestEnergy(t *testing.T) {
	m := NewEnergy(law)

	bodies := pair(1)
	m.Observe(0, bodies)
	// ½·1·1² twice, minus 1·1/2
	expected := 1.0 - 0.5
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected energy %f, got %f", expected, m.Value())
	}

	m.Observe(1, pair(0))
	if math.Abs(m.Value()-(expected-0.5)/2) > 1e-12 {
		t.Errorf("expected mean energy %f, got %f", (expected-0.5)/2, m.Value())
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy(law)
	m.Observe(0, pair(1))
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift(law)
	m.Observe(0, pair(0)) // E = -0.5
	m.Observe(1, pair(0.5))
	m.Observe(2, pair(0.25))

	// worst step: E = 0.25 - 0.5 = -0.25, drift 0.5
	assert.InDelta(t, 0.5, m.Value(), 1e-12)

	m.Reset()
	assert.Equal(t, 0.0, m.Value())
}

func TestStability(t *testing.T) {
	s := NewStability(5)
	s.Observe(0, pair(0))
	far := pair(0)
	far[1].Position = vector.Vector{100, 0}
	s.Observe(1, far)

	assert.InDelta(t, 0.5, s.Value(), 1e-12)
	s.Reset()
	assert.Equal(t, 1.0, s.Value())
}

func TestPopulationMetrics(t *testing.T) {
	bodies := []body.Body{
		body.New(0, 2, 1, vector.Vector{0, 0, 0}, vector.Vector{1, 0, 0}),
		body.New(1, 3, 1, vector.Vector{5, 0, 0}, vector.Vector{0, 2, 0}),
		body.New(2, 0, 1, vector.Vector{100, 0, 0}, vector.Vector{0, 0, 0}),
	}

	com, ok := CenterOfMass(bodies)
	assert.True(t, ok)
	assert.InDeltaSlice(t, []float64{3, 0, 0}, []float64(com), 1e-12)

	_, ok = CenterOfMass(nil)
	assert.False(t, ok)

	for _, tt := range []struct {
		metric interface {
			Name() string
			Observe(int, []body.Body)
			Value() float64
		}
		want float64
	}{
		{NewMomentum(), math.Sqrt(4 + 36)},
		{NewBodyCount(), 3},
		{NewTotalMass(), 5},
	} {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			tt.metric.Observe(0, bodies)
			assert.InDelta(t, tt.want, tt.metric.Value(), 1e-12)
		})
	}
}

func TestSeries(t *testing.T) {
	s := NewSeries(2, &law)
	for step := 0; step < 5; step++ {
		s.OnStep(step, pair(1))
	}
	samples := s.Samples()
	assert.Len(t, samples, 3)
	assert.Equal(t, []float64{0, 2, 4}, Column(samples, func(s Sample) float64 { return float64(s.Step) }))
	assert.Equal(t, 2, samples[0].Bodies)
	assert.InDelta(t, 0.5, samples[0].Energy, 1e-12)
	assert.InDelta(t, 0.0, samples[0].Momentum, 1e-12)

	s.Reset()
	assert.Empty(t, s.Samples())

	noEnergy := NewSeries(0, nil)
	noEnergy.OnStep(0, pair(1))
	assert.Equal(t, 0.0, noEnergy.Samples()[0].Energy)
}
