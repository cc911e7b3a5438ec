package sim

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
	"github.com/san-kum/gravsim/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func testConfig(d int) Config {
	cfg := DefaultConfig()
	cfg.Dimensions = d
	cfg.G = 1
	cfg.Softening = 0.5
	cfg.Dt = 0.01
	cfg.Workers = 4
	cfg.LogEvery = 0
	return cfg
}

func uniformBodies(seed uint64, n, d int) []body.Body {
	rnd := rand.New(rand.NewSource(seed))
	bodies := make([]body.Body, n)
	for i := range bodies {
		pos := make(vector.Vector, d)
		for k := range pos {
			pos[k] = 200*rnd.Float64() - 100
		}
		bodies[i] = body.New(i, 1+9*rnd.Float64(), 1, pos, geom.Zero(d))
	}
	return bodies
}

func TestParallelFor(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 1001} {
		for _, workers := range []int{0, 1, 3, 8, 2000} {
			hits := make([]int32, n)
			ParallelFor(n, workers, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("n=%d workers=%d: index %d visited %d times", n, workers, i, h)
				}
			}
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{"defaults", func(*Config) {}, nil},
		{"3D", func(c *Config) { c.Dimensions = 3 }, nil},
		{"1D", func(c *Config) { c.Dimensions = 1 }, ErrDimension},
		{"4D", func(c *Config) { c.Dimensions = 4 }, ErrDimension},
		{"unknown method", func(c *Config) { c.Method = "fmm2" }, ErrUnknownMethod},
		{"negative steps", func(c *Config) { c.Steps = -1 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.err), "got %v", err)
			}
		})
	}
}

func TestNewEvaluator(t *testing.T) {
	for _, method := range Methods {
		cfg := DefaultConfig()
		cfg.Method = method
		eval, err := NewEvaluator(cfg)
		require.NoError(t, err)
		assert.Equal(t, method, eval.Name())
	}

	cfg := DefaultConfig()
	cfg.Method = "nope"
	_, err := NewEvaluator(cfg)
	assert.True(t, errors.Is(err, ErrUnknownMethod))
}

func TestSimulator_CircularOrbit(t *testing.T) {
	const (
		M = 1e20
		r = 1e4
	)
	cfg := DefaultConfig()
	cfg.Dimensions = 2
	cfg.G = 6.674e-11
	cfg.Softening = 1
	cfg.Dt = 0.01
	cfg.Theta = 0.5
	cfg.LogEvery = 0

	v := math.Sqrt(cfg.G * M / r)
	period := 2 * math.Pi * r / v
	cfg.Steps = int(math.Round(period / cfg.Dt))

	start := vector.Vector{r, 0}
	bodies := []body.Body{
		body.New(0, M, 10, vector.Vector{0, 0}, vector.Vector{0, 0}),
		body.New(1, 1, 1, geom.Clone(start), vector.Vector{0, v}),
	}

	s, err := NewFromConfig(cfg)
	require.NoError(t, err)
	res, err := s.Run(context.Background(), bodies)
	require.NoError(t, err)
	require.Len(t, res.Bodies, 2)
	assert.Equal(t, cfg.Steps, res.StepsTaken)

	var orbiter body.Body
	for _, b := range res.Bodies {
		if b.ID == 1 {
			orbiter = b
		}
	}
	assert.Less(t, geom.Distance(orbiter.Position, start), 0.01*r)
	assert.InDelta(t, r, orbiter.Position.Magnitude(), 0.01*r)
	assert.Less(t, res.EnergyDrift, 1e-2)

	// the input population is left untouched
	assert.Equal(t, start, bodies[1].Position)
}

func TestSimulator_TreeForcesTrackDirect(t *testing.T) {
	cfg := testConfig(3)
	cfg.Method = MethodDirect
	cfg.Dt = 0.1
	s, err := NewFromConfig(cfg)
	require.NoError(t, err)

	bh := tree.NewBarnesHut(cfg.Law(), 0.1)
	bodies := uniformBodies(42, 100, 3)

	for step := 0; step < 10; step++ {
		snapshot := body.CloneAll(bodies)
		bh.Build(snapshot)
		approx := make([]vector.Vector, len(snapshot))
		for i := range snapshot {
			approx[i] = bh.ForceOn(&snapshot[i])
		}

		bodies, _, err = s.Step(step, bodies)
		require.NoError(t, err)
		require.Len(t, bodies, 100)

		// error of the population relative to its RMS force magnitude, with a
		// looser per-body bound for bodies near a cancellation point
		var sqErr, sqForce float64
		for i := range bodies {
			e := geom.Distance(approx[i], bodies[i].Force)
			m := bodies[i].Force.Magnitude()
			require.Less(t, e, 2e-3*m, "step %d body %d", step, bodies[i].ID)
			sqErr += e * e
			sqForce += m * m
		}
		require.Less(t, math.Sqrt(sqErr/sqForce), 1e-4, "step %d", step)
	}
}

func TestSimulator_StepWritesForces(t *testing.T) {
	cfg := testConfig(2)
	s, err := NewFromConfig(cfg)
	require.NoError(t, err)

	bodies := []body.Body{
		body.New(0, 1, 1, vector.Vector{-1, 0}, vector.Vector{0, 0}),
		body.New(1, 1, 1, vector.Vector{1, 0}, vector.Vector{0, 0}),
	}
	next, merges, err := s.Step(0, bodies)
	require.NoError(t, err)
	assert.Equal(t, 0, merges)
	assert.Greater(t, next[0].Force[0], 0.0)
	assert.InDelta(t, -next[0].Force[0], next[1].Force[0], 1e-15)
	assert.Greater(t, next[0].Velocity[0], 0.0)
	assert.Greater(t, next[0].Position[0], -1.0)
}

func TestSimulator_NumericFault(t *testing.T) {
	cfg := testConfig(2)
	cfg.Method = MethodDirect
	s, err := NewFromConfig(cfg)
	require.NoError(t, err)

	bodies := []body.Body{
		body.New(7, 1, 1, vector.Vector{math.NaN(), 0}, vector.Vector{0, 0}),
		body.New(8, 1, 1, vector.Vector{1, 0}, vector.Vector{0, 0}),
	}
	_, _, err = s.Step(3, bodies)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNumericFault))

	var fault *NumericFaultError
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, 3, fault.Step)
	assert.Equal(t, 7, fault.BodyID)
	assert.Equal(t, "position", fault.Field)
}

func TestSimulator_RunStopsOnFault(t *testing.T) {
	cfg := testConfig(2)
	cfg.Steps = 10
	s, err := NewFromConfig(cfg)
	require.NoError(t, err)

	bodies := []body.Body{
		body.New(0, 1, 1, vector.Vector{0, 0}, vector.Vector{math.NaN(), 0}),
		body.New(1, 1, 1, vector.Vector{1, 0}, vector.Vector{0, 0}),
	}
	res, err := s.Run(context.Background(), bodies)
	assert.True(t, errors.Is(err, ErrNumericFault))
	require.NotNil(t, res)
	assert.Equal(t, 0, res.StepsTaken)
}

func TestSimulator_ObserversSeeEveryStep(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := NewMockObserver(ctrl)
	gomock.InOrder(
		obs.EXPECT().OnStep(0, gomock.Len(3)),
		obs.EXPECT().OnStep(1, gomock.Len(3)),
		obs.EXPECT().OnStep(2, gomock.Len(3)),
	)

	cfg := testConfig(2)
	cfg.Steps = 3
	s, err := NewFromConfig(cfg)
	require.NoError(t, err)
	s.AddObserver(obs)

	res, err := s.Run(context.Background(), uniformBodies(1, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, res.StepsTaken)
}

func TestSimulator_UnboundedRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := gomock.NewController(t)
	obs := NewMockObserver(ctrl)
	obs.EXPECT().OnStep(gomock.Any(), gomock.Any()).Do(func(step int, _ []body.Body) {
		if step == 4 {
			cancel()
		}
	}).Times(5)

	cfg := testConfig(3)
	cfg.Steps = 0
	s, err := NewFromConfig(cfg)
	require.NoError(t, err)
	s.AddObserver(obs)

	res, err := s.Run(ctx, uniformBodies(2, 20, 3))
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
	assert.Equal(t, 5, res.StepsTaken)
	assert.Len(t, res.Bodies, 20)
}

func TestSimulator_MergesCoincidentBodies(t *testing.T) {
	cfg := testConfig(2)
	cfg.MergeThreshold = 0.5
	cfg.Steps = 1
	s, err := NewFromConfig(cfg)
	require.NoError(t, err)

	bodies := []body.Body{
		body.New(0, 2, 1, vector.Vector{5, 5}, vector.Vector{0, 0}),
		body.New(1, 3, 1, vector.Vector{5, 5}, vector.Vector{0, 0}),
	}
	res, err := s.Run(context.Background(), bodies)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merges)
	require.Len(t, res.Bodies, 1)
	assert.InDelta(t, 5*0.6, res.Bodies[0].Mass, 1e-12)
	assert.Equal(t, -1, res.Bodies[0].ID)
}

func TestSimulator_RejectsDimensionMismatch(t *testing.T) {
	s, err := NewFromConfig(testConfig(3))
	require.NoError(t, err)
	_, err = s.Run(context.Background(), uniformBodies(1, 4, 2))
	assert.True(t, errors.Is(err, ErrDimension))
}

type countMetric struct{ count int }

func (m *countMetric) Name() string                 { return "count" }
func (m *countMetric) Observe(_ int, _ []body.Body) { m.count++ }
func (m *countMetric) Value() float64               { return float64(m.count) }
func (m *countMetric) Reset()                       { m.count = 0 }

func TestSimulator_Metrics(t *testing.T) {
	cfg := testConfig(2)
	cfg.Steps = 10
	s, err := NewFromConfig(cfg)
	require.NoError(t, err)
	metric := &countMetric{}
	s.AddMetric(metric)

	res, err := s.Run(context.Background(), uniformBodies(3, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Metrics["count"])

	// a second run starts from a reset metric
	res, err = s.Run(context.Background(), uniformBodies(3, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Metrics["count"])
}

func TestEnsemble(t *testing.T) {
	var configs []Config
	for _, method := range Methods {
		cfg := testConfig(2)
		cfg.Method = method
		cfg.Steps = 5
		configs = append(configs, cfg)
	}
	results, err := NewEnsemble(configs...).
		WithMetrics(func() []Metric { return []Metric{&countMetric{}} }).
		Run(context.Background(), uniformBodies(4, 30, 2))
	require.NoError(t, err)
	require.Len(t, results, len(Methods))
	for _, res := range results {
		assert.Equal(t, 5, res.StepsTaken)
		assert.Equal(t, 5.0, res.Metrics["count"])
	}

	configs[1].Dimensions = 5
	_, err = NewEnsemble(configs...).Run(context.Background(), uniformBodies(4, 30, 2))
	assert.True(t, errors.Is(err, ErrDimension))
}
