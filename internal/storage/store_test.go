package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/generator"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(name string) Run {
	return Run{
		Name:          name,
		Config:        sim.DefaultConfig(),
		Generator:     generator.DefaultParams(),
		InitialBodies: 3,
		Result: &sim.Result{
			Bodies: []body.Body{
				body.New(0, 1.5e10, 2, vector.Vector{1.25, -3}, vector.Vector{0.1, 0}),
				body.New(-1, 3.000000001e12, 9, vector.Vector{-7e3, 1.0 / 3}, vector.Vector{0, -2.5}),
			},
			StepsTaken:  100,
			Merges:      1,
			Elapsed:     2 * time.Second,
			EnergyDrift: 1e-5,
			Metrics:     map[string]float64{"bodies": 2},
		},
		Series: []metrics.Sample{
			{Step: 10, Bodies: 3, TotalMass: 6e12, Energy: -1.5, Momentum: 0.25},
			{Step: 20, Bodies: 2, TotalMass: 3.6e12, Energy: -1.25, Momentum: 0.25},
		},
	}
}

func TestStore_SaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	run := testRun("disc")
	runID, err := st.Save(run)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "disc", meta.Name)
	assert.Equal(t, "barneshut", meta.Method)
	assert.Equal(t, uint64(1), meta.Seed)
	assert.Equal(t, 3, meta.InitialBodies)
	assert.Equal(t, 2, meta.FinalBodies)
	assert.Equal(t, 100, meta.Steps)
	assert.Equal(t, 50.0, meta.StepsPerSecond)
	assert.Equal(t, 2.0, meta.Metrics["bodies"])

	series, err := st.LoadSeries(runID)
	require.NoError(t, err)
	assert.Equal(t, run.Series, series)

	bodies, err := st.LoadBodies(runID)
	require.NoError(t, err)
	require.Len(t, bodies, 2)
	for i, want := range run.Result.Bodies {
		got := bodies[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Mass, got.Mass)
		assert.Equal(t, want.Radius, got.Radius)
		assert.Equal(t, want.Position, got.Position)
		assert.Equal(t, want.Velocity, got.Velocity)
	}
}

func TestStore_EmptySeries(t *testing.T) {
	st := New(t.TempDir())
	run := testRun("quiet")
	run.Series = nil
	runID, err := st.Save(run)
	require.NoError(t, err)

	series, err := st.LoadSeries(runID)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := New(filepath.Join(dir, "missing")).List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = st.Save(testRun("first"))
	require.NoError(t, err)
	_, err = st.Save(testRun("second"))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "stray"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	names := []string{runs[0].Name, runs[1].Name}
	assert.ElementsMatch(t, []string{"first", "second"}, names)
}

func TestStore_LoadErrors(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("nope")
	assert.Error(t, err)
	_, err = st.LoadSeries("nope")
	assert.Error(t, err)

	runID, err := st.Save(testRun("broken"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(st.Path(runID, bodiesFile), []byte("id,mass\n1,2\n"), 0644))
	_, err = st.LoadBodies(runID)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(st.Path(runID, seriesFile), []byte("h\nx,1,2,3,4\n"), 0644))
	_, err = st.LoadSeries(runID)
	assert.Error(t, err)
}

func TestStore_ExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(testRun("export"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(runID, &buf))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, runID, data.Run.ID)
	assert.Len(t, data.Series, 2)
	require.Len(t, data.Bodies, 2)
	assert.Equal(t, -1, data.Bodies[1].ID)
	assert.Equal(t, []float64{0, -2.5}, data.Bodies[1].Velocity)
}
