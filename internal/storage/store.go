package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/generator"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
	bodiesFile   = "bodies.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return errors.Wrapf(os.MkdirAll(s.baseDir, 0755), "create %s", s.baseDir)
}

type RunMetadata struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Timestamp      time.Time          `json:"timestamp"`
	Method         string             `json:"method"`
	Dimensions     int                `json:"dimensions"`
	Dt             float64            `json:"dt"`
	Theta          float64            `json:"theta"`
	Generator      string             `json:"generator"`
	Seed           uint64             `json:"seed"`
	InitialBodies  int                `json:"initial_bodies"`
	FinalBodies    int                `json:"final_bodies"`
	Steps          int                `json:"steps"`
	Merges         int                `json:"merges"`
	EnergyDrift    float64            `json:"energy_drift"`
	StepsPerSecond float64            `json:"steps_per_second"`
	Metrics        map[string]float64 `json:"metrics"`
}

// Run is everything Save persists about a finished simulation.
type Run struct {
	Name          string
	Config        sim.Config
	Generator     generator.Params
	InitialBodies int
	Result        *sim.Result
	Series        []metrics.Sample
}

func (s *Store) Save(run Run) (string, error) {
	name := run.Name
	if name == "" {
		name = run.Generator.Kind
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixMilli())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", errors.Wrapf(err, "create run %s", runID)
	}

	res := run.Result
	meta := RunMetadata{
		ID:             runID,
		Name:           name,
		Timestamp:      now,
		Method:         run.Config.Method,
		Dimensions:     run.Config.Dimensions,
		Dt:             run.Config.Dt,
		Theta:          run.Config.Theta,
		Generator:      run.Generator.Kind,
		Seed:           run.Generator.Seed,
		InitialBodies:  run.InitialBodies,
		FinalBodies:    len(res.Bodies),
		Steps:          res.StepsTaken,
		Merges:         res.Merges,
		EnergyDrift:    res.EnergyDrift,
		StepsPerSecond: res.StepsPerSecond(),
		Metrics:        res.Metrics,
	}

	if err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, seriesFile), func(w io.Writer) error {
		return WriteSeriesCSV(w, run.Series)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, bodiesFile), func(w io.Writer) error {
		return WriteBodiesCSV(w, res.Bodies)
	}); err != nil {
		return "", err
	}
	return runID, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// List returns the metadata of every stored run, oldest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, errors.Wrapf(err, "list %s", s.baseDir)
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(s.Path(runID, metadataFile))
	if err != nil {
		return nil, errors.Wrapf(err, "load run %s", runID)
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "decode run %s", runID)
	}
	return &meta, nil
}

// Path returns the location of a file inside a run directory.
func (s *Store) Path(runID, file string) string {
	return filepath.Join(s.baseDir, runID, file)
}

func (s *Store) LoadSeries(runID string) ([]metrics.Sample, error) {
	records, err := readCSV(s.Path(runID, seriesFile))
	if err != nil {
		return nil, err
	}
	samples := make([]metrics.Sample, 0, len(records))
	for i, rec := range records {
		if len(rec) != 5 {
			return nil, errors.Errorf("series row %d: expected 5 fields, got %d", i+1, len(rec))
		}
		var p parser
		samples = append(samples, metrics.Sample{
			Step:      p.toInt(rec[0]),
			Bodies:    p.toInt(rec[1]),
			TotalMass: p.toFloat(rec[2]),
			Energy:    p.toFloat(rec[3]),
			Momentum:  p.toFloat(rec[4]),
		})
		if p.err != nil {
			return nil, errors.Wrapf(p.err, "series row %d", i+1)
		}
	}
	return samples, nil
}

func (s *Store) LoadBodies(runID string) ([]body.Body, error) {
	records, err := readCSV(s.Path(runID, bodiesFile))
	if err != nil {
		return nil, err
	}
	bodies := make([]body.Body, 0, len(records))
	for i, rec := range records {
		// id, mass, radius, then D position and D velocity columns
		d := (len(rec) - 3) / 2
		if d < 1 || len(rec) != 3+2*d {
			return nil, errors.Errorf("bodies row %d: malformed record of %d fields", i+1, len(rec))
		}
		var p parser
		id, mass, radius := p.toInt(rec[0]), p.toFloat(rec[1]), p.toFloat(rec[2])
		pos, vel := make(vector.Vector, d), make(vector.Vector, d)
		for k := 0; k < d; k++ {
			pos[k] = p.toFloat(rec[3+k])
			vel[k] = p.toFloat(rec[3+d+k])
		}
		if p.err != nil {
			return nil, errors.Wrapf(p.err, "bodies row %d", i+1)
		}
		bodies = append(bodies, body.New(id, mass, radius, pos, vel))
	}
	return bodies, nil
}

// readCSV returns every record after the header.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

type parser struct{ err error }

func (p *parser) toFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) toInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func WriteSeriesCSV(w io.Writer, samples []metrics.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "bodies", "total_mass", "energy", "momentum"}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.Itoa(s.Step),
			strconv.Itoa(s.Bodies),
			formatFloat(s.TotalMass),
			formatFloat(s.Energy),
			formatFloat(s.Momentum),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteBodiesCSV(w io.Writer, bodies []body.Body) error {
	cw := csv.NewWriter(w)
	d := 2
	if len(bodies) > 0 {
		d = bodies[0].Dimensions()
	}
	header := []string{"id", "mass", "radius"}
	for k := 0; k < d; k++ {
		header = append(header, fmt.Sprintf("x%d", k))
	}
	for k := 0; k < d; k++ {
		header = append(header, fmt.Sprintf("v%d", k))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range bodies {
		b := &bodies[i]
		row := []string{strconv.Itoa(b.ID), formatFloat(b.Mass), formatFloat(b.Radius)}
		for _, x := range b.Position {
			row = append(row, formatFloat(x))
		}
		for _, v := range b.Velocity {
			row = append(row, formatFloat(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BodyRecord is the exported form of a body.
type BodyRecord struct {
	ID       int       `json:"id"`
	Mass     float64   `json:"mass"`
	Radius   float64   `json:"radius"`
	Position []float64 `json:"position"`
	Velocity []float64 `json:"velocity"`
}

type ExportData struct {
	Run    RunMetadata      `json:"run"`
	Series []metrics.Sample `json:"series"`
	Bodies []BodyRecord     `json:"bodies"`
}

// ExportJSON writes a stored run as a single JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}
	bodies, err := s.LoadBodies(runID)
	if err != nil {
		return err
	}

	data := ExportData{Run: *meta, Series: series, Bodies: make([]BodyRecord, len(bodies))}
	for i, b := range bodies {
		data.Bodies[i] = BodyRecord{
			ID:       b.ID,
			Mass:     b.Mass,
			Radius:   b.Radius,
			Position: b.Position,
			Velocity: b.Velocity,
		}
	}
	if data.Series == nil {
		data.Series = []metrics.Sample{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(data), "encode export")
}
