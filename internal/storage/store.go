package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/driftsim/internal/config"
	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/sim"
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrAmbiguousRun = errors.New("storage: run id prefix matches several runs")
)

const (
	metadataFile     = "metadata.json"
	trajectoriesFile = "trajectories.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type MoverSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	StartTime  drift.Seconds      `json:"start_time"`
	TimeStep   drift.Seconds      `json:"time_step"`
	Duration   drift.Seconds      `json:"duration"`
	Uncertain  bool               `json:"uncertain"`
	NumLEs     int                `json:"num_les"`
	StepsTaken int                `json:"steps_taken"`
	Movers     []MoverSummary     `json:"movers"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Trajectories holds LE positions per recorded time. Uncertain is nil for
// forecast-only runs.
type Trajectories struct {
	Times     []drift.Seconds        `json:"times"`
	Forecast  [][]drift.WorldPoint3D `json:"forecast"`
	Uncertain [][]drift.WorldPoint3D `json:"uncertain,omitempty"`
}

func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       cfg.Name,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		StartTime:  cfg.StartTime,
		TimeStep:   cfg.TimeStep,
		Duration:   cfg.Duration,
		Uncertain:  cfg.Uncertain,
		NumLEs:     cfg.Spill.NumLEs,
		StepsTaken: result.StepsTaken,
		Metrics:    result.Metrics,
	}
	for _, m := range cfg.Movers {
		meta.Movers = append(meta.Movers, MoverSummary{Name: m.Name, Kind: m.Kind})
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTrajectories(filepath.Join(runDir, trajectoriesFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrajectories(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "set", "le", "lat", "long", "z"}); err != nil {
		return err
	}

	writeFrames := func(set string, frames [][]drift.WorldPoint3D) error {
		for i, frame := range frames {
			if i >= len(result.Times) {
				break
			}
			t := strconv.FormatInt(int64(result.Times[i]), 10)
			for le, p := range frame {
				row := []string{
					t,
					set,
					strconv.Itoa(le),
					strconv.FormatFloat(p.Lat, 'f', 7, 64),
					strconv.FormatFloat(p.Long, 'f', 7, 64),
					strconv.FormatFloat(p.Z, 'f', 3, 64),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := writeFrames("forecast", result.Forecast); err != nil {
		return err
	}
	if err := writeFrames("uncertain", result.Uncertain); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
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

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return runs, nil
}

// Resolve expands a unique run id prefix to the full id.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}
	if _, err := uuid.Parse(prefix); err == nil {
		return prefix, nil
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
		}
		return "", err
	}
	var match string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
		}
		match = entry.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrajectories(runID string) (*Trajectories, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 6

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := &Trajectories{}
	frameIndex := make(map[drift.Seconds]int)
	for i, record := range records {
		if i == 0 {
			continue
		}
		ts, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: time: %w", i, err)
		}
		le, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: le: %w", i, err)
		}
		var p drift.WorldPoint3D
		for j, dst := range []*float64{&p.Lat, &p.Long, &p.Z} {
			if *dst, err = strconv.ParseFloat(record[3+j], 64); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}

		t := drift.Seconds(ts)
		idx, ok := frameIndex[t]
		if !ok {
			idx = len(tr.Times)
			frameIndex[t] = idx
			tr.Times = append(tr.Times, t)
		}

		var frames *[][]drift.WorldPoint3D
		switch record[1] {
		case "forecast":
			frames = &tr.Forecast
		case "uncertain":
			frames = &tr.Uncertain
		default:
			return nil, fmt.Errorf("row %d: unknown set %q", i, record[1])
		}
		for len(*frames) <= idx {
			*frames = append(*frames, nil)
		}
		frame := (*frames)[idx]
		for len(frame) <= le {
			frame = append(frame, drift.WorldPoint3D{})
		}
		frame[le] = p
		(*frames)[idx] = frame
	}
	return tr, nil
}

// ExportJSON writes a run's metadata and trajectories as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tr, err := s.LoadTrajectories(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Metadata     *RunMetadata  `json:"metadata"`
		Trajectories *Trajectories `json:"trajectories"`
	}{meta, tr})
}
