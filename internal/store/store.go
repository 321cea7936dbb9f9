// Package store persists tracking runs as one directory per run:
// metadata.json describes the run, states.csv holds the recorded
// cycles.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/sim"
	"github.com/san-kum/mectrack/internal/traj"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store { return &Store{baseDir: baseDir} }

func (s *Store) Init() error { return os.MkdirAll(s.baseDir, 0755) }

type RunMeta struct {
	ID         string             `json:"id"`
	Trajectory string             `json:"trajectory"`
	Mode       string             `json:"mode"`
	Timestamp  time.Time          `json:"timestamp"`
	Period     float64            `json:"period"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Metrics    map[string]float64 `json:"metrics"`
}

var frameHeader = []string{
	"time",
	"ref_x", "ref_y", "ref_heading", "ref_vx", "ref_vy", "ref_omega",
	"x", "y", "heading",
	"cmd_vx", "cmd_vy", "cmd_omega",
}

// Save writes one run and returns its ID.
func (s *Store) Save(trajectory, mode string, period, duration float64, res *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", trajectory, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMeta{
		ID:         runID,
		Trajectory: trajectory,
		Mode:       mode,
		Timestamp:  time.Now(),
		Period:     period,
		Duration:   duration,
		Steps:      res.Steps(),
		Metrics:    res.Metrics,
	}
	if err := writeMeta(filepath.Join(runDir, "metadata.json"), &meta); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, "states.csv"), res); err != nil {
		return "", err
	}
	return runID, nil
}

func writeMeta(path string, meta *RunMeta) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeFrames(path string, res *sim.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	w := csv.NewWriter(f)
	if err := w.Write(frameHeader); err != nil {
		return err
	}
	for i := range res.Times {
		row := make([]string, 0, len(frameHeader))
		for _, v := range []float64{
			res.Times[i],
			res.Refs[i].X, res.Refs[i].Y, res.Refs[i].Heading,
			res.Refs[i].VX, res.Refs[i].VY, res.Refs[i].Omega,
			res.Poses[i].X, res.Poses[i].Y, res.Poses[i].Heading,
			res.Commands[i].VX, res.Commands[i].VY, res.Commands[i].Omega,
		} {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every stored run, oldest first. Stray
// directories without readable metadata are skipped.
func (s *Store) List() ([]RunMeta, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMeta{}, nil
		}
		return nil, err
	}

	runs := make([]RunMeta, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) LoadMeta(runID string) (*RunMeta, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads the recorded cycles of a run back into a result.
// Metric values live in the metadata, not here.
func (s *Store) LoadSeries(runID string) (*sim.Result, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	res := &sim.Result{}
	if len(records) < 2 {
		return res, nil
	}
	for i, rec := range records[1:] {
		if len(rec) != len(frameHeader) {
			return nil, fmt.Errorf("store: frame row %d has %d fields, want %d", i+1, len(rec), len(frameHeader))
		}
		vals := make([]float64, len(rec))
		for j, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("store: frame row %d field %s: %w", i+1, frameHeader[j], err)
			}
			vals[j] = v
		}
		res.Times = append(res.Times, vals[0])
		res.Refs = append(res.Refs, traj.State{
			T: vals[0], X: vals[1], Y: vals[2], Heading: vals[3],
			VX: vals[4], VY: vals[5], Omega: vals[6],
		})
		res.Poses = append(res.Poses, geom.Pose{X: vals[7], Y: vals[8], Heading: vals[9]})
		res.Commands = append(res.Commands, drive.ChassisSpeeds{VX: vals[10], VY: vals[11], Omega: vals[12]})
	}
	return res, nil
}
