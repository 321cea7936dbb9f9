package tune

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/edaniels/golog"

	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/sim"
	"github.com/san-kum/mectrack/internal/traj"
)

type noopRoutine struct{ dur float64 }

func (r *noopRoutine) Init()                     {}
func (r *noopRoutine) Step(t float64) error      { return nil }
func (r *noopRoutine) IsFinished(t float64) bool { return t >= r.dur }
func (r *noopRoutine) End(interrupted bool)      {}

type stillChassis struct{}

func (c stillChassis) Advance(dt float64) error     { return nil }
func (c stillChassis) Pose() geom.Pose              { return geom.Pose{} }
func (c stillChassis) Command() drive.ChassisSpeeds { return drive.ChassisSpeeds{} }

type fixedMetric struct {
	name string
	val  float64
}

func (m *fixedMetric) Name() string        { return m.name }
func (m *fixedMetric) Observe(f sim.Frame) {}
func (m *fixedMetric) Value() float64      { return m.val }
func (m *fixedMetric) Reset()              {}

// paraboloidBuilder scores each point as (kp-2)^2 + (ki-1)^2, so the
// grid minimum sits at kp=2, ki=1.
func paraboloidBuilder(t *testing.T, metric string) Builder {
	logger := golog.NewTestLogger(t)
	return func(pt Point) (*sim.Session, error) {
		ref := traj.Linear("tune", geom.Pose{}, geom.Pose{X: 0.01}, 0.04, 0.02)
		ses, err := sim.NewSession(&noopRoutine{dur: 0.04}, stillChassis{}, ref, 0.02, logger)
		if err != nil {
			return nil, err
		}
		score := math.Pow(pt["kp"]-2, 2) + math.Pow(pt["ki"]-1, 2)
		ses.AddMetric(&fixedMetric{name: metric, val: score})
		return ses, nil
	}
}

func TestGridFindsMinimum(t *testing.T) {
	g := NewGrid("objective",
		Param{Name: "kp", Values: Range(0, 4, 5)},
		Param{Name: "ki", Values: Range(0, 2, 3)},
	)

	results, err := g.Search(context.Background(), paraboloidBuilder(t, "objective"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 15 {
		t.Fatalf("scored %d points, want 15", len(results))
	}

	best := results[0]
	if best.Point["kp"] != 2 || best.Point["ki"] != 1 {
		t.Fatalf("best point = %v, want kp=2 ki=1", best.Point)
	}
	if best.Score != 0 {
		t.Fatalf("best score = %v, want 0", best.Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score < results[i-1].Score {
			t.Fatalf("results out of order at %d: %v < %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestGridRejectsEmptyGrid(t *testing.T) {
	build := paraboloidBuilder(t, "objective")

	if _, err := NewGrid("objective").Search(context.Background(), build); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("no params: err = %v, want ErrEmptyGrid", err)
	}

	g := NewGrid("objective", Param{Name: "kp"})
	if _, err := g.Search(context.Background(), build); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("empty values: err = %v, want ErrEmptyGrid", err)
	}
}

func TestGridPropagatesBuildErrors(t *testing.T) {
	errBoom := errors.New("boom")
	inner := paraboloidBuilder(t, "objective")
	build := func(pt Point) (*sim.Session, error) {
		if pt["kp"] > 3 {
			return nil, errBoom
		}
		return inner(pt)
	}

	g := NewGrid("objective", Param{Name: "kp", Values: Range(0, 4, 5)})
	if _, err := g.Search(context.Background(), build); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

func TestGridReportsMissingMetric(t *testing.T) {
	g := NewGrid("nope", Param{Name: "kp", Values: []float64{1}})

	_, err := g.Search(context.Background(), paraboloidBuilder(t, "objective"))
	if err == nil || !strings.Contains(err.Error(), "no metric") {
		t.Fatalf("err = %v, want missing-metric error", err)
	}
}

func TestGridHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGrid("objective", Param{Name: "kp", Values: Range(0, 4, 5)})
	results, err := g.Search(ctx, paraboloidBuilder(t, "objective"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if results != nil {
		t.Fatalf("results = %v, want nil", results)
	}
}

func TestRange(t *testing.T) {
	got := Range(0, 4, 5)
	want := []float64{0, 1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Range(0, 4, 5) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Range(0, 4, 5)[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if got := Range(2.5, 9, 1); len(got) != 1 || got[0] != 2.5 {
		t.Fatalf("Range(2.5, 9, 1) = %v, want [2.5]", got)
	}
	if got := Range(1, 0, 0); len(got) != 1 || got[0] != 1 {
		t.Fatalf("Range(1, 0, 0) = %v, want [1]", got)
	}
}
