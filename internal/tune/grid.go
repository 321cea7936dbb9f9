// Package tune searches gain grids by scoring simulated tracking runs.
package tune

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/san-kum/mectrack/internal/sim"
)

// ErrEmptyGrid is returned when the grid has no parameters or a
// parameter has no values.
var ErrEmptyGrid = errors.New("tune: empty parameter grid")

// Param is one searched dimension and the values it may take.
type Param struct {
	Name   string
	Values []float64
}

// Point assigns a value to every searched parameter.
type Point map[string]float64

// Result pairs a grid point with the score its run produced.
type Result struct {
	Point Point
	Score float64
}

// Builder constructs a fresh session for one grid point. Builders run
// concurrently and must not share mutable state between calls.
type Builder func(p Point) (*sim.Session, error)

// Grid scores every combination of its parameters against one metric.
type Grid struct {
	metric string
	params []Param
}

func NewGrid(metric string, params ...Param) *Grid {
	return &Grid{metric: metric, params: params}
}

// Range spreads n values evenly across [lo, hi], endpoints included.
func Range(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	step := (hi - lo) / float64(n-1)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = lo + step*float64(i)
	}
	return vals
}

// Search runs the whole grid and returns every scored point, best
// first. Each point gets its own session; points run concurrently on
// up to GOMAXPROCS workers.
func (g *Grid) Search(ctx context.Context, build Builder) ([]Result, error) {
	points := g.expand()
	if len(points) == 0 {
		return nil, ErrEmptyGrid
	}

	results := make([]Result, len(points))
	errs := make([]error, len(points))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(points) {
		workers = len(points)
	}
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx], errs[idx] = g.score(ctx, build, points[idx])
			}
		}()
	}
	for i := range points {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	return results, nil
}

func (g *Grid) score(ctx context.Context, build Builder, pt Point) (Result, error) {
	ses, err := build(pt)
	if err != nil {
		return Result{}, err
	}
	res, err := ses.Run(ctx)
	if err != nil {
		return Result{}, err
	}
	val, ok := res.Metrics[g.metric]
	if !ok {
		return Result{}, fmt.Errorf("tune: run produced no metric %q", g.metric)
	}
	return Result{Point: pt, Score: val}, nil
}

func (g *Grid) expand() []Point {
	if len(g.params) == 0 {
		return nil
	}
	points := []Point{{}}
	for _, p := range g.params {
		if len(p.Values) == 0 {
			return nil
		}
		next := make([]Point, 0, len(points)*len(p.Values))
		for _, base := range points {
			for _, v := range p.Values {
				pt := make(Point, len(base)+1)
				for k, bv := range base {
					pt[k] = bv
				}
				pt[p.Name] = v
				next = append(next, pt)
			}
		}
		points = next
	}
	return points
}
