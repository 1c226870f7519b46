package sweep

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/san-kum/cellsim/internal/experiment"
)

// Grid enumerates the cartesian product of named parameter axes.
type Grid struct {
	names  []string
	ranges [][]float64
}

func NewGrid(names []string, ranges [][]float64) (*Grid, error) {
	if len(names) != len(ranges) {
		return nil, fmt.Errorf("got %d names for %d ranges", len(names), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("axis %q has no values", names[i])
		}
	}
	return &Grid{names: names, ranges: ranges}, nil
}

// Linspace is a convenience axis builder: n evenly spaced values over
// [lo, hi] inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Points materializes every grid point. Sweeps are small by construction
// (a few axes, a handful of values each), so holding them all is fine.
func (g *Grid) Points() []map[string]float64 {
	var points []map[string]float64
	current := make(map[string]float64, len(g.names))

	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(g.names) {
			point := make(map[string]float64, len(current))
			for k, v := range current {
				point[k] = v
			}
			points = append(points, point)
			return
		}
		for _, v := range g.ranges[depth] {
			current[g.names[depth]] = v
			walk(depth + 1)
		}
	}
	walk(0)
	return points
}

// Outcome is one evaluated grid point.
type Outcome struct {
	Point map[string]float64
	Score float64
	Err   error
}

// Sweep evaluates a grid in parallel and minimizes a named metric. The
// builder constructs a fresh experiment per point; experiments own their
// parameters, so points never share mutable state.
type Sweep struct {
	grid    *Grid
	metric  string
	workers int
}

func New(grid *Grid, metric string) *Sweep {
	return &Sweep{grid: grid, metric: metric, workers: runtime.NumCPU()}
}

// SetWorkers bounds the evaluation parallelism; values below 1 reset to 1.
func (s *Sweep) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.workers = n
}

// Run evaluates every point and returns all outcomes sorted by score, best
// first. A point whose experiment fails to build or run keeps its error in
// the outcome instead of aborting the sweep; failed points sort last.
func (s *Sweep) Run(ctx context.Context, build func(point map[string]float64) (*experiment.Experiment, error)) ([]Outcome, error) {
	points := s.grid.Points()
	outcomes := make([]Outcome, len(points))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.workers
	if workers > len(points) {
		workers = len(points)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = s.evaluate(ctx, points[idx], build)
			}
		}()
	}

	for i := range points {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(outcomes, func(i, j int) bool {
		return less(outcomes[i], outcomes[j])
	})
	return outcomes, nil
}

func (s *Sweep) evaluate(ctx context.Context, point map[string]float64, build func(map[string]float64) (*experiment.Experiment, error)) Outcome {
	out := Outcome{Point: point, Score: math.Inf(1)}

	exp, err := build(point)
	if err != nil {
		out.Err = err
		return out
	}

	result, err := exp.Run(ctx)
	if err != nil {
		out.Err = err
		return out
	}

	score, ok := result.Metrics[s.metric]
	if !ok {
		out.Err = fmt.Errorf("metric %q not produced by run", s.metric)
		return out
	}
	out.Score = score
	return out
}

func less(a, b Outcome) bool {
	if (a.Err == nil) != (b.Err == nil) {
		return a.Err == nil
	}
	if math.IsNaN(a.Score) {
		return false
	}
	if math.IsNaN(b.Score) {
		return true
	}
	return a.Score < b.Score
}

// Best returns the winning outcome of a sorted sweep.
func Best(outcomes []Outcome) (Outcome, error) {
	if len(outcomes) == 0 {
		return Outcome{}, fmt.Errorf("empty sweep")
	}
	best := outcomes[0]
	if best.Err != nil {
		return best, fmt.Errorf("no grid point evaluated cleanly: %w", best.Err)
	}
	return best, nil
}
