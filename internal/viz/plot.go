package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/sim"
)

// Series renders one series as a terminal chart.
func Series(values []float64, width, height int, caption string) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// Compare renders a reference series against the driven one.
func Compare(ref, actual []float64, width, height int, caption string) string {
	if len(ref) == 0 && len(actual) == 0 {
		return ""
	}
	return asciigraph.PlotMany([][]float64{ref, actual},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Gray, asciigraph.Cyan),
		asciigraph.SeriesLegends("reference", "driven"),
	)
}

// DeviationSeries extracts the per-cycle translation error of a run.
func DeviationSeries(res *sim.Result) []float64 {
	out := make([]float64, res.Steps())
	for i := range out {
		out[i] = math.Hypot(res.Refs[i].X-res.Poses[i].X, res.Refs[i].Y-res.Poses[i].Y)
	}
	return out
}

// RefPath converts the recorded reference states into poses for path
// drawing.
func RefPath(res *sim.Result) []geom.Pose {
	out := make([]geom.Pose, len(res.Refs))
	for i, r := range res.Refs {
		out[i] = r.Pose()
	}
	return out
}
