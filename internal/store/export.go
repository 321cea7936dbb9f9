package store

import (
	"encoding/json"
	"io"

	"github.com/san-kum/mectrack/internal/sim"
)

// ExportData is the single-document JSON form of a run, for handing to
// external tooling.
type ExportData struct {
	RunMeta
	Times    []float64   `json:"times"`
	Refs     [][]float64 `json:"refs"`     // x, y, heading, vx, vy, omega
	Poses    [][]float64 `json:"poses"`    // x, y, heading
	Commands [][]float64 `json:"commands"` // vx, vy, omega
}

func ExportJSON(w io.Writer, meta *RunMeta, res *sim.Result) error {
	data := ExportData{
		RunMeta:  *meta,
		Times:    res.Times,
		Refs:     make([][]float64, len(res.Refs)),
		Poses:    make([][]float64, len(res.Poses)),
		Commands: make([][]float64, len(res.Commands)),
	}
	for i, r := range res.Refs {
		data.Refs[i] = []float64{r.X, r.Y, r.Heading, r.VX, r.VY, r.Omega}
	}
	for i, p := range res.Poses {
		data.Poses[i] = []float64{p.X, p.Y, p.Heading}
	}
	for i, c := range res.Commands {
		data.Commands[i] = []float64{c.VX, c.VY, c.Omega}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
