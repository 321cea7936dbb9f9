package viz

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/mectrack/internal/geom"
)

// ErrEmptyPath is returned when there is nothing to draw.
var ErrEmptyPath = errors.New("viz: nothing to draw")

// PathSVG writes the reference and driven paths as a standalone SVG
// document. Field +Y is up; the drawing is centered at equal scale.
func PathSVG(w io.Writer, ref, driven []geom.Pose, width, height int) error {
	minX, minY, maxX, maxY, ok := pathBounds(ref, driven)
	if !ok {
		return ErrEmptyPath
	}
	pad := 0.05 * math.Max(maxX-minX, maxY-minY)
	if pad == 0 {
		pad = 0.5
	}
	minX, minY, maxX, maxY = minX-pad, minY-pad, maxX+pad, maxY+pad

	scale := math.Min(float64(width)/(maxX-minX), float64(height)/(maxY-minY))
	ox := (float64(width) - (maxX-minX)*scale) / 2
	oy := (float64(height) - (maxY-minY)*scale) / 2
	px := func(x float64) float64 { return ox + (x-minX)*scale }
	py := func(y float64) float64 { return oy + (maxY-y)*scale }

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	b.WriteString(`  <rect width="100%" height="100%" fill="white"/>` + "\n")
	writePolyline(&b, ref, px, py, `fill="none" stroke="#999999" stroke-width="2" stroke-dasharray="6 4"`)
	writePolyline(&b, driven, px, py, `fill="none" stroke="#0077be" stroke-width="2"`)
	if len(driven) > 0 {
		start, end := driven[0], driven[len(driven)-1]
		fmt.Fprintf(&b, `  <circle cx="%.2f" cy="%.2f" r="4" fill="#00aa44"/>`+"\n", px(start.X), py(start.Y))
		fmt.Fprintf(&b, `  <circle cx="%.2f" cy="%.2f" r="4" fill="#cc3333"/>`+"\n", px(end.X), py(end.Y))
	}
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writePolyline(b *strings.Builder, path []geom.Pose, px, py func(float64) float64, style string) {
	if len(path) == 0 {
		return
	}
	b.WriteString(`  <polyline points="`)
	for i, p := range path {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%.2f,%.2f", px(p.X), py(p.Y))
	}
	b.WriteString(`" ` + style + "/>\n")
}

func pathBounds(paths ...[]geom.Pose) (minX, minY, maxX, maxY float64, ok bool) {
	for _, path := range paths {
		for _, p := range path {
			if !ok {
				minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
				ok = true
				continue
			}
			minX = math.Min(minX, p.X)
			maxX = math.Max(maxX, p.X)
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
	}
	return
}
