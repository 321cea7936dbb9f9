package viz

import (
	"math"
	"strings"

	"github.com/san-kum/mectrack/internal/geom"
)

// Braille patterns pack 2x4 dots per cell:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// Unicode offset 0x2800.
var pixelMap = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a Braille pixel canvas addressed in field coordinates.
// A canvas of w x h cells resolves (w*2) x (h*4) dots; +Y is up.
type Canvas struct {
	width, height int
	grid          [][]rune

	minX, minY, maxX, maxY float64
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		width:  width,
		height: height,
		grid:   make([][]rune, height),
	}
	for i := range c.grid {
		c.grid[i] = make([]rune, width)
	}
	c.Clear()
	c.SetWorld(-1, -1, 1, 1)
	return c
}

// SetWorld maps the given field-coordinate window onto the canvas.
func (c *Canvas) SetWorld(minX, minY, maxX, maxY float64) {
	c.minX, c.minY, c.maxX, c.maxY = minX, minY, maxX, maxY
}

// FitPaths sets the world window to cover every given path, with a
// small margin, keeping the scale equal on both axes so paths hold
// their shape.
func (c *Canvas) FitPaths(paths ...[]geom.Pose) {
	minX, minY, maxX, maxY, ok := pathBounds(paths...)
	if !ok {
		return
	}

	padX := 0.05 * (maxX - minX)
	if padX == 0 {
		padX = 0.5
	}
	padY := 0.05 * (maxY - minY)
	if padY == 0 {
		padY = 0.5
	}
	c.SetWorld(minX-padX, minY-padY, maxX+padX, maxY+padY)
	c.equalize()
}

// equalize widens the narrower axis until both map to the same field
// distance per dot.
func (c *Canvas) equalize() {
	sx := (c.maxX - c.minX) / float64(2*c.width)
	sy := (c.maxY - c.minY) / float64(4*c.height)
	if sx < sy {
		cx := (c.minX + c.maxX) / 2
		half := sy * float64(2*c.width) / 2
		c.minX, c.maxX = cx-half, cx+half
	} else if sy < sx {
		cy := (c.minY + c.maxY) / 2
		half := sx * float64(4*c.height) / 2
		c.minY, c.maxY = cy-half, cy+half
	}
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = 0x2800
		}
	}
}

// Point plots a single field-coordinate point.
func (c *Canvas) Point(x, y float64) {
	px, py, ok := c.project(x, y)
	if !ok {
		return
	}
	c.set(px, py)
}

// Line draws a field-coordinate segment with Bresenham stepping.
func (c *Canvas) Line(x0, y0, x1, y1 float64) {
	px0, py0, ok := c.project(x0, y0)
	if !ok {
		return
	}
	px1, py1, _ := c.project(x1, y1)
	c.line(px0, py0, px1, py1)
}

// PlotPath draws the polyline through the given poses.
func (c *Canvas) PlotPath(path []geom.Pose) {
	if len(path) == 1 {
		c.Point(path[0].X, path[0].Y)
		return
	}
	for i := 1; i < len(path); i++ {
		c.Line(path[i-1].X, path[i-1].Y, path[i].X, path[i].Y)
	}
}

// Marker draws a small cross, for start and goal positions.
func (c *Canvas) Marker(x, y float64) {
	px, py, ok := c.project(x, y)
	if !ok {
		return
	}
	for d := -2; d <= 2; d++ {
		c.set(px+d, py)
		c.set(px, py+d)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func (c *Canvas) project(x, y float64) (int, int, bool) {
	if c.maxX <= c.minX || c.maxY <= c.minY {
		return 0, 0, false
	}
	u := (x - c.minX) / (c.maxX - c.minX)
	v := (c.maxY - y) / (c.maxY - c.minY)
	px := int(math.Round(u * float64(2*c.width-1)))
	py := int(math.Round(v * float64(4*c.height-1)))
	return px, py, true
}

func (c *Canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col := x / 2
	row := y / 4
	if col >= c.width || row >= c.height {
		return
	}
	c.grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) line(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
