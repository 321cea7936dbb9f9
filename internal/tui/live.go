// Package tui renders a tracking run live in the terminal.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/mectrack/internal/follow"
	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/sim"
	"github.com/san-kum/mectrack/internal/traj"
	"github.com/san-kum/mectrack/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type tickMsg time.Time

type model struct {
	builder *follow.Builder
	tr      *traj.Trajectory
	plant   *sim.Plant
	period  float64

	follower *follow.Follower
	elapsed  float64
	running  bool
	paused   bool
	finished bool
	err      error
	speed    int

	canvas  *viz.Canvas
	refPath []geom.Pose
	path    []geom.Pose
	dev     []float64

	width, height int
}

// newLive builds the live view. The builder must already be wired to
// the given plant.
func newLive(b *follow.Builder, tr *traj.Trajectory, plant *sim.Plant, period float64) *model {
	m := &model{
		builder: b,
		tr:      tr,
		plant:   plant,
		period:  period,
		speed:   1,
		refPath: sampleRef(tr, 200),
		width:   80,
		height:  24,
	}
	m.resize()
	m.start()
	return m
}

// Run drives the live view to completion under the alternate screen.
func Run(b *follow.Builder, tr *traj.Trajectory, plant *sim.Plant, period float64) error {
	p := tea.NewProgram(newLive(b, tr, plant, period), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func sampleRef(tr *traj.Trajectory, points int) []geom.Pose {
	dur := tr.Duration()
	path := make([]geom.Pose, 0, points+1)
	for i := 0; i <= points; i++ {
		t := dur * float64(i) / float64(points)
		path = append(path, tr.Sample(t).Pose())
	}
	return path
}

func (m *model) resize() {
	cw := m.width - 6
	if cw < 40 {
		cw = 40
	}
	ch := m.height - 12
	if ch < 8 {
		ch = 8
	}
	m.canvas = viz.NewCanvas(cw, ch)
	m.canvas.FitPaths(m.refPath)
}

func (m *model) start() {
	m.builder.ResetPose(m.tr)
	m.follower = m.builder.Follower(m.tr)
	m.follower.Init()
	m.elapsed = 0
	m.path = nil
	m.dev = nil
	m.finished = false
	m.err = nil
	m.running = true
	m.paused = false
}

func (m *model) step() {
	if m.finished || m.err != nil {
		return
	}
	if m.follower.IsFinished(m.elapsed) {
		m.follower.End(false)
		m.finished = true
		m.running = false
		return
	}
	if err := m.follower.Step(m.elapsed); err != nil {
		m.follower.End(true)
		m.err = err
		m.running = false
		return
	}
	if err := m.plant.Advance(m.period); err != nil {
		m.follower.End(true)
		m.err = err
		m.running = false
		return
	}
	m.elapsed += m.period

	pose := m.plant.Pose()
	m.path = append(m.path, pose)
	ref := m.tr.Sample(m.elapsed)
	m.dev = append(m.dev, math.Hypot(ref.X-pose.X, ref.Y-pose.Y))
	if len(m.dev) > 120 {
		m.dev = m.dev[1:]
	}
}

func (m model) Init() tea.Cmd { return m.tick() }

func (m model) tick() tea.Cmd {
	return tea.Tick(time.Duration(float64(time.Second)*m.period), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tickMsg:
		if !m.paused {
			for i := 0; i < m.speed; i++ {
				m.step()
			}
		}
		if m.running {
			return m, m.tick()
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "r":
		wasRunning := m.running
		m.start()
		if !wasRunning {
			return m, m.tick()
		}
	case "+", "=":
		if m.speed < 16 {
			m.speed *= 2
		}
	case "-", "_":
		if m.speed > 1 {
			m.speed /= 2
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	status := green.Render("● tracking")
	switch {
	case m.err != nil:
		status = magenta.Render("✗ " + m.err.Error())
	case m.finished:
		status = yellow.Render("○ finished")
	case m.paused:
		status = yellow.Render("○ paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s  %s\n", cyan.Render(m.tr.Name), status))

	progress := 0.0
	if dur := m.tr.Duration(); dur > 0 {
		progress = math.Min(m.elapsed/dur, 1)
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	timeStr := fmt.Sprintf("%.1fs/%.1fs", m.elapsed, m.tr.Duration())
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar, dim.Render(timeStr), dim.Render(fmt.Sprintf("x%d", m.speed))))

	m.canvas.Clear()
	m.canvas.PlotPath(m.refPath)
	if len(m.refPath) > 0 {
		goal := m.refPath[len(m.refPath)-1]
		m.canvas.Marker(goal.X, goal.Y)
	}
	m.canvas.PlotPath(m.path)
	pose := m.plant.Pose()
	m.canvas.Marker(pose.X, pose.Y)
	for _, row := range strings.Split(strings.TrimRight(m.canvas.String(), "\n"), "\n") {
		b.WriteString("   " + row + "\n")
	}

	cmd := m.plant.Command()
	b.WriteString("\n   " +
		dim.Render("x=") + white.Render(fmt.Sprintf("%6.2f", pose.X)) +
		dim.Render("  y=") + white.Render(fmt.Sprintf("%6.2f", pose.Y)) +
		dim.Render("  θ=") + white.Render(fmt.Sprintf("%6.1f°", pose.Heading*180/math.Pi)) +
		dim.Render("   vx=") + white.Render(fmt.Sprintf("%5.2f", cmd.VX)) +
		dim.Render(" vy=") + white.Render(fmt.Sprintf("%5.2f", cmd.VY)) +
		dim.Render(" ω=") + white.Render(fmt.Sprintf("%5.2f", cmd.Omega)) + "\n")

	if len(m.dev) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("dev"), cyan.Render(sparkline(m.dev, 32))))
	}

	b.WriteString("\n" + dim.Render("   space pause  +/- speed  r restart  q quit") + "\n")
	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
