package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/edaniels/golog"

	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/traj"
)

var (
	// ErrBadPeriod rejects a non-positive control period at construction.
	ErrBadPeriod = errors.New("sim: control period must be positive")
	// ErrOverrun aborts a routine that runs far past its reference duration.
	ErrOverrun = errors.New("sim: routine overran its reference duration")
)

// A routine still unfinished after this many reference durations is
// considered stuck.
const overrunFactor = 4

// Chassis is the simulated vehicle a Session advances in lockstep with
// its routine. *Plant satisfies it.
type Chassis interface {
	Advance(dt float64) error
	Pose() geom.Pose
	Command() drive.ChassisSpeeds
}

// Session runs a Routine against a Chassis on a fixed control period,
// recording every cycle.
type Session struct {
	routine Routine
	plant   Chassis
	ref     Sampler
	period  float64
	logger  golog.Logger

	metrics   []Metric
	observers []Observer
}

func NewSession(routine Routine, plant Chassis, ref Sampler, period float64, logger golog.Logger) (*Session, error) {
	if period <= 0 {
		return nil, ErrBadPeriod
	}
	if logger == nil {
		logger = golog.NewLogger("sim")
	}
	return &Session{
		routine: routine,
		plant:   plant,
		ref:     ref,
		period:  period,
		logger:  logger,
	}, nil
}

func (s *Session) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Session) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run drives the routine to completion. The routine is always ended:
// normally when it reports finished, as interrupted on cancellation or
// on the first error. The partial result is returned alongside any
// error.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	steps := int(s.ref.Duration()/s.period) + 1
	res := &Result{
		Times:    make([]float64, 0, steps),
		Refs:     make([]traj.State, 0, steps),
		Poses:    make([]geom.Pose, 0, steps),
		Commands: make([]drive.ChassisSpeeds, 0, steps),
		Metrics:  make(map[string]float64, len(s.metrics)),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	s.logger.Debugf("run start: duration=%.2fs period=%.3fs", s.ref.Duration(), s.period)
	s.routine.Init()

	budget := s.ref.Duration() * overrunFactor
	for step := 0; ; step++ {
		t := float64(step) * s.period

		select {
		case <-ctx.Done():
			s.routine.End(true)
			return res, fmt.Errorf("sim: aborted at t=%.3f: %w", t, ctx.Err())
		default:
		}

		if s.routine.IsFinished(t) {
			s.routine.End(false)
			break
		}
		if t > budget {
			s.routine.End(true)
			return res, fmt.Errorf("%w: t=%.3f of %.3f", ErrOverrun, t, s.ref.Duration())
		}

		if err := s.routine.Step(t); err != nil {
			s.routine.End(true)
			return res, fmt.Errorf("sim: step %d: %w", step, err)
		}
		if err := s.plant.Advance(s.period); err != nil {
			s.routine.End(true)
			return res, fmt.Errorf("sim: advance %d: %w", step, err)
		}

		f := Frame{T: t, Ref: s.ref.Sample(t), Pose: s.plant.Pose(), Cmd: s.plant.Command()}
		res.append(f)
		for _, m := range s.metrics {
			m.Observe(f)
		}
		for _, o := range s.observers {
			o.OnStep(f)
		}
	}

	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	s.logger.Debugf("run finished: steps=%d", res.Steps())
	return res, nil
}

// TraceObserver logs every Every-th frame. The zero value logs nothing;
// a zero Every with a logger set defaults to every 25th frame.
type TraceObserver struct {
	Logger golog.Logger
	Every  int

	n int
}

func NewTraceObserver(logger golog.Logger, every int) *TraceObserver {
	return &TraceObserver{Logger: logger, Every: every}
}

func (o *TraceObserver) OnStep(f Frame) {
	defer func() { o.n++ }()
	if o.Logger == nil {
		return
	}
	every := o.Every
	if every <= 0 {
		every = 25
	}
	if o.n%every != 0 {
		return
	}
	o.Logger.Debugf("t=%5.2f pose=(%6.3f, %6.3f, %6.1f°) cmd=(%5.2f, %5.2f, %5.2f)",
		f.T, f.Pose.X, f.Pose.Y, f.Pose.Heading*180/math.Pi,
		f.Cmd.VX, f.Cmd.VY, f.Cmd.Omega)
}
