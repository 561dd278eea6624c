package hwio

import (
	"context"
	"sync"
	"time"
)

// simCycle is the clockwise sequence of encoder phase states (A, B).
var simCycle = [4][2]bool{
	{true, true},
	{true, false},
	{false, false},
	{false, true},
}

type simEdge struct {
	a, b bool
	at   time.Time
}

// Sim is an in-process Lines implementation for tests and the panelsim
// binary. Turn and SetButton inject activity from any goroutine; Watch
// replays the queued encoder transitions on its own goroutine, applying each
// phase state right before the callback so level reads observe the same
// sequence real hardware would produce.
type Sim struct {
	mu     sync.Mutex
	phase  int
	a, b   bool
	button bool

	edges chan simEdge
}

// NewSim returns a simulator with the encoder at a detent and the button
// released.
func NewSim() *Sim {
	return &Sim{
		a:      true,
		b:      true,
		button: true,
		edges:  make(chan simEdge, 64),
	}
}

// Turn injects one detent of movement: two quadrature transitions clockwise
// (dir > 0) or counter-clockwise (dir < 0), stamped with the given time.
// Transitions are dropped when no watcher is draining the queue.
func (s *Sim) Turn(dir int, at time.Time) {
	step := 1
	if dir < 0 {
		step = -1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < 2; i++ {
		s.phase = (s.phase + step + len(simCycle)) % len(simCycle)
		st := simCycle[s.phase]
		select {
		case s.edges <- simEdge{a: st[0], b: st[1], at: at}:
		default:
		}
	}
}

// SetButton drives the button line level (false = pressed; the line is
// active-low).
func (s *Sim) SetButton(level bool) {
	s.mu.Lock()
	s.button = level
	s.mu.Unlock()
}

// EncoderLevels reads the simulated phase lines.
func (s *Sim) EncoderLevels() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a, s.b
}

// ButtonLevel reads the simulated button line.
func (s *Sim) ButtonLevel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.button
}

// Watch replays queued transitions until ctx is done.
func (s *Sim) Watch(ctx context.Context, onEdge func(at time.Time)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-s.edges:
			s.mu.Lock()
			s.a, s.b = e.a, e.b
			s.mu.Unlock()
			onEdge(e.at)
		}
	}
}

// Close is a no-op for the simulator.
func (s *Sim) Close() error {
	return nil
}
