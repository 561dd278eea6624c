package panel

import "time"

// Encoder step handling
const (
	// stepThreshold is the number of raw quadrature transitions that make up
	// one detent movement. The encoders on the control board produce two
	// state changes per detent in each direction.
	stepThreshold = 2

	// Acceleration thresholds: ticks arriving faster than these intervals
	// get their delta multiplied so large value sweeps don't need dozens of
	// full knob turns.
	fastTickInterval   = 15 * time.Millisecond // below this: very fast spin
	mediumTickInterval = 30 * time.Millisecond // below this: fast spin

	fastMultiplier   = 4
	mediumMultiplier = 2
)

// Button debouncing
const (
	// debounceGuard is the minimum time between recorded button transitions.
	// Transitions inside the guard window are ignored entirely (neither
	// recorded nor reported), which suppresses contact bounce on both press
	// and release.
	debounceGuard = 100 * time.Millisecond
)

// Default update loop frequency for hosts driving Update() on a timer (Hz).
const DefaultUpdateHz = 200
