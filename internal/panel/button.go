package panel

import "time"

// ButtonReader reports the instantaneous level of the panel button line.
// The button is wired active-low: true means released (pulled high), false
// means held down.
type ButtonReader interface {
	ButtonLevel() bool
}

// Button debounces the panel push button. It is polled (not edge-driven):
// call Poll once per UI update with the current time.
//
// A press is reported exactly once, on the first high-to-low transition that
// arrives at least debounceGuard after the last recorded transition.
// Releases are recognized under the same guard but only update bookkeeping.
// Transitions inside the guard window are ignored entirely, so contact
// bounce around either edge can neither fire spurious presses nor shift the
// debounce baseline. Holding the button produces no repeats.
type Button struct {
	pin        ButtonReader
	last       bool // last recorded level (true = high/released)
	lastChange time.Time
}

// NewButton creates a debouncer for the given line. The button starts out
// assumed released; call Prime to capture the real level instead.
func NewButton(pin ButtonReader) *Button {
	return &Button{pin: pin, last: true}
}

// Prime captures the current line level and timestamp as the debounce
// baseline. Call once at startup so a button held across boot does not
// register as a press.
func (b *Button) Prime(now time.Time) {
	b.last = b.pin.ButtonLevel()
	b.lastChange = now
}

// Poll samples the button and reports whether a debounced press occurred.
func (b *Button) Poll(now time.Time) bool {
	level := b.pin.ButtonLevel()

	if !level && b.last {
		// Potential press (high -> low).
		if now.Sub(b.lastChange) >= debounceGuard {
			b.last = level
			b.lastChange = now
			return true
		}
	} else if level && !b.last {
		// Release (low -> high); debounced the same way, no event.
		if now.Sub(b.lastChange) >= debounceGuard {
			b.last = level
			b.lastChange = now
		}
	}

	return false
}
