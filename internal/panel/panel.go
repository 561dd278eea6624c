// Package panel implements the pico-303 control surface logic: quadrature
// decoding of the rotary encoder with speed-dependent acceleration, debounced
// button input, and the browse/edit state machine over the fixed parameter
// table.
//
// The package is hardware-independent. Hosts wire it to real GPIO lines (or
// a simulator) through the small PinReader/ButtonReader interfaces and drive
// Update from a periodic loop.
package panel

import "time"

// Mode is the UI interaction mode.
type Mode uint8

const (
	// ModeBrowse navigates the parameter list; knob turns move the cursor.
	ModeBrowse Mode = iota
	// ModeEdit changes the selected parameter's value.
	ModeEdit
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModeBrowse:
		return "browse"
	case ModeEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// Panel is the UI state machine tying encoder movement and button presses to
// the parameter table. It starts in browse mode at index 0.
//
// Panel methods must all be called from the same goroutine; the only
// concurrency-safe entry point into the subsystem is the Movement mailbox
// fed by Decoder.Edge.
type Panel struct {
	table  *Table
	move   *Movement
	button *Button

	mode  Mode
	index int
}

// New assembles a panel over the given table, movement mailbox and button.
func New(table *Table, move *Movement, button *Button) *Panel {
	return &Panel{table: table, move: move, button: button}
}

// Table returns the parameter table the panel operates on.
func (p *Panel) Table() *Table {
	return p.table
}

// Mode returns the current interaction mode.
func (p *Panel) Mode() Mode {
	return p.mode
}

// Index returns the current parameter cursor position.
func (p *Panel) Index() int {
	return p.index
}

// Current returns the parameter under the cursor.
func (p *Panel) Current() Parameter {
	return p.table.Get(p.index)
}

// Update runs one UI iteration: it drains pending encoder movement, polls
// the button, applies the movement to the current mode, and finally toggles
// the mode if the button was pressed. Movement and a press arriving in the
// same iteration both take effect, movement first (so a turn-then-press is
// never attributed to the wrong mode).
//
// It returns true when anything visible changed and the display should be
// redrawn.
func (p *Panel) Update(now time.Time) bool {
	delta := p.move.Take()
	pressed := p.button.Poll(now)

	if delta != 0 && p.table.Count() > 0 {
		switch p.mode {
		case ModeBrowse:
			p.navigate(delta)
		case ModeEdit:
			p.edit(delta)
		}
	}

	if pressed {
		if p.mode == ModeBrowse {
			p.mode = ModeEdit
		} else {
			p.mode = ModeBrowse
		}
	}

	return delta != 0 || pressed
}

// navigate moves the cursor by delta with wraparound, so an accelerated
// movement past either end lands the equivalent number of entries into the
// other side rather than pinning to the edge.
func (p *Panel) navigate(delta int) {
	n := p.table.Count()
	i := (p.index + delta) % n
	if i < 0 {
		i += n
	}
	p.index = i
}

// edit applies delta to the selected parameter's value, clamped to its
// range, and fires the change notification when (and only when) the stored
// value actually changed.
func (p *Panel) edit(delta int) {
	prm := &p.table.params[p.index]

	v := int(prm.Value) + delta
	if v < int(prm.Min) {
		v = int(prm.Min)
	} else if v > int(prm.Max) {
		v = int(prm.Max)
	}

	next := uint8(v)
	if next == prm.Value {
		return
	}

	prm.Value = next
	p.table.notify(prm.ControlID, next)
}
