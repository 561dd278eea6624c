package panel

// Parameter is one entry of the synth's control table: a named, bounded
// value tied to a MIDI-style control change number.
type Parameter struct {
	Name      string
	ControlID uint8 // control change number (0-127)
	Value     uint8
	Min       uint8
	Max       uint8
}

// ChangeHandler receives a notification for every committed edit made
// through the panel (knob turns in edit mode). Externally mirrored values
// (SetByControlID) never reach the handler.
//
// Handlers are invoked synchronously from Update(); they must not call back
// into the table or panel.
type ChangeHandler interface {
	ParameterChanged(controlID, value uint8)
}

// ChangeHandlerFunc adapts a plain function to the ChangeHandler interface.
type ChangeHandlerFunc func(controlID, value uint8)

// ParameterChanged calls f(controlID, value).
func (f ChangeHandlerFunc) ParameterChanged(controlID, value uint8) { f(controlID, value) }

// Table holds the fixed parameter set. The set of entries and their order
// are decided at construction and never change afterwards; only values move.
//
// Table is not safe for concurrent use. The owner is expected to confine all
// access (panel updates, external mirroring, reads) to a single goroutine.
type Table struct {
	params  []Parameter
	handler ChangeHandler
}

// NewTable builds a table from the given entries. The slice is copied, so
// the caller may reuse or modify its own copy freely.
func NewTable(params []Parameter) *Table {
	t := &Table{params: make([]Parameter, len(params))}
	copy(t.params, params)
	return t
}

// DefaultTable returns a table populated with the stock pico-303 parameter
// set (see DefaultParameters).
func DefaultTable() *Table {
	return NewTable(DefaultParameters())
}

// Count returns the number of parameters in the table.
func (t *Table) Count() int {
	return len(t.params)
}

// Get returns the parameter at index i. Out-of-range indices fall back to
// entry 0 so callers can render something sensible even with a stale index.
func (t *Table) Get(i int) Parameter {
	if i < 0 || i >= len(t.params) {
		if len(t.params) == 0 {
			return Parameter{}
		}
		return t.params[0]
	}
	return t.params[i]
}

// SetByControlID overwrites the value of the first parameter whose control
// change number matches controlID. This is the mirroring path for externally
// originated changes (MIDI input, IPC): the value is stored verbatim without
// range clamping, and no change notification fires. Unknown control numbers
// are ignored.
func (t *Table) SetByControlID(controlID, value uint8) {
	for i := range t.params {
		if t.params[i].ControlID == controlID {
			t.params[i].Value = value
			return
		}
	}
}

// SetChangeHandler registers the handler notified on committed edits,
// replacing any previously registered handler. A nil handler disables
// notifications.
func (t *Table) SetChangeHandler(h ChangeHandler) {
	t.handler = h
}

// notify fires the registered change handler, if any.
func (t *Table) notify(controlID, value uint8) {
	if t.handler != nil {
		t.handler.ParameterChanged(controlID, value)
	}
}

// DefaultParameters returns the stock parameter set of the pico-303 sound
// engine: oscillator, filter and envelope controls followed by the
// distortion and delay sections. Values are the engine's power-on defaults.
func DefaultParameters() []Parameter {
	return []Parameter{
		{"Volume", 7, 76, 0, 127},
		{"Wave", 18, 0, 0, 127},
		{"Pitch", 16, 64, 0, 127}, // 64 = center (0 semitones)
		{"Tuning", 19, 64, 0, 127},
		{"Cutoff", 74, 64, 0, 127},
		{"Res", 71, 0, 0, 127},
		{"Env", 17, 64, 0, 127},
		{"Decay", 75, 64, 0, 127},
		{"Accent", 15, 64, 0, 127},
		{"SubOsc", 14, 0, 0, 127},
		{"Dist On", 80, 0, 0, 127}, // >63 = on
		{"Dist Mode", 77, 0, 0, 4},
		{"Dist Amt", 78, 0, 0, 127},
		{"Dist Mix", 79, 0, 0, 127},
		{"Dly On", 85, 0, 0, 127}, // >63 = on
		{"Dly Time", 81, 32, 0, 127},
		{"Dly Fdbk", 82, 64, 0, 127},
		{"Dly Sync", 86, 32, 0, 127},
		{"Dly L Div", 91, 32, 0, 127},
		{"Dly R Div", 92, 32, 0, 127},
		{"Dly L Mod", 93, 0, 0, 2},
		{"Dly R Mod", 94, 0, 0, 2},
		{"Dly Mix", 83, 38, 0, 127},
		{"Glide", 100, 64, 0, 127},
	}
}
