// Package display renders the panel UI onto a 16x2 character screen.
//
// The Renderer produces the two text rows (browse and edit layouts) and is
// separated from the Screen transport, so the i2c OLED, the in-memory test
// buffer and the simulator all show identical content.
package display

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Akashic-Trance-Machines/pico-303/internal/panel"
)

// Screen geometry.
const (
	Width = 16
	Rows  = 2
)

// barCell is the all-pixels-on character cell used for the value bar. Kept
// as a raw byte so transports write it to the controller verbatim.
const barCell = "\xff"

// Screen is a 16x2 character output device.
type Screen interface {
	// WriteRow replaces one full row. Text longer than the row is clipped,
	// shorter text is padded with spaces.
	WriteRow(row int, text string) error
	// Clear blanks the whole screen.
	Clear() error
	Close() error
}

// Renderer formats panel state for a Screen.
type Renderer struct {
	screen Screen
}

// NewRenderer returns a renderer writing to the given screen.
func NewRenderer(s Screen) *Renderer {
	return &Renderer{screen: s}
}

// Render draws one panel snapshot.
//
// Browse mode: the top row shows the cursor position and parameter name,
// the bottom row a bar for its value. Edit mode: the top row gains a ">"
// marker and the numeric value, the bar stays.
//
//	browse          edit
//	+----------------+    +----------------+
//	| 5/24 Cutoff    |    |>Cutoff       64|
//	|########        |    |########        |
//	+----------------+    +----------------+
func (r *Renderer) Render(mode panel.Mode, index, count int, prm panel.Parameter) error {
	var top string
	if mode == panel.ModeEdit {
		top = fmt.Sprintf(">%-11.11s %3d", prm.Name, prm.Value)
	} else {
		top = fmt.Sprintf("%2d/%-2d %-10.10s", index+1, count, prm.Name)
	}

	if err := r.screen.WriteRow(0, top); err != nil {
		return fmt.Errorf("write top row: %w", err)
	}
	if err := r.screen.WriteRow(1, valueBar(prm)); err != nil {
		return fmt.Errorf("write bar row: %w", err)
	}
	return nil
}

// valueBar maps the parameter's value position inside its range onto 1..16
// filled cells. Values outside the range (possible through external
// mirroring, which stores verbatim) are clamped for rendering only.
func valueBar(p panel.Parameter) string {
	v := p.Value
	if v < p.Min {
		v = p.Min
	}
	if v > p.Max {
		v = p.Max
	}

	w := 1
	if p.Max > p.Min {
		w = 1 + int(v-p.Min)*(Width-1)/int(p.Max-p.Min)
	}
	return strings.Repeat(barCell, w) + strings.Repeat(" ", Width-w)
}

// padRow clips or pads text to exactly one row of screen cells.
func padRow(text string) []byte {
	b := make([]byte, Width)
	copy(b, text)
	for i := len(text); i < Width; i++ {
		b[i] = ' '
	}
	return b
}

// Buffer is an in-memory Screen for tests and the simulator.
type Buffer struct {
	mu   sync.Mutex
	rows [Rows]string
}

// NewBuffer returns a blank buffer.
func NewBuffer() *Buffer {
	b := &Buffer{}
	b.Clear()
	return b
}

// WriteRow stores one padded row.
func (b *Buffer) WriteRow(row int, text string) error {
	if row < 0 || row >= Rows {
		return fmt.Errorf("row %d out of range", row)
	}
	b.mu.Lock()
	b.rows[row] = string(padRow(text))
	b.mu.Unlock()
	return nil
}

// Clear blanks all rows.
func (b *Buffer) Clear() error {
	b.mu.Lock()
	for i := range b.rows {
		b.rows[i] = strings.Repeat(" ", Width)
	}
	b.mu.Unlock()
	return nil
}

// Rows returns a copy of the current screen content.
func (b *Buffer) Rows() [Rows]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rows
}

// Close is a no-op for the buffer.
func (b *Buffer) Close() error {
	return nil
}
