package display

import (
	"strings"
	"testing"

	"github.com/Akashic-Trance-Machines/pico-303/internal/panel"
)

// TestRenderer_Render_Browse tests the browse layout: position counter,
// name, value bar
func TestRenderer_Render_Browse(t *testing.T) {
	buf := NewBuffer()
	r := NewRenderer(buf)

	prm := panel.Parameter{Name: "Cutoff", ControlID: 74, Value: 64, Min: 0, Max: 127}
	if err := r.Render(panel.ModeBrowse, 2, 24, prm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := buf.Rows()
	if rows[0] != " 3/24 Cutoff    " {
		t.Errorf("unexpected top row %q", rows[0])
	}
	// 64 of [0,127] fills 8 of 16 cells.
	wantBar := strings.Repeat(barCell, 8) + strings.Repeat(" ", 8)
	if rows[1] != wantBar {
		t.Errorf("unexpected bar row %q", rows[1])
	}
}

// TestRenderer_Render_Edit tests the edit layout: marker, name, numeric
// value
func TestRenderer_Render_Edit(t *testing.T) {
	buf := NewBuffer()
	r := NewRenderer(buf)

	prm := panel.Parameter{Name: "Cutoff", ControlID: 74, Value: 64, Min: 0, Max: 127}
	if err := r.Render(panel.ModeEdit, 2, 24, prm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := buf.Rows()
	// 16 cells: marker + name padded to 11 + space + 3-digit value.
	if rows[0] != ">Cutoff       64" {
		t.Errorf("unexpected top row %q", rows[0])
	}
}

// TestRenderer_Render_ClipsLongNames tests that names never push the layout
// past 16 cells
func TestRenderer_Render_ClipsLongNames(t *testing.T) {
	buf := NewBuffer()
	r := NewRenderer(buf)

	prm := panel.Parameter{Name: "Oscillator Mix", ControlID: 20, Value: 5, Min: 0, Max: 127}

	if err := r.Render(panel.ModeBrowse, 0, 24, prm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := buf.Rows()
	if len(rows[0]) != Width {
		t.Errorf("expected %d cells, got %d (%q)", Width, len(rows[0]), rows[0])
	}
	if rows[0] != " 1/24 Oscillator" {
		t.Errorf("unexpected top row %q", rows[0])
	}

	if err := r.Render(panel.ModeEdit, 0, 24, prm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows = buf.Rows()
	if rows[0] != ">Oscillator    5" {
		t.Errorf("unexpected top row %q", rows[0])
	}
}

// TestRenderer_Render_BarExtremes tests bar widths at the range edges, a
// degenerate range and an out-of-range mirrored value
func TestRenderer_Render_BarExtremes(t *testing.T) {
	cases := []struct {
		name  string
		prm   panel.Parameter
		cells int
	}{
		{"min", panel.Parameter{Name: "Res", ControlID: 71, Value: 0, Min: 0, Max: 127}, 1},
		{"max", panel.Parameter{Name: "Res", ControlID: 71, Value: 127, Min: 0, Max: 127}, Width},
		{"narrow range", panel.Parameter{Name: "Mode", ControlID: 77, Value: 2, Min: 0, Max: 4}, 1 + 2*(Width-1)/4},
		{"degenerate range", panel.Parameter{Name: "Fixed", ControlID: 99, Value: 5, Min: 5, Max: 5}, 1},
		{"mirrored above max", panel.Parameter{Name: "Mode", ControlID: 77, Value: 200, Min: 0, Max: 127}, Width},
	}

	for _, tc := range cases {
		got := valueBar(tc.prm)
		want := strings.Repeat(barCell, tc.cells) + strings.Repeat(" ", Width-tc.cells)
		if got != want {
			t.Errorf("%s: expected %d cells, got %q", tc.name, tc.cells, got)
		}
	}
}

// TestBuffer_WriteRow tests padding, clipping and bounds checks
func TestBuffer_WriteRow(t *testing.T) {
	buf := NewBuffer()

	if err := buf.WriteRow(0, "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := buf.Rows()
	if rows[0] != "hi"+strings.Repeat(" ", Width-2) {
		t.Errorf("expected padded row, got %q", rows[0])
	}

	if err := buf.WriteRow(1, strings.Repeat("x", Width+4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows = buf.Rows()
	if rows[1] != strings.Repeat("x", Width) {
		t.Errorf("expected clipped row, got %q", rows[1])
	}

	if err := buf.WriteRow(2, "nope"); err == nil {
		t.Error("expected error for out-of-range row")
	}

	if err := buf.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows = buf.Rows()
	if rows[0] != strings.Repeat(" ", Width) || rows[1] != strings.Repeat(" ", Width) {
		t.Error("expected blank rows after clear")
	}
}
