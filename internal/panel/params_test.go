package panel

import "testing"

// TestDefaultParameters_Shape tests the stock table's basic integrity:
// size, unique control numbers and defaults within range
func TestDefaultParameters_Shape(t *testing.T) {
	params := DefaultParameters()

	if len(params) != 24 {
		t.Errorf("expected 24 parameters, got %d", len(params))
	}

	seen := make(map[uint8]string)
	for _, p := range params {
		if p.Name == "" {
			t.Error("expected every parameter to have a name")
		}
		if prev, dup := seen[p.ControlID]; dup {
			t.Errorf("control %d used by both %q and %q", p.ControlID, prev, p.Name)
		}
		seen[p.ControlID] = p.Name
		if p.Min > p.Max {
			t.Errorf("%s: min %d above max %d", p.Name, p.Min, p.Max)
		}
		if p.Value < p.Min || p.Value > p.Max {
			t.Errorf("%s: default %d outside [%d,%d]", p.Name, p.Value, p.Min, p.Max)
		}
	}

	// Spot-check a few well-known entries.
	if p := params[0]; p.Name != "Volume" || p.ControlID != 7 || p.Value != 76 {
		t.Errorf("unexpected first entry: %+v", p)
	}
	if p := params[4]; p.Name != "Cutoff" || p.ControlID != 74 {
		t.Errorf("unexpected fifth entry: %+v", p)
	}
}

// TestNewTable_CopiesInput tests that the table is detached from the
// caller's slice
func TestNewTable_CopiesInput(t *testing.T) {
	src := []Parameter{{"Cutoff", 74, 64, 0, 127}}
	tbl := NewTable(src)

	src[0].Value = 99

	if got := tbl.Get(0).Value; got != 64 {
		t.Errorf("expected table unaffected by caller mutation, got value %d", got)
	}
}

// TestTable_Get_OutOfRange tests the fallback to entry 0
func TestTable_Get_OutOfRange(t *testing.T) {
	tbl := NewTable([]Parameter{
		{"Cutoff", 74, 64, 0, 127},
		{"Res", 71, 0, 0, 127},
	})

	if got := tbl.Get(-1); got.Name != "Cutoff" {
		t.Errorf("expected fallback to first entry for negative index, got %q", got.Name)
	}
	if got := tbl.Get(2); got.Name != "Cutoff" {
		t.Errorf("expected fallback to first entry past the end, got %q", got.Name)
	}
	if got := tbl.Get(1); got.Name != "Res" {
		t.Errorf("expected in-range lookup, got %q", got.Name)
	}
}

// TestTable_Get_Empty tests that an empty table yields a zero parameter
// instead of panicking
func TestTable_Get_Empty(t *testing.T) {
	tbl := NewTable(nil)

	got := tbl.Get(0)
	if got != (Parameter{}) {
		t.Errorf("expected zero parameter from empty table, got %+v", got)
	}
}

// TestTable_SetByControlID tests verbatim storage and that unknown control
// numbers are ignored
func TestTable_SetByControlID(t *testing.T) {
	tbl := NewTable([]Parameter{
		{"Dist Mode", 77, 0, 0, 4},
		{"Cutoff", 74, 64, 0, 127},
	})

	tbl.SetByControlID(74, 100)
	if got := tbl.Get(1).Value; got != 100 {
		t.Errorf("expected value 100, got %d", got)
	}

	// No clamping on this path: the raw value is stored even above max.
	tbl.SetByControlID(77, 9)
	if got := tbl.Get(0).Value; got != 9 {
		t.Errorf("expected verbatim value 9 above max, got %d", got)
	}

	// Unknown control number: no effect.
	tbl.SetByControlID(42, 1)
	if tbl.Get(0).Value != 9 || tbl.Get(1).Value != 100 {
		t.Error("expected unknown control number to leave table untouched")
	}
}

// TestTable_SetByControlID_FirstMatch tests that only the first of multiple
// entries sharing a control number is updated
func TestTable_SetByControlID_FirstMatch(t *testing.T) {
	tbl := NewTable([]Parameter{
		{"A", 74, 10, 0, 127},
		{"B", 74, 20, 0, 127},
	})

	tbl.SetByControlID(74, 55)

	if got := tbl.Get(0).Value; got != 55 {
		t.Errorf("expected first match updated, got %d", got)
	}
	if got := tbl.Get(1).Value; got != 20 {
		t.Errorf("expected second match untouched, got %d", got)
	}
}

// TestTable_SetByControlID_NoNotify tests that mirroring never fires the
// change handler
func TestTable_SetByControlID_NoNotify(t *testing.T) {
	tbl := NewTable([]Parameter{{"Cutoff", 74, 64, 0, 127}})

	fired := false
	tbl.SetChangeHandler(ChangeHandlerFunc(func(controlID, value uint8) {
		fired = true
	}))

	tbl.SetByControlID(74, 100)

	if fired {
		t.Error("expected no notification from SetByControlID")
	}
}

// TestTable_SetChangeHandler_Replace tests that registering a handler
// replaces the previous one and that nil disables notifications
func TestTable_SetChangeHandler_Replace(t *testing.T) {
	tbl := NewTable([]Parameter{{"Cutoff", 74, 64, 0, 127}})

	var first, second int
	tbl.SetChangeHandler(ChangeHandlerFunc(func(controlID, value uint8) { first++ }))
	tbl.SetChangeHandler(ChangeHandlerFunc(func(controlID, value uint8) { second++ }))

	tbl.notify(74, 65)

	if first != 0 {
		t.Errorf("expected replaced handler not to fire, got %d calls", first)
	}
	if second != 1 {
		t.Errorf("expected active handler to fire once, got %d calls", second)
	}

	tbl.SetChangeHandler(nil)
	tbl.notify(74, 66) // must not panic
	if second != 1 {
		t.Errorf("expected nil handler to disable notifications, got %d calls", second)
	}
}
