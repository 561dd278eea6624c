package midilink

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestSender_ParameterChanged tests that a committed edit goes out as a
// control change on the configured channel
func TestSender_ParameterChanged(t *testing.T) {
	var sent []gomidi.Message
	s := &Sender{
		channel: 2,
		send: func(m gomidi.Message) error {
			sent = append(sent, m)
			return nil
		},
		logger: testLogger(),
	}

	s.ParameterChanged(74, 100)

	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	var ch, cc, val uint8
	if !sent[0].GetControlChange(&ch, &cc, &val) {
		t.Fatalf("expected a control change, got %s", sent[0])
	}
	if ch != 2 || cc != 74 || val != 100 {
		t.Errorf("expected channel 2 control 74 value 100, got %d/%d/%d", ch, cc, val)
	}
}

// TestSender_ParameterChanged_AbsorbsErrors tests that send failures don't
// propagate into the edit path
func TestSender_ParameterChanged_AbsorbsErrors(t *testing.T) {
	s := &Sender{
		channel: 0,
		send: func(m gomidi.Message) error {
			return errors.New("port gone")
		},
		logger: testLogger(),
	}

	// Must not panic and must keep accepting changes.
	s.ParameterChanged(74, 1)
	s.ParameterChanged(74, 2)
}

// TestMirrorFilter_Match tests that a control change on the configured
// channel becomes a mirror request
func TestMirrorFilter_Match(t *testing.T) {
	mirrors := make(chan Mirror, 4)
	filter := mirrorFilter(2, mirrors, testLogger())

	filter(gomidi.ControlChange(2, 74, 100), 0)

	select {
	case m := <-mirrors:
		if m.ControlID != 74 || m.Value != 100 {
			t.Errorf("expected mirror 74/100, got %d/%d", m.ControlID, m.Value)
		}
	default:
		t.Fatal("expected a mirror request")
	}
}

// TestMirrorFilter_Ignores tests channel mismatches and non-CC messages
func TestMirrorFilter_Ignores(t *testing.T) {
	mirrors := make(chan Mirror, 4)
	filter := mirrorFilter(2, mirrors, testLogger())

	// Wrong channel.
	filter(gomidi.ControlChange(3, 74, 100), 0)
	// Not a control change.
	filter(gomidi.NoteOn(2, 60, 127), 0)

	select {
	case m := <-mirrors:
		t.Errorf("expected nothing, got %+v", m)
	default:
	}
}

// TestMirrorFilter_QueueFull tests that a saturated queue drops instead of
// blocking the driver callback
func TestMirrorFilter_QueueFull(t *testing.T) {
	mirrors := make(chan Mirror, 1)
	filter := mirrorFilter(0, mirrors, testLogger())

	filter(gomidi.ControlChange(0, 74, 1), 0)
	// Queue is full now; this must return immediately.
	filter(gomidi.ControlChange(0, 74, 2), 0)

	m := <-mirrors
	if m.Value != 1 {
		t.Errorf("expected first value kept, got %d", m.Value)
	}
	select {
	case m := <-mirrors:
		t.Errorf("expected overflow dropped, got %+v", m)
	default:
	}
}
