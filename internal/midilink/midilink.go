// Package midilink mirrors panel parameter traffic over MIDI: committed
// edits go out as control change messages, incoming control changes come
// back as mirror requests for the daemon.
package midilink

import (
	"fmt"
	"log/slog"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// Mirror is one externally originated parameter change received over MIDI.
type Mirror struct {
	ControlID uint8
	Value     uint8
}

// Sender forwards committed panel edits as MIDI control change messages on
// one channel. It satisfies the panel's change handler interface. Send
// errors are logged and absorbed so a yanked USB cable cannot break
// editing.
type Sender struct {
	channel uint8
	send    func(gomidi.Message) error
	out     drivers.Out
	logger  *slog.Logger
}

// NewSender opens the first MIDI output whose name contains portName
// (case-insensitive).
func NewSender(portName string, channel uint8, logger *slog.Logger) (*Sender, error) {
	out, err := findOutPort(portName)
	if err != nil {
		return nil, err
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open midi output %q: %w", out.String(), err)
	}

	logger.Info("midi output opened", "port", out.String(), "channel", channel)

	return &Sender{channel: channel, send: send, out: out, logger: logger}, nil
}

// ParameterChanged sends one control change message.
func (s *Sender) ParameterChanged(controlID, value uint8) {
	if err := s.send(gomidi.ControlChange(s.channel, controlID, value)); err != nil {
		s.logger.Warn("midi send failed", "control", controlID, "error", err)
	}
}

// Close closes the output port.
func (s *Sender) Close() error {
	if s.out == nil {
		return nil
	}
	return s.out.Close()
}

// Receiver listens on a MIDI input and posts every control change on the
// configured channel into mirrors. The queue send is non-blocking; if the
// daemon falls behind, older knob positions are worthless anyway and the
// message is dropped.
type Receiver struct {
	in   drivers.In
	stop func()
}

// NewReceiver opens the first MIDI input whose name contains portName
// (case-insensitive) and starts listening.
func NewReceiver(portName string, channel uint8, mirrors chan<- Mirror, logger *slog.Logger) (*Receiver, error) {
	in, err := findInPort(portName)
	if err != nil {
		return nil, err
	}

	stop, err := gomidi.ListenTo(in, mirrorFilter(channel, mirrors, logger))
	if err != nil {
		return nil, fmt.Errorf("open midi input %q: %w", in.String(), err)
	}

	logger.Info("midi input opened", "port", in.String(), "channel", channel)

	return &Receiver{in: in, stop: stop}, nil
}

// Close stops listening and closes the input port.
func (r *Receiver) Close() error {
	if r.stop != nil {
		r.stop()
	}
	if r.in == nil {
		return nil
	}
	return r.in.Close()
}

// mirrorFilter builds the port listener callback: control changes on the
// given channel become Mirror values, everything else is ignored.
func mirrorFilter(channel uint8, mirrors chan<- Mirror, logger *slog.Logger) func(gomidi.Message, int32) {
	return func(msg gomidi.Message, timestampms int32) {
		var ch, cc, val uint8
		if !msg.GetControlChange(&ch, &cc, &val) || ch != channel {
			return
		}
		select {
		case mirrors <- Mirror{ControlID: cc, Value: val}:
		default:
			logger.Warn("midi mirror queue full; dropping", "control", cc)
		}
	}
}

// CloseDriver releases the process-wide MIDI driver. Call once at shutdown,
// after all senders and receivers are closed.
func CloseDriver() {
	gomidi.CloseDriver()
}

func findInPort(name string) (drivers.In, error) {
	want := strings.ToLower(name)
	var names []string
	for _, p := range gomidi.GetInPorts() {
		if strings.Contains(strings.ToLower(p.String()), want) {
			return p, nil
		}
		names = append(names, p.String())
	}
	return nil, fmt.Errorf("no midi input matching %q (available: %s)", name, strings.Join(names, ", "))
}

func findOutPort(name string) (drivers.Out, error) {
	want := strings.ToLower(name)
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		if strings.Contains(strings.ToLower(p.String()), want) {
			return p, nil
		}
		names = append(names, p.String())
	}
	return nil, fmt.Errorf("no midi output matching %q (available: %s)", name, strings.Join(names, ", "))
}
