package hwio

import (
	"context"
	"fmt"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpioScanInterval is how often the polled backend checks the edge latches.
// Transitions faster than one scan collapse into an illegal two-bit jump
// and are absorbed by the decoder, so this bounds the usable spin rate.
const rpioScanInterval = time.Millisecond

// RPIOLines drives the panel lines through direct BCM register access.
// The chip latches edge events in hardware between scans, so a polled loop
// still catches transitions shorter than the scan interval.
type RPIOLines struct {
	a, b, button rpio.Pin
}

// OpenRPIO maps the GPIO registers and configures the three lines as
// pulled-up inputs with edge latching on the encoder pair.
func OpenRPIO(pinA, pinB, pinButton int) (*RPIOLines, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("map gpio registers: %w", err)
	}

	l := &RPIOLines{
		a:      rpio.Pin(pinA),
		b:      rpio.Pin(pinB),
		button: rpio.Pin(pinButton),
	}
	for _, p := range []rpio.Pin{l.a, l.b, l.button} {
		p.Input()
		p.PullUp()
	}
	l.a.Detect(rpio.AnyEdge)
	l.b.Detect(rpio.AnyEdge)

	return l, nil
}

// EncoderLevels reads both phase lines.
func (l *RPIOLines) EncoderLevels() (bool, bool) {
	return l.a.Read() == rpio.High, l.b.Read() == rpio.High
}

// ButtonLevel reads the button line (true = high/released).
func (l *RPIOLines) ButtonLevel() bool {
	return l.button.Read() == rpio.High
}

// Watch polls the edge latches and invokes onEdge whenever either encoder
// line saw a transition since the previous scan. Timestamps are observation
// times; at a 1ms scan that is close enough for the acceleration windows.
func (l *RPIOLines) Watch(ctx context.Context, onEdge func(at time.Time)) error {
	ticker := time.NewTicker(rpioScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if l.a.EdgeDetected() || l.b.EdgeDetected() {
				onEdge(now)
			}
		}
	}
}

// Close disables edge detection and unmaps the registers.
func (l *RPIOLines) Close() error {
	l.a.Detect(rpio.NoEdge)
	l.b.Detect(rpio.NoEdge)
	return rpio.Close()
}
