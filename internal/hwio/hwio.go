// Package hwio gives the panel subsystem access to the control board's GPIO
// lines (the encoder phase pair and the push button) behind one small
// interface with three backends:
//
//   - chardev: the Linux GPIO character device (/dev/gpiochipN), edge events
//     via epoll. Preferred on any recent kernel.
//   - rpio: direct BCM register access through go-rpio, with polled edge
//     latches. For setups where the character device is unavailable.
//   - sim: an in-process simulator for tests and the panelsim binary.
package hwio

import (
	"context"
	"time"
)

// Lines is the hardware surface the panel consumes. EncoderLevels and
// ButtonLevel satisfy the decoder's and debouncer's reader interfaces
// directly.
//
// EncoderLevels must only be called from the Watch callback goroutine;
// ButtonLevel may be polled from one other goroutine. Backends rely on this
// split instead of locking.
type Lines interface {
	// EncoderLevels returns the instantaneous levels of the encoder phase
	// lines A and B.
	EncoderLevels() (a, b bool)

	// ButtonLevel returns the instantaneous level of the button line.
	// The button is wired active-low, so true means released.
	ButtonLevel() bool

	// Watch blocks, invoking onEdge for every transition on either encoder
	// line until ctx is done. The timestamp is the hardware event time where
	// the backend has one, the observation time otherwise. Returns nil on
	// cancellation, an error if the lines become unusable.
	Watch(ctx context.Context, onEdge func(at time.Time)) error

	// Close releases the underlying lines.
	Close() error
}
