package panel

import (
	"sync/atomic"
	"time"
)

// quadratureTable maps [previous state][current state] to a raw step delta.
// States encode the two encoder phases as (A<<1)|B. Adjacent Gray-code
// transitions yield +1/-1; identical or two-bit transitions (bounce, missed
// samples) yield 0 and are absorbed.
var quadratureTable = [4][4]int{
	{0, +1, -1, 0},  // 00 -> 00, 01, 10, 11
	{-1, 0, 0, +1},  // 01 -> 00, 01, 10, 11
	{+1, 0, 0, -1},  // 10 -> 00, 01, 10, 11
	{0, -1, +1, 0},  // 11 -> 00, 01, 10, 11
}

// Movement is the single-slot mailbox carrying accumulated encoder movement
// from the edge-watcher goroutine to the UI update loop. Add and Take are
// lock-free; deltas posted between two Takes coalesce by summing.
type Movement struct {
	n atomic.Int64
}

// Add posts a movement delta. Safe to call from any goroutine; never blocks.
func (m *Movement) Add(delta int) {
	m.n.Add(int64(delta))
}

// Take atomically drains the accumulated movement and resets it to zero.
func (m *Movement) Take() int {
	return int(m.n.Swap(0))
}

// PinReader reports the instantaneous levels of the encoder phase lines.
// Implementations must be callable from the edge-watcher goroutine.
type PinReader interface {
	EncoderLevels() (a, b bool)
}

// Decoder turns raw encoder line edges into accelerated movement deltas.
//
// Call Edge from the goroutine that watches the hardware lines; every state
// change on either phase line should produce one call. Accumulated movement
// lands in the Movement mailbox handed to NewDecoder.
//
// All decoder state (previous phase, step accumulator, last tick time) is
// owned by the watcher goroutine; only the mailbox crosses goroutines.
type Decoder struct {
	pins PinReader
	out  *Movement

	prev     uint8
	accum    int
	lastTick time.Time
}

// NewDecoder creates a decoder feeding the given mailbox.
func NewDecoder(pins PinReader, out *Movement) *Decoder {
	return &Decoder{pins: pins, out: out}
}

// Prime captures the current phase state and the timestamp baseline.
// Call once before the first Edge so the initial transition is decoded
// against the real line state instead of an assumed one.
func (d *Decoder) Prime(now time.Time) {
	a, b := d.pins.EncoderLevels()
	d.prev = phaseState(a, b)
	d.accum = 0
	d.lastTick = now
}

// Edge processes one hardware transition on either encoder line at the given
// time. It reads both phase levels, folds the transition through the
// quadrature table, and emits an accelerated delta into the mailbox once
// enough raw steps accumulate for a full detent movement.
//
// Edge never blocks and never fails; electrical noise decodes to zero and is
// dropped.
func (d *Decoder) Edge(now time.Time) {
	a, b := d.pins.EncoderLevels()
	cur := phaseState(a, b)

	raw := quadratureTable[d.prev][cur]
	d.prev = cur
	if raw == 0 {
		return
	}

	d.accum += raw
	if d.accum >= stepThreshold || d.accum <= -stepThreshold {
		direction := 1
		if d.accum < 0 {
			direction = -1
		}
		d.accum = 0

		mult := accelMultiplier(now.Sub(d.lastTick))
		d.lastTick = now

		d.out.Add(direction * mult)
	}
}

// phaseState packs the two phase levels into a 2-bit state.
func phaseState(a, b bool) uint8 {
	var s uint8
	if a {
		s |= 2
	}
	if b {
		s |= 1
	}
	return s
}

// accelMultiplier scales a detent movement by how quickly it followed the
// previous one. Fast spinning multiplies each detent so wide sweeps don't
// take dozens of knob turns.
func accelMultiplier(sinceLast time.Duration) int {
	switch {
	case sinceLast < fastTickInterval:
		return fastMultiplier
	case sinceLast < mediumTickInterval:
		return mediumMultiplier
	default:
		return 1
	}
}
