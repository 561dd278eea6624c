//go:build linux

package hwio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// lineConsumer is the consumer label shown in gpioinfo for our lines.
const lineConsumer = "pico-303-panel"

// epollTimeoutMS bounds how long the watch loop sleeps in epoll_wait before
// re-checking its context, so shutdown never hangs on a quiet encoder.
const epollTimeoutMS = 500

// ChardevLines drives the encoder and button through the Linux GPIO
// character device (uAPI v2).
//
// Two separate line requests are held: the encoder phase pair with edge
// detection enabled (its fd delivers events and is read by Watch), and the
// button line without edges (level-polled by the UI loop). Keeping them on
// separate fds lets the watcher and the poller issue ioctls concurrently
// without locking.
type ChardevLines struct {
	chip *os.File
	enc  int // line request fd: pins A+B, edge events
	btn  int // line request fd: button, level reads only

	lastA, lastB bool // last good encoder read, returned on ioctl failure
	lastBtn      bool
}

// OpenChardev requests the three panel lines from the given gpiochip device.
// All lines are configured as pulled-up inputs; the encoder pair
// additionally reports both edges with realtime timestamps.
func OpenChardev(device string, pinA, pinB, pinButton int) (*ChardevLines, error) {
	chip, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	const encFlags = unix.GPIO_V2_LINE_FLAG_INPUT |
		unix.GPIO_V2_LINE_FLAG_EDGE_RISING |
		unix.GPIO_V2_LINE_FLAG_EDGE_FALLING |
		unix.GPIO_V2_LINE_FLAG_BIAS_PULL_UP |
		unix.GPIO_V2_LINE_FLAG_EVENT_CLOCK_REALTIME
	const btnFlags = unix.GPIO_V2_LINE_FLAG_INPUT |
		unix.GPIO_V2_LINE_FLAG_BIAS_PULL_UP

	enc, err := requestLines(chip, []int{pinA, pinB}, encFlags)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request encoder lines %d+%d: %w", pinA, pinB, err)
	}
	btn, err := requestLines(chip, []int{pinButton}, btnFlags)
	if err != nil {
		unix.Close(enc)
		chip.Close()
		return nil, fmt.Errorf("request button line %d: %w", pinButton, err)
	}

	l := &ChardevLines{chip: chip, enc: enc, btn: btn, lastA: true, lastB: true, lastBtn: true}

	// Seed the caches with a real read so Prime sees actual line state.
	l.EncoderLevels()
	l.ButtonLevel()

	return l, nil
}

// requestLines issues GPIO_V2_GET_LINE_IOCTL for the given offsets and
// returns the line request fd.
func requestLines(chip *os.File, offsets []int, flags uint64) (int, error) {
	var req unix.GpioV2LineRequest
	for i, off := range offsets {
		req.Offsets[i] = uint32(off)
	}
	req.Num_lines = uint32(len(offsets))
	req.Config.Flags = flags
	copy(req.Consumer[:], lineConsumer)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, chip.Fd(),
		uintptr(unix.GPIO_V2_GET_LINE_IOCTL), uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return 0, errno
	}
	return int(req.Fd), nil
}

// getValues reads the current levels of a line request via
// GPIO_V2_LINE_GET_VALUES_IOCTL. Bit i of the result corresponds to the
// i-th requested offset.
func getValues(fd int, mask uint64) (uint64, error) {
	vals := unix.GpioV2LineValues{Mask: mask}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		uintptr(unix.GPIO_V2_LINE_GET_VALUES_IOCTL), uintptr(unsafe.Pointer(&vals)))
	if errno != 0 {
		return 0, errno
	}
	return vals.Bits, nil
}

// EncoderLevels reads both phase lines. On a transient ioctl failure the
// last good reading is returned; a persistently broken request also fails
// the Watch loop, which is where the error surfaces.
func (l *ChardevLines) EncoderLevels() (bool, bool) {
	bits, err := getValues(l.enc, 0b11)
	if err != nil {
		return l.lastA, l.lastB
	}
	l.lastA = bits&0b01 != 0
	l.lastB = bits&0b10 != 0
	return l.lastA, l.lastB
}

// ButtonLevel reads the button line (true = high/released).
func (l *ChardevLines) ButtonLevel() bool {
	bits, err := getValues(l.btn, 0b1)
	if err != nil {
		return l.lastBtn
	}
	l.lastBtn = bits&0b1 != 0
	return l.lastBtn
}

// Watch delivers one onEdge call per encoder line event until ctx is done.
// Timestamps come from the kernel's realtime event clock, so debounce and
// acceleration windows measure actual electrical timing rather than
// scheduling latency.
func (l *ChardevLines) Watch(ctx context.Context, onEdge func(at time.Time)) error {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	event := unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(l.enc),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, l.enc, &event); err != nil {
		return fmt.Errorf("epoll_ctl_add fd=%d: %w", l.enc, err)
	}

	// Reusable buffers; one kernel event per read.
	epollEvents := make([]unix.EpollEvent, 4)
	evSize := binary.Size(unix.GpioV2LineEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollTimeoutMS)
		if err != nil {
			// Handle interrupted system call (e.g., SIGINT)
			if err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return fmt.Errorf("encoder line error/hangup (fd=%d)", l.enc)
			}

			if _, err := unix.Read(l.enc, buf); err != nil {
				if err == syscall.EINTR {
					continue
				}
				return fmt.Errorf("read gpio event: %w", err)
			}

			// Parse binary event
			reader.Reset(buf)
			var ev unix.GpioV2LineEvent
			if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
				// Skip malformed events
				continue
			}

			onEdge(time.Unix(0, int64(ev.Timestamp_ns)))
		}
	}
}

// Close releases both line requests and the chip.
func (l *ChardevLines) Close() error {
	unix.Close(l.enc)
	unix.Close(l.btn)
	return l.chip.Close()
}
