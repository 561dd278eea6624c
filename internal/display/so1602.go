package display

import (
	"fmt"
	"time"

	"github.com/davecheney/i2c"
)

// SO1602 drives the front panel's 16x2 character OLED over i2c. The
// controller speaks the ST7032 instruction set: control byte 0x00 prefixes
// commands, 0x40 prefixes display data.
type SO1602 struct {
	dev *i2c.I2C
}

// OpenSO1602 opens the display on the given i2c bus and address and runs
// the power-on init sequence.
func OpenSO1602(bus, addr int) (*SO1602, error) {
	dev, err := i2c.New(uint8(addr), bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %d addr %#02x: %w", bus, addr, err)
	}

	d := &SO1602{dev: dev}

	// Power-on init: wait for the booster, clear, home, display on without
	// cursor. Clear and home are the slow instructions and need settle time.
	time.Sleep(100 * time.Millisecond)
	if err := d.command(0x01); err != nil {
		dev.Close()
		return nil, fmt.Errorf("clear display: %w", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := d.command(0x02); err != nil {
		dev.Close()
		return nil, fmt.Errorf("home cursor: %w", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := d.command(0x0c); err != nil {
		dev.Close()
		return nil, fmt.Errorf("display on: %w", err)
	}

	return d, nil
}

// command sends one instruction byte.
func (d *SO1602) command(c byte) error {
	_, err := d.dev.Write([]byte{0x00, c})
	return err
}

// WriteRow positions the DDRAM cursor at the start of the row and writes
// one full padded line. Row 1 starts at DDRAM address 0x20.
func (d *SO1602) WriteRow(row int, text string) error {
	if row < 0 || row >= Rows {
		return fmt.Errorf("row %d out of range", row)
	}

	if err := d.command(0x80 + byte(row)*0x20); err != nil {
		return fmt.Errorf("set ddram address: %w", err)
	}

	buf := make([]byte, 0, Width+1)
	buf = append(buf, 0x40)
	buf = append(buf, padRow(text)...)
	if _, err := d.dev.Write(buf); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// Clear blanks the display.
func (d *SO1602) Clear() error {
	if err := d.command(0x01); err != nil {
		return fmt.Errorf("clear display: %w", err)
	}
	time.Sleep(20 * time.Millisecond)
	return nil
}

// Close switches the panel off and releases the bus. A stale UI left
// glowing on an OLED burns in, so blank it first.
func (d *SO1602) Close() error {
	d.command(0x08)
	return d.dev.Close()
}
