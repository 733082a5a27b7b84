// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

import "github.com/db47h/hwbus"

// I2CHost is a bit-banging I2C bus master used to drive a device under test.
// SCL is driven by the host only; SDA is an open-drain line shared with the
// device and pulled up.
//
// Every bus phase lasts Half reference cycles and SDA only changes while SCL
// is low, on the cycle following the SCL falling edge.
//
type I2CHost struct {
	// Step advances the device by one reference cycle given the observed bus
	// levels and returns the device's SDA driver for the next cycle.
	Step func(scl, sda bool) hwbus.Driver
	// Half is the number of reference cycles per SCL phase. Defaults to 2.
	Half int
	// Trace, if not nil, records scl, sda and sda_dev every cycle.
	Trace *Trace

	// Err is the first contention error seen on SDA.
	Err error

	busy bool
	sda  hwbus.Driver // host driver
	dev  hwbus.Driver // device driver
}

var i2cLine = hwbus.Line{Pull: true}

func (h *I2CHost) half() int {
	if h.Half <= 0 {
		return 2
	}
	return h.Half
}

// tick runs one reference cycle and returns the observed SDA level.
//
func (h *I2CHost) tick(scl bool, sda hwbus.Driver) bool {
	h.sda = sda
	lvl, err := i2cLine.Resolve(sda, h.dev)
	if err != nil && h.Err == nil {
		h.Err = err
	}
	if h.Trace != nil {
		h.Trace.Bit("scl", scl)
		h.Trace.Bit("sda", lvl)
		h.Trace.Bit("sda_dev", h.dev.Enable)
		h.Trace.Next()
	}
	h.dev = h.Step(scl, lvl)
	return lvl
}

func (h *I2CHost) phase(scl bool, sda hwbus.Driver) (lvl bool) {
	for i := 0; i < h.half(); i++ {
		lvl = h.tick(scl, sda)
	}
	return lvl
}

// Idle runs n cycles with SCL high and SDA released.
//
func (h *I2CHost) Idle(n int) {
	for i := 0; i < n; i++ {
		h.tick(true, hwbus.Released)
	}
}

// Start issues a start condition, or a repeated start if the bus is busy.
//
func (h *I2CHost) Start() {
	if h.busy {
		h.tick(false, h.sda)
		h.phase(false, hwbus.Released)
	}
	h.phase(true, hwbus.Released)
	h.phase(true, hwbus.Low)
	h.busy = true
}

// Stop issues a stop condition.
//
func (h *I2CHost) Stop() {
	h.tick(false, h.sda)
	h.phase(false, hwbus.Low)
	h.phase(true, hwbus.Low)
	h.phase(true, hwbus.Released)
	h.busy = false
}

// bit clocks one bit: SCL falls while the previous SDA level is held, then
// SDA is set during the low phase and sampled at the end of the high phase.
//
func (h *I2CHost) bit(sda hwbus.Driver) bool {
	h.tick(false, h.sda)
	h.phase(false, sda)
	return h.phase(true, sda)
}

// Write sends a byte, most significant bit first, and returns true if the
// device acknowledged it.
//
func (h *I2CHost) Write(b byte) bool {
	for i := 7; i >= 0; i-- {
		h.bit(hwbus.OpenDrain(b&(1<<uint(i)) == 0))
	}
	return !h.bit(hwbus.Released)
}

// Address sends a 7 bit address with the read/write bit and returns true if
// a device acknowledged it.
//
func (h *I2CHost) Address(addr uint8, read bool) bool {
	b := addr << 1
	if read {
		b |= 1
	}
	return h.Write(b)
}

// Read receives a byte and acknowledges it if ack is true.
//
func (h *I2CHost) Read(ack bool) byte {
	var b byte
	for i := 0; i < 8; i++ {
		b <<= 1
		if h.bit(hwbus.Released) {
			b |= 1
		}
	}
	h.bit(hwbus.OpenDrain(ack))
	return b
}
