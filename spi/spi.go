// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package spi implements an SPI master controller.
//
// The master shifts a word out on MOSI while shifting a word in from MISO,
// most significant bit first unless configured otherwise. SCLK is derived from
// the reference clock: during a transfer it toggles every ClkDiv/2 reference
// cycles, starting from the idle level selected by the clock polarity. Outside
// of transfers SCLK rests at its idle level, CS_n is high and MOSI is low.
//
// The clock phase selects on which SCLK edge data is sampled:
//
//	Mode  CPOL  CPHA  idle  sample   shift
//	0     0     0     low   rising   falling
//	1     0     1     low   falling  rising
//	2     1     0     high  falling  rising
//	3     1     1     high  rising   falling
//
// With CPHA=0 the first bit is presented on MOSI before the first SCLK edge.
//
// A start request observed while a transfer is in flight is dropped and
// reported by a one cycle Overrun pulse. The in-flight transfer is not
// affected.
//
package spi

import (
	"github.com/db47h/hwbus/regbus"
	"github.com/pkg/errors"
)

// Mode is an SPI mode: bit 1 is the clock polarity, bit 0 the clock phase.
//
type Mode uint8

// SPI modes.
//
const (
	Mode0 Mode = iota // CPOL=0, CPHA=0
	Mode1             // CPOL=0, CPHA=1
	Mode2             // CPOL=1, CPHA=0
	Mode3             // CPOL=1, CPHA=1
)

// NewMode returns the mode for the given clock polarity and phase.
//
func NewMode(cpol, cpha bool) Mode {
	var m Mode
	if cpol {
		m |= 2
	}
	if cpha {
		m |= 1
	}
	return m
}

// CPOL returns the idle level of SCLK.
//
func (m Mode) CPOL() bool { return m&2 != 0 }

// CPHA returns true if data is sampled on the trailing edge.
//
func (m Mode) CPHA() bool { return m&1 != 0 }

// State is the controller state.
//
type State uint8

// Controller states.
//
const (
	Idle State = iota
	StartTransfer
	ShiftData
	EndTransfer
)

var states = [...]string{"Idle", "StartTransfer", "ShiftData", "EndTransfer"}

func (s State) String() string {
	if int(s) < len(states) {
		return states[s]
	}
	return "State(?)"
}

// Config is the master configuration.
//
type Config struct {
	WordWidth int  // bits per transfer, 1 to 64. Defaults to 8.
	ClkDiv    int  // reference cycles per SCLK period, even and >= 2. Defaults to 4.
	Mode      Mode // SPI mode
	LSBFirst  bool // shift the least significant bit first
}

func (c Config) withDefaults() Config {
	if c.WordWidth == 0 {
		c.WordWidth = 8
	}
	if c.ClkDiv == 0 {
		c.ClkDiv = 4
	}
	return c
}

func (c Config) validate() error {
	if c.WordWidth < 1 || c.WordWidth > 64 {
		return errors.Errorf("invalid word width %d", c.WordWidth)
	}
	if c.ClkDiv < 2 || c.ClkDiv&1 != 0 {
		return errors.Errorf("invalid clock divider %d", c.ClkDiv)
	}
	if c.Mode > Mode3 {
		return errors.Errorf("invalid mode %d", c.Mode)
	}
	return nil
}

// Inputs are the master inputs sampled on a rising reference clock edge.
//
type Inputs struct {
	Reset  bool
	Start  bool   // transfer request strobe
	TxData uint64 // word to send, sampled with Start
	MISO   bool
}

// Outputs are the registered master outputs.
//
type Outputs struct {
	SCLK    bool
	MOSI    bool
	CSn     bool   // active low chip select
	Done    bool   // one cycle completion pulse
	RxData  uint64 // received word, valid with Done
	Busy    bool   // a transfer is in flight
	Overrun bool   // one cycle pulse: a start request was dropped
}

// Master is an SPI master controller.
//
type Master struct {
	cfg  Config
	mask uint64
	half int

	state State
	div   int // reference cycles since the last SCLK toggle
	sclk  bool
	edges int // SCLK edges in the current transfer
	tx    uint64
	rx    uint64
	bit   int // bits shifted in
	out   Outputs
}

// New returns a new Master in its reset state.
//
func New(cfg Config) (*Master, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "spi")
	}
	m := &Master{
		cfg:  cfg,
		mask: regbus.Mask(cfg.WordWidth),
		half: cfg.ClkDiv / 2,
	}
	m.Reset()
	return m, nil
}

// Config returns the master configuration with defaults applied.
//
func (m *Master) Config() Config { return m.cfg }

// State returns the current state.
//
func (m *Master) State() State { return m.state }

// ShiftIndex returns the number of bits shifted in so far in the current
// transfer. It never exceeds the word width.
//
func (m *Master) ShiftIndex() int { return m.bit }

// Outputs returns the outputs driven since the last step.
//
func (m *Master) Outputs() Outputs { return m.out }

// Reset forces the master to its reset state.
//
func (m *Master) Reset() {
	m.state = Idle
	m.div, m.edges, m.bit = 0, 0, 0
	m.tx, m.rx = 0, 0
	m.sclk = m.cfg.Mode.CPOL()
	m.out = Outputs{SCLK: m.sclk, CSn: true}
}

// Step advances the master by one reference clock cycle and returns its
// outputs for the next cycle.
//
func (m *Master) Step(in Inputs) Outputs {
	if in.Reset {
		m.Reset()
		return m.out
	}
	m.out.Done = false
	m.out.Overrun = in.Start && m.state != Idle

	switch m.state {
	case Idle:
		if in.Start {
			m.tx = in.TxData & m.mask
			m.rx, m.bit, m.edges, m.div = 0, 0, 0, 0
			m.out.CSn = false
			m.state = StartTransfer
		}
	case StartTransfer:
		if !m.cfg.Mode.CPHA() {
			m.out.MOSI = m.shiftOut()
		}
		m.state = ShiftData
	case ShiftData:
		m.div++
		if m.div == m.half {
			m.div = 0
			m.sclk = !m.sclk
			m.edges++
			m.edge(in.MISO)
			if m.edges == 2*m.cfg.WordWidth {
				m.state = EndTransfer
			}
		}
	case EndTransfer:
		m.out.CSn = true
		m.out.MOSI = false
		m.out.Done = true
		m.out.RxData = m.rx
		m.state = Idle
	}

	m.out.SCLK = m.sclk
	m.out.Busy = m.state != Idle
	return m.out
}

// edge handles an SCLK transition. m.sclk holds the new level.
//
func (m *Master) edge(miso bool) {
	leading := m.sclk != m.cfg.Mode.CPOL()
	if leading != m.cfg.Mode.CPHA() {
		m.shiftIn(miso)
		return
	}
	// shift edge. With CPHA=0 the first bit went out before the first edge
	// and there is nothing left to send after the last one.
	if m.cfg.Mode.CPHA() || m.edges < 2*m.cfg.WordWidth {
		m.out.MOSI = m.shiftOut()
	}
}

func (m *Master) shiftOut() bool {
	var b bool
	if m.cfg.LSBFirst {
		b = m.tx&1 != 0
		m.tx >>= 1
	} else {
		b = m.tx&(1<<uint(m.cfg.WordWidth-1)) != 0
		m.tx = (m.tx << 1) & m.mask
	}
	return b
}

func (m *Master) shiftIn(b bool) {
	if m.bit >= m.cfg.WordWidth {
		return
	}
	var v uint64
	if b {
		v = 1
	}
	if m.cfg.LSBFirst {
		m.rx = m.rx>>1 | v<<uint(m.cfg.WordWidth-1)
	} else {
		m.rx = (m.rx<<1 | v) & m.mask
	}
	m.bit++
}

// Transfer runs a complete transfer of tx and returns the received word. For
// each cycle, miso is called with the outputs driven on the previous cycle and
// returns the MISO level to sample. Use a nil miso for a MOSI to MISO loopback.
// Transfer returns an error if a transfer is already in flight.
//
func (m *Master) Transfer(tx uint64, miso func(Outputs) bool) (uint64, error) {
	if m.state != Idle {
		return 0, errors.Errorf("spi: transfer in flight (%v)", m.state)
	}
	if miso == nil {
		miso = func(o Outputs) bool { return o.MOSI }
	}
	o := m.Step(Inputs{Start: true, TxData: tx, MISO: miso(m.out)})
	for !o.Done {
		o = m.Step(Inputs{MISO: miso(o)})
	}
	return o.RxData, nil
}
