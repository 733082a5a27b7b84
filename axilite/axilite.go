// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package axilite implements an AXI4-Lite register slave.
//
// Every accepted write issues exactly one register write on the regbus side and
// every accepted read exactly one register read. The slave serves one
// transaction at a time: a read is not accepted while a write is in flight and
// vice versa, and a write wins when both address channels become valid on the
// same edge.
//
// The slave has no error path: every response is OKAY, including for addresses
// the register store does not map. Masters that never assert BREADY or RREADY
// stall the slave forever; there is no timeout.
//
package axilite

import (
	"github.com/db47h/hwbus/regbus"
	"github.com/pkg/errors"
)

// Resp is an AXI response code.
//
type Resp uint8

// Response codes. The slave only ever answers OKAY.
//
const (
	OKAY Resp = iota
	EXOKAY
	SLVERR
	DECERR
)

func (r Resp) String() string {
	switch r {
	case OKAY:
		return "OKAY"
	case EXOKAY:
		return "EXOKAY"
	case SLVERR:
		return "SLVERR"
	case DECERR:
		return "DECERR"
	}
	return "Resp(?)"
}

// WriteState is the state of the write channels.
//
type WriteState uint8

// Write states.
//
const (
	WriteIdle WriteState = iota
	AddrAccepted
	DataAccepted
	Responding
)

var writeStates = [...]string{"WriteIdle", "AddrAccepted", "DataAccepted", "Responding"}

func (s WriteState) String() string {
	if int(s) < len(writeStates) {
		return writeStates[s]
	}
	return "WriteState(?)"
}

// ReadState is the state of the read channels.
//
type ReadState uint8

// Read states.
//
const (
	ReadIdle ReadState = iota
	AddrLatched
	DataValid
)

var readStates = [...]string{"ReadIdle", "AddrLatched", "DataValid"}

func (s ReadState) String() string {
	if int(s) < len(readStates) {
		return readStates[s]
	}
	return "ReadState(?)"
}

// Config is the slave configuration.
//
type Config struct {
	AddrWidth int // 1 to 64, defaults to 32
	DataWidth int // 32 or 64, defaults to 32
}

func (c Config) withDefaults() Config {
	if c.AddrWidth == 0 {
		c.AddrWidth = 32
	}
	if c.DataWidth == 0 {
		c.DataWidth = 32
	}
	return c
}

func (c Config) validate() error {
	if c.AddrWidth < 1 || c.AddrWidth > 64 {
		return errors.Errorf("invalid address width %d", c.AddrWidth)
	}
	if c.DataWidth != 32 && c.DataWidth != 64 {
		return errors.Errorf("invalid data width %d", c.DataWidth)
	}
	return nil
}

// Inputs are the slave inputs sampled on a rising clock edge.
//
type Inputs struct {
	Reset bool

	// write address channel
	AWValid bool
	AWAddr  uint64
	// write data channel
	WValid bool
	WData  uint64
	// write response channel
	BReady bool
	// read address channel
	ARValid bool
	ARAddr  uint64
	// read data channel
	RReady bool

	// ReadData is the register store's answer to the read request issued on
	// the previous cycle.
	ReadData uint64
}

// Outputs are the registered slave outputs.
//
type Outputs struct {
	AWReady bool
	WReady  bool
	BValid  bool
	BResp   Resp
	ARReady bool
	RValid  bool
	RData   uint64
	RResp   Resp

	Reg regbus.Request
}

// Slave is an AXI4-Lite register slave.
//
type Slave struct {
	cfg   Config
	amask uint64
	dmask uint64

	ws    WriteState
	rs    ReadState
	waddr uint64
	wdata uint64
	raddr uint64
	out   Outputs
}

// New returns a new Slave in its reset state.
//
func New(cfg Config) (*Slave, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "axilite")
	}
	return &Slave{
		cfg:   cfg,
		amask: regbus.Mask(cfg.AddrWidth),
		dmask: regbus.Mask(cfg.DataWidth),
	}, nil
}

// Config returns the slave configuration with defaults applied.
//
func (s *Slave) Config() Config { return s.cfg }

// State returns the state of the write and read state machines.
//
func (s *Slave) State() (WriteState, ReadState) { return s.ws, s.rs }

// Latched returns the latched write address, write data and read address.
//
func (s *Slave) Latched() (waddr, wdata, raddr uint64) { return s.waddr, s.wdata, s.raddr }

// Outputs returns the outputs driven since the last step.
//
func (s *Slave) Outputs() Outputs { return s.out }

// Reset forces the slave to its reset state.
//
func (s *Slave) Reset() {
	s.ws, s.rs = WriteIdle, ReadIdle
	s.waddr, s.wdata, s.raddr = 0, 0, 0
	s.out = Outputs{}
}

// Step advances the slave by one clock cycle and returns its outputs for the
// next cycle.
//
func (s *Slave) Step(in Inputs) Outputs {
	if in.Reset {
		s.Reset()
		return s.out
	}
	s.out.Reg = regbus.Request{}
	ws, rs := s.ws, s.rs
	s.stepWrite(in, rs == ReadIdle)
	s.stepRead(in, ws == WriteIdle && !in.AWValid)
	return s.out
}

func (s *Slave) stepWrite(in Inputs, accept bool) {
	switch s.ws {
	case WriteIdle:
		if in.AWValid && accept {
			s.waddr = in.AWAddr & s.amask
			s.out.AWReady = true
			s.ws = AddrAccepted
		}
	case AddrAccepted:
		s.out.AWReady = false
		if in.WValid {
			s.wdata = in.WData & s.dmask
			s.out.WReady = true
			s.ws = DataAccepted
		}
	case DataAccepted:
		s.out.WReady = false
		s.out.Reg = regbus.Write(s.waddr, s.wdata)
		s.out.BValid = true
		s.out.BResp = OKAY
		s.ws = Responding
	case Responding:
		if in.BReady {
			s.out.BValid = false
			s.ws = WriteIdle
		}
	}
}

func (s *Slave) stepRead(in Inputs, accept bool) {
	switch s.rs {
	case ReadIdle:
		if in.ARValid && accept {
			s.raddr = in.ARAddr & s.amask
			s.out.ARReady = true
			s.out.Reg = regbus.Read(s.raddr)
			s.rs = AddrLatched
		}
	case AddrLatched:
		s.out.ARReady = false
		s.out.RData = in.ReadData & s.dmask
		s.out.RValid = true
		s.out.RResp = OKAY
		s.rs = DataValid
	case DataValid:
		if in.RReady {
			s.out.RValid = false
			s.rs = ReadIdle
		}
	}
}
