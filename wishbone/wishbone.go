// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package wishbone implements a Wishbone classic single cycle slave exposing
// exactly one register.
//
// A request is qualified by CYC and STB. If ADR matches the configured
// register offset, the slave latches DAT_I (write) or returns the register on
// DAT_O (read) and asserts ACK; any other address asserts ERR with zero data.
// Completion signals are registered: they are asserted during the cycle that
// follows the edge on which the request was sampled, and they are generated
// again on every cycle the master keeps the request asserted. RTY is never
// asserted.
//
// SEL bits beyond the bus width are ignored. Unlike Wishbone B4, a zero SEL
// selects all byte lanes; a non zero SEL selecting no valid lane completes the
// cycle without touching the register.
//
package wishbone

import (
	"github.com/db47h/hwbus/regbus"
	"github.com/pkg/errors"
)

// Config is the slave configuration.
//
type Config struct {
	AddrWidth  int    // address bus width in bits, 1 to 64. Defaults to 32.
	DataWidth  int    // data bus width: 8, 16, 32 or 64. Defaults to 32.
	RegAddr    uint64 // offset of the register.
	ResetValue uint64 // register content after reset.
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
	switch c.DataWidth {
	case 8, 16, 32, 64:
	default:
		return errors.Errorf("invalid data width %d", c.DataWidth)
	}
	if c.RegAddr&^regbus.Mask(c.AddrWidth) != 0 {
		return errors.Errorf("register offset %#x does not fit in %d address bits", c.RegAddr, c.AddrWidth)
	}
	return nil
}

// Inputs are the slave input signals sampled on a rising clock edge.
//
type Inputs struct {
	Reset bool // RST_I
	Cyc   bool // CYC_I
	Stb   bool // STB_I
	We    bool // WE_I
	Adr   uint64
	DatI  uint64
	Sel   uint8 // byte lane select, one bit per byte. Zero selects all lanes.
}

// Outputs are the registered slave outputs.
//
type Outputs struct {
	DatO uint64
	Ack  bool
	Err  bool
	Rty  bool
	Reg  regbus.Request
}

// Slave is a Wishbone register slave.
//
type Slave struct {
	cfg   Config
	amask uint64
	dmask uint64
	reg   uint64
	out   Outputs
}

// New returns a new Slave in its reset state.
//
func New(cfg Config) (*Slave, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "wishbone")
	}
	s := &Slave{
		cfg:   cfg,
		amask: regbus.Mask(cfg.AddrWidth),
		dmask: regbus.Mask(cfg.DataWidth),
	}
	s.Reset()
	return s, nil
}

// Config returns the slave configuration with defaults applied.
//
func (s *Slave) Config() Config { return s.cfg }

// Register returns the current register content.
//
func (s *Slave) Register() uint64 { return s.reg }

// Outputs returns the outputs driven since the last step.
//
func (s *Slave) Outputs() Outputs { return s.out }

// Reset forces the slave to its reset state.
//
func (s *Slave) Reset() {
	s.reg = s.cfg.ResetValue & s.dmask
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
	s.out = Outputs{}
	if !in.Cyc || !in.Stb {
		return s.out
	}
	addr := in.Adr & s.amask
	if addr != s.cfg.RegAddr {
		s.out.Err = true
		return s.out
	}
	if in.We {
		if lanes := s.lanes(in.Sel); lanes != 0 {
			s.reg = s.reg&^lanes | in.DatI&lanes
			s.out.Reg = regbus.Write(addr, s.reg)
		}
	} else {
		s.out.DatO = s.reg
		s.out.Reg = regbus.Read(addr)
	}
	s.out.Ack = true
	return s.out
}

// lanes returns the data mask selected by sel. Bits of sel past the last byte
// lane are ignored.
//
func (s *Slave) lanes(sel uint8) uint64 {
	if sel == 0 {
		return s.dmask
	}
	var m uint64
	for i := 0; i < s.cfg.DataWidth/8; i++ {
		if sel&(1<<uint(i)) != 0 {
			m |= 0xff << uint(8*i)
		}
	}
	return m
}
