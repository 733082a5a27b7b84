// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package i2c implements an I2C slave controller with 7 bit addressing.
//
// The controller samples SCL and SDA once per reference clock cycle and keeps
// the previous samples to detect edges. A start condition (SDA falling while
// SCL stays high) or a stop condition (SDA rising while SCL stays high) takes
// priority over the byte level state machine, whatever its state. Reset takes
// priority over both.
//
// Data is sampled on SCL rising edges and SDA is only changed on SCL falling
// edges. The controller never drives SDA high: it either pulls the line low or
// releases it.
//
// On the application side, each received byte is issued as a register write
// and each byte to send is fetched with a register read issued at least one
// SCL phase ahead. The register address is the index of the byte within the
// current transfer.
//
package i2c

import (
	"github.com/db47h/hwbus"
	"github.com/db47h/hwbus/regbus"
	"github.com/pkg/errors"
)

// State is the controller state.
//
type State uint8

// Controller states.
//
const (
	Idle State = iota
	StartDetected
	AddressPhase
	AckPhase // the controller acknowledges a byte
	DataPhaseWrite
	DataPhaseRead
	HostAckPhase // the host acknowledges a byte sent by the controller
	StopDetected
)

var states = [...]string{
	"Idle", "StartDetected", "AddressPhase", "AckPhase",
	"DataPhaseWrite", "DataPhaseRead", "HostAckPhase", "StopDetected",
}

func (s State) String() string {
	if int(s) < len(states) {
		return states[s]
	}
	return "State(?)"
}

// Config is the controller configuration.
//
type Config struct {
	Address uint8 // 7 bit slave address
}

func (c Config) validate() error {
	if c.Address > 0x7f {
		return errors.Errorf("invalid 7 bit address %#x", c.Address)
	}
	return nil
}

// Inputs are the controller inputs sampled on a rising reference clock edge.
//
type Inputs struct {
	Reset bool
	SCL   bool // observed SCL level
	SDA   bool // observed SDA level

	// ReadData is the register store's answer to the read request issued on
	// the previous cycle.
	ReadData uint8
}

// Outputs are the registered controller outputs.
//
type Outputs struct {
	SDA   hwbus.Driver   // SDA output, Released or Low
	Reg   regbus.Request // application side
	Ack   bool           // the controller is acknowledging a byte
	Nack  bool           // one cycle pulse: address mismatch
	Start bool           // one cycle pulse: start or repeated start detected
	Stop  bool           // one cycle pulse: stop detected
}

// Slave is an I2C slave controller.
//
type Slave struct {
	cfg Config

	state State
	scl   bool // previous samples
	sda   bool
	shift uint8
	bits  int // bits shifted in or out in the current byte
	read  bool
	index uint64 // byte index in the current transfer
	tx    uint8
	fetch bool // a read request is pending
	out   Outputs
}

// New returns a new Slave in its reset state.
//
func New(cfg Config) (*Slave, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "i2c")
	}
	s := &Slave{cfg: cfg}
	s.Reset()
	return s, nil
}

// Config returns the controller configuration.
//
func (s *Slave) Config() Config { return s.cfg }

// State returns the current state.
//
func (s *Slave) State() State { return s.state }

// ShiftIndex returns the number of bits shifted in or out of the current
// byte. It never exceeds 8.
//
func (s *Slave) ShiftIndex() int { return s.bits }

// Shift returns the content of the shift register.
//
func (s *Slave) Shift() uint8 { return s.shift }

// Outputs returns the outputs driven since the last step.
//
func (s *Slave) Outputs() Outputs { return s.out }

// Reset forces the controller to its reset state. The previous line samples
// are set to the idle bus level (both lines high).
//
func (s *Slave) Reset() {
	s.state = Idle
	s.scl, s.sda = true, true
	s.shift, s.bits, s.index, s.tx = 0, 0, 0, 0
	s.read, s.fetch = false, false
	s.out = Outputs{}
}

// Step advances the controller by one reference clock cycle and returns its
// outputs for the next cycle.
//
func (s *Slave) Step(in Inputs) Outputs {
	if in.Reset {
		s.Reset()
		return s.out
	}
	pscl, psda := s.scl, s.sda
	s.scl, s.sda = in.SCL, in.SDA

	s.out.Reg = regbus.Request{}
	s.out.Nack, s.out.Start, s.out.Stop = false, false, false
	if s.fetch {
		s.tx = in.ReadData
		s.fetch = false
	}

	if pscl && in.SCL {
		switch {
		case psda && !in.SDA:
			s.begin()
			return s.out
		case !psda && in.SDA:
			s.release()
			s.state = StopDetected
			s.out.Stop = true
			return s.out
		}
	}

	rise := !pscl && in.SCL
	fall := pscl && !in.SCL

	switch s.state {
	case StopDetected:
		s.state = Idle
	case StartDetected:
		if fall {
			s.state = AddressPhase
		}
	case AddressPhase:
		if rise && s.bits < 8 {
			s.shiftIn(in.SDA)
		}
		if fall && s.bits == 8 {
			if s.shift>>1 != s.cfg.Address {
				s.out.Nack = true
				s.state = Idle
				break
			}
			s.read = s.shift&1 != 0
			if s.read {
				s.request()
			}
			s.ack()
		}
	case AckPhase:
		if fall {
			s.release()
			s.shift, s.bits = 0, 0
			if s.read {
				s.state = DataPhaseRead
				s.load()
				s.sendBit()
			} else {
				s.state = DataPhaseWrite
			}
		}
	case DataPhaseWrite:
		if rise && s.bits < 8 {
			s.shiftIn(in.SDA)
			if s.bits == 8 {
				s.out.Reg = regbus.Write(s.index, uint64(s.shift))
				s.index++
			}
		}
		if fall && s.bits == 8 {
			s.ack()
		}
	case DataPhaseRead:
		if fall {
			if s.bits < 8 {
				s.sendBit()
			} else {
				s.release()
				s.bits = 0
				s.state = HostAckPhase
			}
		}
	case HostAckPhase:
		// bits counts the acknowledge bit sampled from the host.
		switch {
		case rise && s.bits == 0:
			s.bits = 1
			if !in.SDA {
				s.index++
				s.request()
			} else {
				// NACK: the host is done reading.
				s.read = false
			}
		case fall && s.bits == 1:
			s.bits = 0
			if s.read {
				s.state = DataPhaseRead
				s.load()
				s.sendBit()
			} else {
				s.state = Idle
			}
		}
	}
	return s.out
}

// begin handles a start or repeated start condition.
//
func (s *Slave) begin() {
	s.release()
	s.state = StartDetected
	s.shift, s.bits, s.index = 0, 0, 0
	s.read, s.fetch = false, false
	s.out.Start = true
}

func (s *Slave) release() {
	s.out.SDA = hwbus.Released
	s.out.Ack = false
}

func (s *Slave) ack() {
	s.out.SDA = hwbus.Low
	s.out.Ack = true
	s.state = AckPhase
}

func (s *Slave) shiftIn(b bool) {
	s.shift <<= 1
	if b {
		s.shift |= 1
	}
	s.bits++
}

// request issues a register read for the byte at the current index.
//
func (s *Slave) request() {
	s.out.Reg = regbus.Read(s.index)
	s.fetch = true
}

// load moves the fetched byte into the shift register.
//
func (s *Slave) load() {
	s.shift = s.tx
	s.bits = 0
}

// sendBit presents the next bit of the shift register on SDA.
//
func (s *Slave) sendBit() {
	s.out.SDA = hwbus.OpenDrain(s.shift&0x80 == 0)
	s.shift <<= 1
	s.bits++
}
