// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides a library of reusable parts for hwbus circuits:
// elementary logic gates, function based inputs and outputs used as stimulus
// and probes, and a pulled-up open-drain line.
//
package hwlib

import (
	"strconv"

	"github.com/db47h/hwbus"
)

// common pin names
//
const (
	pA   = "a"
	pB   = "b"
	pIn  = "in"
	pOut = "out"
	pOE  = "oe"
)

// make a bus name
//
func bus(bits int, name string) []string {
	return hwbus.IO(name + "[" + strconv.Itoa(bits) + "]")
}

func unary(name string, fn func(bool) bool) *hwbus.PartSpec {
	return &hwbus.PartSpec{
		Name:    name,
		Inputs:  []string{pIn},
		Outputs: []string{pOut},
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			in, out := s.Pin(pIn), s.Pin(pOut)
			return []hwbus.Component{
				func(c *hwbus.Circuit) { c.Set(out, fn(c.Get(in))) },
			}
		},
	}
}

// other gates
//
type gate func(a, b bool) bool

func (g gate) mount(s *hwbus.Socket) []hwbus.Component {
	a, b, out := s.Pin(pA), s.Pin(pB), s.Pin(pOut)
	return []hwbus.Component{
		func(c *hwbus.Circuit) { c.Set(out, g(c.Get(a), c.Get(b))) },
	}
}

func newGate(name string, fn func(a, b bool) bool) *hwbus.PartSpec {
	return &hwbus.PartSpec{
		Name:    name,
		Inputs:  []string{pA, pB},
		Outputs: []string{pOut},
		Mount:   gate(fn).mount,
	}
}

var (
	not  = unary("NOT", func(in bool) bool { return !in })
	buf  = unary("BUF", func(in bool) bool { return in })
	and  = newGate("AND", func(a, b bool) bool { return a && b })
	nand = newGate("NAND", func(a, b bool) bool { return !(a && b) })
	or   = newGate("OR", func(a, b bool) bool { return a || b })
	nor  = newGate("NOR", func(a, b bool) bool { return !(a || b) })
	xor  = newGate("XOR", func(a, b bool) bool { return a != b })
)

// Not returns a NOT gate (inverter).
//
//	Inputs: in
//	Outputs: out
//	Function: out = !in
//
func Not(w string) hwbus.Part { return not.NewPart(w) }

// Buf returns a buffer (driver).
//
//	Inputs: in
//	Outputs: out
//	Function: out = in
//
func Buf(w string) hwbus.Part { return buf.NewPart(w) }

// And returns a AND gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a && b
//
func And(w string) hwbus.Part { return and.NewPart(w) }

// Nand returns a NAND gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = !(a && b)
//
func Nand(w string) hwbus.Part { return nand.NewPart(w) }

// Or returns a OR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a || b
//
func Or(w string) hwbus.Part { return or.NewPart(w) }

// Nor returns a NOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = !(a || b)
//
func Nor(w string) hwbus.Part { return nor.NewPart(w) }

// Xor returns a XOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a != b
//
func Xor(w string) hwbus.Part { return xor.NewPart(w) }
