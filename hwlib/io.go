// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/hwbus"
)

// Input creates a function based input.
//
//	Outputs: out
//	Function: out = f()
//
func Input(f func() bool) hwbus.NewPartFn {
	p := &hwbus.PartSpec{
		Name:    "Input",
		Outputs: []string{pOut},
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			pin := s.Pin(pOut)
			return []hwbus.Component{
				func(c *hwbus.Circuit) {
					c.Set(pin, f())
				},
			}
		},
	}
	return p.NewPart
}

// Output creates an output or probe. The fn function is
// called with the named pin state on every circuit update.
//
//	Inputs: in
//	Function: f(in)
//
func Output(f func(bool)) hwbus.NewPartFn {
	p := &hwbus.PartSpec{
		Name:   "Output",
		Inputs: []string{pIn},
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			in := s.Pin(pIn)
			return []hwbus.Component{
				func(c *hwbus.Circuit) { f(c.Get(in)) },
			}
		},
	}
	return p.NewPart
}

// InputN creates an input bus of the given bits size.
//
//	Outputs: out[bits]
//	Function: out = f()
//
func InputN(bits int, f func() uint64) hwbus.NewPartFn {
	return (&hwbus.PartSpec{
		Name:    "INPUT" + strconv.Itoa(bits),
		Outputs: bus(bits, pOut),
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			pins := s.Bus(pOut, bits)
			return []hwbus.Component{func(c *hwbus.Circuit) {
				c.SetUint(pins, f())
			}}
		}}).NewPart
}

// OutputN creates an output bus of the given bits size.
//
//	Inputs: in[bits]
//	Function: f(in)
//
func OutputN(bits int, f func(uint64)) hwbus.NewPartFn {
	return (&hwbus.PartSpec{
		Name:   "OUTPUT" + strconv.Itoa(bits),
		Inputs: bus(bits, pIn),
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			pins := s.Bus(pIn, bits)
			return []hwbus.Component{func(c *hwbus.Circuit) {
				f(c.GetUint(pins))
			}}
		}}).NewPart
}

// PullUp returns a pulled-up open-drain line shared by n participants. Each
// participant pulls the line low by setting its output enable.
//
//	Inputs: oe[n]
//	Outputs: out
//	Function: out = !(oe[0] || oe[1] || ... || oe[n-1])
//
func PullUp(n int) hwbus.NewPartFn {
	return (&hwbus.PartSpec{
		Name:    "PULLUP" + strconv.Itoa(n),
		Inputs:  bus(n, pOE),
		Outputs: []string{pOut},
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			oe, out := s.Bus(pOE, n), s.Pin(pOut)
			return []hwbus.Component{func(c *hwbus.Circuit) {
				c.Set(out, c.GetUint(oe) == 0)
			}}
		}}).NewPart
}
