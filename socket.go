// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwbus

import "strconv"

// Constant input pin names.
//
const (
	True  = "true"
	False = "false"
	GND   = "false"
	Clk   = "clk"
)

const (
	cstFalse = iota
	cstTrue
	cstClk
	cstCount
)

func isConstant(name string) bool {
	return name == True || name == False || name == Clk
}

// A Socket maps a part's pin names to pin numbers in a circuit.
//
type Socket struct {
	m map[string]int
	c *Circuit
}

func newSocket(c *Circuit) *Socket {
	return &Socket{
		m: map[string]int{False: cstFalse, True: cstTrue, Clk: cstClk},
		c: c,
	}
}

// Mount mounts the given sub-part and allocates new internal pins as necessary
// (according to pin mappings in p.Conns). Unconnected inputs are wired to
// False and unconnected outputs get a private pin.
//
func (s *Socket) Mount(p Part) []Component {
	sub := newSocket(s.c)
	for _, cn := range p.Conns {
		sub.m[cn.PP] = s.PinOrNew(cn.CP)
	}
	for _, n := range p.Inputs {
		if _, ok := sub.m[n]; !ok {
			sub.m[n] = cstFalse
		}
	}
	for _, n := range p.Outputs {
		if _, ok := sub.m[n]; !ok {
			sub.m[n] = s.c.allocPin()
		}
	}
	return p.PartSpec.Mount(sub)
}

// Pin returns the pin number allocated to the given pin name.
// This function panics if the pin does not exist.
//
func (s *Socket) Pin(name string) int {
	n, ok := s.m[name]
	if !ok {
		panic("pin " + name + " does not exist")
	}
	return n
}

// PinOrNew returns the pin number allocated to the given pin name.
// If no such pin exists a new one is allocated.
//
func (s *Socket) PinOrNew(name string) int {
	n, ok := s.m[name]
	if !ok {
		n = s.c.allocPin()
		s.m[name] = n
	}
	return n
}

// Bus returns the pin numbers allocated to the given bus name, least
// significant bit first. It panics if the bus does not exist or is not width
// bits wide.
//
func (s *Socket) Bus(name string, width int) []int {
	out := make([]int, width)
	for i := range out {
		n, ok := s.m[BusPinName(name, i)]
		if !ok {
			panic("bus " + name + " has no pin " + strconv.Itoa(i))
		}
		out[i] = n
	}
	if _, ok := s.m[BusPinName(name, width)]; ok {
		panic("bus " + name + " is wider than " + strconv.Itoa(width))
	}
	return out
}
