// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwbus

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// A Component is a component in a circuit that can Get and Set pin states.
//
type Component func(c *Circuit)

// A MountFn mounts a part into socket s. MountFn's should query
// the socket for assigned pin numbers and return closures around
// these pin numbers.
//
// A clocked part typically samples its inputs on the rising edge of the
// circuit clock and drives its outputs on every step:
//
//	Mount: func(s *hwbus.Socket) []hwbus.Component {
//		in, out := s.Pin("in"), s.Pin("out")
//		var q bool
//		return []hwbus.Component{
//			func(c *hwbus.Circuit) {
//				if c.AtTick() {
//					q = c.Get(in)
//				}
//				c.Set(out, q)
//			}}
//	}
//
type MountFn func(s *Socket) []Component

// A PartSpec wraps a part specification (its blueprint).
//
type PartSpec struct {
	// Part name.
	Name string
	// Input pin names. Use IO to expand a description like "a, bus[2]".
	Inputs []string
	// Output pin names.
	Outputs []string
	// Mount function (see MountFn).
	Mount MountFn
}

// NewPart is a NewPartFn that wraps p with the given connections into a Part.
// It panics if the connection string is invalid.
//
// Buses can be connected as a whole when both sides use the same width:
// "out=data" is equivalent to "out[0..7]=data[0..7]" for an 8 bits bus "out".
//
func (p *PartSpec) NewPart(connections string) Part {
	conns, err := ParseConnections(connections)
	if err != nil {
		panic(errors.Wrap(err, p.Name))
	}
	return Part{p, p.expandBuses(conns)}
}

const (
	dirInput = iota + 1
	dirOutput
)

func (p *PartSpec) pins() map[string]int {
	m := make(map[string]int, len(p.Inputs)+len(p.Outputs))
	for _, n := range p.Inputs {
		m[n] = dirInput
	}
	for _, n := range p.Outputs {
		m[n] = dirOutput
	}
	return m
}

// expandBuses replaces whole bus connections by individual pin connections.
//
func (p *PartSpec) expandBuses(conns []Connection) []Connection {
	pins := p.pins()
	out := make([]Connection, 0, len(conns))
	for _, cn := range conns {
		if _, ok := pins[cn.PP]; ok {
			out = append(out, cn)
			continue
		}
		n := 0
		for ; pins[BusPinName(cn.PP, n)] != 0; n++ {
		}
		if n == 0 {
			// unknown pin, Chip will report it.
			out = append(out, cn)
			continue
		}
		for i := 0; i < n; i++ {
			cp := cn.CP
			if !isConstant(cp) {
				cp = BusPinName(cp, i)
			}
			out = append(out, Connection{BusPinName(cn.PP, i), cp})
		}
	}
	return out
}

// A NewPartFn is a function that takes a connection configuration and returns a
// new Part. See ParseConnections for the syntax of the connection configuration
// string.
//
type NewPartFn func(c string) Part

// A Part wraps a part specification together with its connections within a host
// chip.
//
type Part struct {
	*PartSpec
	Conns []Connection
}

// Parts is a convenience wrapper for []Part.
//
type Parts []Part

// Circuit is a runnable circuit simulation.
//
type Circuit struct {
	s0    []bool // wire states frame #0
	s1    []bool // wire states frame #1
	cs    []Component
	count int  // wire count
	tpc   uint // ticks per clock cycle
	tick  uint

	wc []chan struct{}
	wg sync.WaitGroup
}

// NewCircuit builds a new circuit based on the given parts.
//
// workers is the number of goroutines used to update the state of the Circuit
// each step of the simulation. If less or equal to 0, the value of GOMAXPROCS
// will be used.
//
// stepsPerCycle indicates how many simulation steps to run per clock cycle.
// It is rounded up to the next power of two, with a minimum of 2.
//
// Callers must make sure to call Dispose() once the circuit is no longer needed
// in order to release allocated resources.
//
func NewCircuit(workers int, stepsPerCycle uint, parts ...Part) (*Circuit, error) {
	if len(parts) == 0 {
		return nil, errors.New("empty part list")
	}

	tpc := uint(2)
	for tpc < stepsPerCycle {
		tpc <<= 1
	}

	// new circuit with room for constant value pins.
	cc := &Circuit{count: cstCount, tpc: tpc}
	wrap, err := Chip("CIRCUIT", "", "", parts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chip wrapper")
	}
	ups := newSocket(cc).Mount(wrap(""))
	ups = append(ups, updClock)
	cc.cs = ups
	cc.s0 = make([]bool, cc.count)
	cc.s1 = make([]bool, cc.count)
	// init constant pins
	cc.s0[cstClk] = true
	cc.s0[cstTrue] = true
	cc.s1[cstTrue] = true

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	for len(ups) > 0 {
		size := len(ups) / workers
		if size*workers < len(ups) {
			size++
		}
		wc := make(chan struct{}, 1)
		cc.wc = append(cc.wc, wc)
		go worker(cc, ups[:size], wc)
		ups = ups[size:]
	}

	return cc, nil
}

func updClock(c *Circuit) {
	if c.s0[cstFalse] || !c.s0[cstTrue] {
		panic("true or false constants have been overwritten")
	}

	tick := c.tick + 1
	if tick&(c.tpc-1) == 0 {
		c.s1[cstClk] = true
	} else if tick&(c.tpc/2-1) == 0 {
		c.s1[cstClk] = false
	} else {
		c.s1[cstClk] = c.s0[cstClk]
	}
}

// Dispose releases all resources allocated for a circuit and stops
// worker goroutines.
//
func (c *Circuit) Dispose() {
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		close(wc)
	}
	c.wg.Wait()
}

func worker(c *Circuit, cs []Component, wc <-chan struct{}) {
	for range wc {
		for _, f := range cs {
			f(c)
		}
		c.wg.Done()
	}
	c.wg.Done()
}

// allocPin allocates a pin and returns its number.
//
func (c *Circuit) allocPin() int {
	cnt := c.count
	c.count++
	return cnt
}

// Steps returns the value of the step counter.
//
func (c *Circuit) Steps() uint {
	return c.tick
}

// SPC returns the stepsPerCycle value.
//
func (c *Circuit) SPC() uint {
	return c.tpc
}

// Cycles returns the number of rising clock edges seen so far.
//
func (c *Circuit) Cycles() uint {
	return (c.tick + c.tpc - 1) / c.tpc
}

// AtTick returns true if the current step is at the beginning of a clock cycle
// (raising edge of Clk).
//
func (c *Circuit) AtTick() bool {
	return c.tick&(c.tpc-1) == 0
}

// AtTock returns true if the current step is at the beginning of the second
// half of a clock cycle (falling edge of Clk).
//
func (c *Circuit) AtTock() bool {
	return (c.tick+c.tpc/2)&(c.tpc-1) == 0
}

// Get returns the state of pin n. The value of n should be obtained in a
// MountFn by a call to one of the Socket methods.
//
func (c *Circuit) Get(n int) bool {
	return c.s0[n]
}

// Set sets the state s of pin n. The value of n should be obtained in a
// MountFn by a call to one of the Socket methods.
//
func (c *Circuit) Set(n int, s bool) {
	c.s1[n] = s
}

// GetUint returns the state of a bus as an unsigned integer. pins[0] is the
// least significant bit.
//
func (c *Circuit) GetUint(pins []int) uint64 {
	var v uint64
	for bit, n := range pins {
		if c.s0[n] {
			v |= 1 << uint(bit)
		}
	}
	return v
}

// SetUint sets the state of a bus to the given value. Bits beyond len(pins)
// are ignored.
//
func (c *Circuit) SetUint(pins []int, v uint64) {
	for bit, n := range pins {
		c.s1[n] = v&(1<<uint(bit)) != 0
	}
}

// Step advances the simulation by one step.
//
func (c *Circuit) Step() {
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		wc <- struct{}{}
	}

	c.wg.Wait()
	c.tick++
	c.s0, c.s1 = c.s1, c.s0
}

// Tick runs the simulation until the beginning of the next half clock cycle.
//
func (c *Circuit) Tick() {
	for c.Get(cstClk) {
		c.Step()
	}
}

// Tock runs the simulation until the beginning of the next clock cycle.
// Once Tock returns, the output of clocked components should have stabilized.
//
func (c *Circuit) Tock() {
	for !c.Get(cstClk) {
		c.Step()
	}
}

// TickTock runs the simulation for a whole clock cycle.
//
func (c *Circuit) TickTock() {
	c.Tick()
	c.Tock()
}

// Size returns the component count in the circuit.
//
func (c *Circuit) Size() int { return len(c.cs) }
