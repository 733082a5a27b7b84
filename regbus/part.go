// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package regbus

import (
	"strconv"

	"github.com/db47h/hwbus"
)

// Pin names of the register interface in circuit parts.
//
const (
	PinAddr   = "reg_addr"
	PinWData  = "reg_wdata"
	PinRData  = "reg_rdata"
	PinRValid = "reg_rvalid"
	PinWValid = "reg_wvalid"
)

// RequestIO returns the names of the pins carrying a Request.
//
func RequestIO(addrWidth, dataWidth int) []string {
	return hwbus.IO(PinAddr + "[" + strconv.Itoa(addrWidth) + "], " +
		PinWData + "[" + strconv.Itoa(dataWidth) + "], " +
		PinRValid + ", " + PinWValid)
}

// ReadDataIO returns the names of the read data pins.
//
func ReadDataIO(dataWidth int) []string {
	return hwbus.IO(PinRData + "[" + strconv.Itoa(dataWidth) + "]")
}

// Pins holds the pin numbers of a mounted register interface.
//
type Pins struct {
	Addr   []int
	WData  []int
	RData  []int
	RValid int
	WValid int
}

// MountPins queries s for the register interface pins.
//
func MountPins(s *hwbus.Socket, addrWidth, dataWidth int) Pins {
	return Pins{
		Addr:   s.Bus(PinAddr, addrWidth),
		WData:  s.Bus(PinWData, dataWidth),
		RData:  s.Bus(PinRData, dataWidth),
		RValid: s.Pin(PinRValid),
		WValid: s.Pin(PinWValid),
	}
}

// SetRequest drives r on the request pins.
//
func (p *Pins) SetRequest(c *hwbus.Circuit, r Request) {
	c.SetUint(p.Addr, r.Addr)
	c.SetUint(p.WData, r.WriteData)
	c.Set(p.RValid, r.ReadValid)
	c.Set(p.WValid, r.WriteValid)
}

// Request returns the request currently on the request pins.
//
func (p *Pins) Request(c *hwbus.Circuit) Request {
	return Request{
		Addr:       c.GetUint(p.Addr),
		WriteData:  c.GetUint(p.WData),
		ReadValid:  c.Get(p.RValid),
		WriteValid: c.Get(p.WValid),
	}
}

// FilePart returns a register file part serving requests on its inputs from f.
// Writes are committed on the rising clock edge following the request. Read
// data is driven as soon as a read request is seen and held until the next
// one, so that the requesting adapter samples it on its next edge.
//
//	Inputs: reg_addr[addrWidth], reg_wdata[dataWidth], reg_rvalid, reg_wvalid
//	Outputs: reg_rdata[dataWidth]
//
func FilePart(f *File, addrWidth, dataWidth int) hwbus.NewPartFn {
	return (&hwbus.PartSpec{
		Name:    "REGFILE",
		Inputs:  RequestIO(addrWidth, dataWidth),
		Outputs: ReadDataIO(dataWidth),
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			p := MountPins(s, addrWidth, dataWidth)
			var rd uint64
			return []hwbus.Component{
				func(c *hwbus.Circuit) {
					r := p.Request(c)
					if r.ReadValid {
						rd = f.Peek(r.Addr)
					}
					if c.AtTick() {
						Serve(f, r)
					}
					c.SetUint(p.RData, rd)
				}}
		}}).NewPart
}
