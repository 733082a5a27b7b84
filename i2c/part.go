// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package i2c

import (
	"github.com/db47h/hwbus"
	"github.com/db47h/hwbus/regbus"
)

// Width of the byte index on the reg_addr bus of a Part.
//
const partAddrWidth = 8

// Part returns a NewPartFn for a controller with the given configuration,
// clocked by the rising edge of the circuit clock. It panics if cfg is invalid.
//
// SDA is split into the observed line level (sda) and an open-drain output
// enable (sda_oe) that pulls the line low when set. Use hwlib.PullUp to build
// the shared line.
//
//	Inputs: rst, scl, sda, reg_rdata[8]
//	Outputs: sda_oe, ack, nack, start, stop, reg_addr[8], reg_wdata[8], reg_rvalid, reg_wvalid
//
func Part(cfg Config) hwbus.NewPartFn {
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	in := append(hwbus.IO("rst, scl, sda"), regbus.ReadDataIO(8)...)
	out := append(hwbus.IO("sda_oe, ack, nack, start, stop"), regbus.RequestIO(partAddrWidth, 8)...)
	return (&hwbus.PartSpec{
		Name:    "I2CSLAVE",
		Inputs:  in,
		Outputs: out,
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			rst, scl, sda := s.Pin("rst"), s.Pin("scl"), s.Pin("sda")
			oe, ack, nack, start, stop := s.Pin("sda_oe"), s.Pin("ack"), s.Pin("nack"), s.Pin("start"), s.Pin("stop")
			reg := regbus.MountPins(s, partAddrWidth, 8)
			sl, err := New(cfg)
			if err != nil {
				panic(err)
			}
			var o Outputs
			return []hwbus.Component{
				func(c *hwbus.Circuit) {
					if c.AtTick() {
						o = sl.Step(Inputs{
							Reset:    c.Get(rst),
							SCL:      c.Get(scl),
							SDA:      c.Get(sda),
							ReadData: uint8(c.GetUint(reg.RData)),
						})
					}
					c.Set(oe, o.SDA.Enable && !o.SDA.Value)
					c.Set(ack, o.Ack)
					c.Set(nack, o.Nack)
					c.Set(start, o.Start)
					c.Set(stop, o.Stop)
					reg.SetRequest(c, o.Reg)
				}}
		}}).NewPart
}
