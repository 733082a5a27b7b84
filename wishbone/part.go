// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wishbone

import (
	"strconv"

	"github.com/db47h/hwbus"
	"github.com/db47h/hwbus/regbus"
)

// Part returns a NewPartFn for a slave with the given configuration. The slave
// samples its inputs on the rising edge of the circuit clock. It panics if cfg
// is invalid.
//
//	Inputs: rst, cyc, stb, we, adr[AddrWidth], dat_i[DataWidth], sel[DataWidth/8]
//	Outputs: dat_o[DataWidth], ack, err, rty, reg_addr[AddrWidth], reg_wdata[DataWidth], reg_rvalid, reg_wvalid
//
func Part(cfg Config) hwbus.NewPartFn {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	aw, dw := strconv.Itoa(cfg.AddrWidth), strconv.Itoa(cfg.DataWidth)
	lanes := cfg.DataWidth / 8
	in := hwbus.IO("rst, cyc, stb, we, adr[" + aw + "], dat_i[" + dw + "], sel[" + strconv.Itoa(lanes) + "]")
	out := hwbus.IO("dat_o[" + dw + "], ack, err, rty")
	out = append(out, regbus.RequestIO(cfg.AddrWidth, cfg.DataWidth)...)

	return (&hwbus.PartSpec{
		Name:    "WISHBONE",
		Inputs:  in,
		Outputs: out,
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			rst, cyc, stb, we := s.Pin("rst"), s.Pin("cyc"), s.Pin("stb"), s.Pin("we")
			adr, datI, sel := s.Bus("adr", cfg.AddrWidth), s.Bus("dat_i", cfg.DataWidth), s.Bus("sel", lanes)
			datO, ack, errp, rty := s.Bus("dat_o", cfg.DataWidth), s.Pin("ack"), s.Pin("err"), s.Pin("rty")
			reg := regbus.MountPins(s, cfg.AddrWidth, cfg.DataWidth)
			sl, err := New(cfg)
			if err != nil {
				panic(err)
			}
			var o Outputs
			return []hwbus.Component{
				func(c *hwbus.Circuit) {
					if c.AtTick() {
						o = sl.Step(Inputs{
							Reset: c.Get(rst),
							Cyc:   c.Get(cyc),
							Stb:   c.Get(stb),
							We:    c.Get(we),
							Adr:   c.GetUint(adr),
							DatI:  c.GetUint(datI),
							Sel:   uint8(c.GetUint(sel)),
						})
					}
					c.SetUint(datO, o.DatO)
					c.Set(ack, o.Ack)
					c.Set(errp, o.Err)
					c.Set(rty, o.Rty)
					reg.SetRequest(c, o.Reg)
				}}
		}}).NewPart
}
