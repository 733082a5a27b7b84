// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package axilite

import (
	"strconv"

	"github.com/db47h/hwbus"
	"github.com/db47h/hwbus/regbus"
)

// Part returns a NewPartFn for a slave with the given configuration. The slave
// samples its inputs on the rising edge of the circuit clock. It panics if cfg
// is invalid.
//
//	Inputs: rst, awvalid, awaddr[AddrWidth], wvalid, wdata[DataWidth], bready,
//	        arvalid, araddr[AddrWidth], rready, reg_rdata[DataWidth]
//	Outputs: awready, wready, bvalid, bresp[2], arready, rvalid, rdata[DataWidth], rresp[2],
//	         reg_addr[AddrWidth], reg_wdata[DataWidth], reg_rvalid, reg_wvalid
//
func Part(cfg Config) hwbus.NewPartFn {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	aw, dw := strconv.Itoa(cfg.AddrWidth), strconv.Itoa(cfg.DataWidth)
	in := hwbus.IO("rst, awvalid, awaddr[" + aw + "], wvalid, wdata[" + dw + "], bready, " +
		"arvalid, araddr[" + aw + "], rready")
	in = append(in, regbus.ReadDataIO(cfg.DataWidth)...)
	out := hwbus.IO("awready, wready, bvalid, bresp[2], arready, rvalid, rdata[" + dw + "], rresp[2]")
	out = append(out, regbus.RequestIO(cfg.AddrWidth, cfg.DataWidth)...)

	return (&hwbus.PartSpec{
		Name:    "AXI4LITE",
		Inputs:  in,
		Outputs: out,
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			var (
				rst     = s.Pin("rst")
				awvalid = s.Pin("awvalid")
				awaddr  = s.Bus("awaddr", cfg.AddrWidth)
				wvalid  = s.Pin("wvalid")
				wdata   = s.Bus("wdata", cfg.DataWidth)
				bready  = s.Pin("bready")
				arvalid = s.Pin("arvalid")
				araddr  = s.Bus("araddr", cfg.AddrWidth)
				rready  = s.Pin("rready")

				awready = s.Pin("awready")
				wready  = s.Pin("wready")
				bvalid  = s.Pin("bvalid")
				bresp   = s.Bus("bresp", 2)
				arready = s.Pin("arready")
				rvalid  = s.Pin("rvalid")
				rdata   = s.Bus("rdata", cfg.DataWidth)
				rresp   = s.Bus("rresp", 2)

				reg = regbus.MountPins(s, cfg.AddrWidth, cfg.DataWidth)
			)
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
							AWValid:  c.Get(awvalid),
							AWAddr:   c.GetUint(awaddr),
							WValid:   c.Get(wvalid),
							WData:    c.GetUint(wdata),
							BReady:   c.Get(bready),
							ARValid:  c.Get(arvalid),
							ARAddr:   c.GetUint(araddr),
							RReady:   c.Get(rready),
							ReadData: c.GetUint(reg.RData),
						})
					}
					c.Set(awready, o.AWReady)
					c.Set(wready, o.WReady)
					c.Set(bvalid, o.BValid)
					c.SetUint(bresp, uint64(o.BResp))
					c.Set(arready, o.ARReady)
					c.Set(rvalid, o.RValid)
					c.SetUint(rdata, o.RData)
					c.SetUint(rresp, uint64(o.RResp))
					reg.SetRequest(c, o.Reg)
				}}
		}}).NewPart
}
