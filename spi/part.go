// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spi

import (
	"strconv"

	"github.com/db47h/hwbus"
)

// Part returns a NewPartFn for a master with the given configuration, clocked
// by the rising edge of the circuit clock. It panics if cfg is invalid.
//
//	Inputs: rst, start, tx[WordWidth], miso
//	Outputs: sclk, mosi, cs_n, done, rx[WordWidth], busy, overrun
//
func Part(cfg Config) hwbus.NewPartFn {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	w := strconv.Itoa(cfg.WordWidth)
	return (&hwbus.PartSpec{
		Name:    "SPIMASTER",
		Inputs:  hwbus.IO("rst, start, tx[" + w + "], miso"),
		Outputs: hwbus.IO("sclk, mosi, cs_n, done, rx[" + w + "], busy, overrun"),
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			rst, start, tx, miso := s.Pin("rst"), s.Pin("start"), s.Bus("tx", cfg.WordWidth), s.Pin("miso")
			sclk, mosi, csn, done := s.Pin("sclk"), s.Pin("mosi"), s.Pin("cs_n"), s.Pin("done")
			rx, busy, overrun := s.Bus("rx", cfg.WordWidth), s.Pin("busy"), s.Pin("overrun")
			m, err := New(cfg)
			if err != nil {
				panic(err)
			}
			o := m.Outputs()
			return []hwbus.Component{
				func(c *hwbus.Circuit) {
					if c.AtTick() {
						o = m.Step(Inputs{
							Reset:  c.Get(rst),
							Start:  c.Get(start),
							TxData: c.GetUint(tx),
							MISO:   c.Get(miso),
						})
					}
					c.Set(sclk, o.SCLK)
					c.Set(mosi, o.MOSI)
					c.Set(csn, o.CSn)
					c.Set(done, o.Done)
					c.SetUint(rx, o.RxData)
					c.Set(busy, o.Busy)
					c.Set(overrun, o.Overrun)
				}}
		}}).NewPart
}
