// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwbus

import (
	"github.com/pkg/errors"
)

// Chip composes existing parts into a new part packaged into a chip.
// The pin names specified as inputs and outputs will be the inputs
// and outputs of the chip.
//
// A bus slave wired to a register file could be packaged like this:
//
//	sys, err := hwbus.Chip("WBSYS", "cyc, stb, we, adr[8], dat_i[8]", "dat_o[8], ack, err",
//		wishbone.Part(cfg)("cyc=cyc, stb=stb, we=we, adr=adr, dat_i=dat_i, dat_o=dat_o, ack=ack, err=err,"+
//			"reg_addr=ra, reg_wdata=rw, reg_rvalid=rv, reg_wvalid=wv"),
//		regbus.FilePart(f, 8, 8)("reg_addr=ra, reg_wdata=rw, reg_rvalid=rv, reg_wvalid=wv"),
//	)
//
// Internal wires are private to each chip instance. Chip checks that every pin
// name is known to its part, that no wire is driven by more than one output,
// that outputs do not drive constants or chip inputs and that every chip
// output is driven.
//
func Chip(name string, inputs string, outputs string, parts ...Part) (NewPartFn, error) {
	ins, err := parseIOSpec(inputs)
	if err != nil {
		return nil, errors.Wrap(err, name+": inputs")
	}
	outs, err := parseIOSpec(outputs)
	if err != nil {
		return nil, errors.Wrap(err, name+": outputs")
	}

	// driven maps wire names to whatever drives them.
	driven := make(map[string]string, len(ins))
	for _, in := range ins {
		driven[in] = "chip input"
	}
	for _, out := range outs {
		if driven[out] != "" {
			return nil, errors.New(name + ": pin " + out + " is both an input and an output")
		}
	}

	var sinks []string
	for _, p := range parts {
		pins := p.pins()
		for _, cn := range p.Conns {
			dir, ok := pins[cn.PP]
			if !ok {
				return nil, errors.New("invalid pin name " + cn.PP + " for part " + p.Name)
			}
			if dir != dirOutput {
				if !isConstant(cn.CP) {
					sinks = append(sinks, cn.CP)
				}
				continue
			}
			pn := p.Name + "." + cn.PP
			if isConstant(cn.CP) {
				return nil, errors.New(pn + ":" + cn.CP + ": output pin connected to constant " + cn.CP)
			}
			if d := driven[cn.CP]; d != "" {
				return nil, errors.New(pn + ":" + cn.CP + ": wire already driven by " + d)
			}
			driven[cn.CP] = pn
		}
	}
	for _, out := range outs {
		if driven[out] == "" {
			return nil, errors.New(name + ": pin " + out + " not connected to any output")
		}
	}
	for _, w := range sinks {
		if driven[w] == "" {
			return nil, errors.New(name + ": pin " + w + " not connected to any output")
		}
	}

	sp := &PartSpec{
		Name:    name,
		Inputs:  ins,
		Outputs: outs,
	}
	sp.Mount = func(s *Socket) []Component {
		var cs []Component
		for _, p := range parts {
			cs = append(cs, s.Mount(p)...)
		}
		return cs
	}
	return sp.NewPart, nil
}
