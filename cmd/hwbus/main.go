// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command hwbus runs a single transaction through one of the bus adapters
// against an in-memory register file and prints the result.
//
//	hwbus [-h] [-trace] [-bus axi|wishbone|spi|i2c] [-addr ADDR] [-data DATA]
//	      [-mode MODE] [-width BITS] [-slave ADDR]
//
// With -trace, the waveform of the main bus signals is printed as well.
//
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/db47h/hwbus"
	"github.com/db47h/hwbus/axilite"
	"github.com/db47h/hwbus/hwlib"
	"github.com/db47h/hwbus/hwtest"
	"github.com/db47h/hwbus/i2c"
	"github.com/db47h/hwbus/regbus"
	"github.com/db47h/hwbus/spi"
	"github.com/db47h/hwbus/wishbone"
	"github.com/pkg/errors"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
)

const usage = `usage: hwbus [-h] [-trace] [-bus axi|wishbone|spi|i2c] [-addr ADDR] [-data DATA]
             [-mode MODE] [-width BITS] [-slave ADDR]

	-bus	adapter to exercise (default wishbone)
	-addr	register address (default 0)
	-data	data written, or sent by the SPI master (default 0xa5)
	-mode	SPI mode 0 to 3 (default 0)
	-width	data width in bits (default: adapter specific)
	-slave	I2C slave address (default 0x29)
	-trace	print the waveform`

const maxCycles = 1024

type options struct {
	addr  uint64
	data  uint64
	mode  uint64
	width int
	slave uint64
	trace bool
}

func main() {
	log.Tee(os.Stderr)
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		log.Print("err", err)
		os.Exit(1)
	}
}

func run(w io.Writer, args []string) error {
	flag, args := flags.New(args, "-h", "-help", "-trace")
	parm, args := parms.New(args, "-bus", "-addr", "-data", "-mode", "-width", "-slave")

	if flag.ByName["-h"] || flag.ByName["-help"] {
		fmt.Fprintln(w, usage)
		return nil
	}
	if len(args) > 0 {
		return errors.Errorf("%v: unexpected", args)
	}

	opt := options{data: 0xa5, slave: 0x29, trace: flag.ByName["-trace"]}
	for _, p := range []struct {
		name string
		v    *uint64
	}{
		{"-addr", &opt.addr},
		{"-data", &opt.data},
		{"-mode", &opt.mode},
		{"-slave", &opt.slave},
	} {
		if s := parm.ByName[p.name]; len(s) > 0 {
			v, err := strconv.ParseUint(s, 0, 64)
			if err != nil {
				return errors.Wrap(err, p.name)
			}
			*p.v = v
		}
	}
	if s := parm.ByName["-width"]; len(s) > 0 {
		w, err := strconv.Atoi(s)
		if err != nil {
			return errors.Wrap(err, "-width")
		}
		opt.width = w
	}

	bus := parm.ByName["-bus"]
	if len(bus) == 0 {
		bus = "wishbone"
	}
	tr := hwtest.NewTrace()
	var err error
	switch bus {
	case "axi":
		err = runAXI(w, &opt, tr)
	case "wishbone":
		err = runWishbone(w, &opt, tr)
	case "spi":
		err = runSPI(w, &opt, tr)
	case "i2c":
		err = runI2C(w, &opt, tr)
	default:
		return errors.Errorf("%s: unknown bus", bus)
	}
	if err != nil {
		return errors.Wrap(err, bus)
	}
	if opt.trace {
		_, err = tr.WriteTo(w)
	}
	return err
}

// runWishbone builds a circuit with a slave wired to a register file, writes
// then reads back the register.
//
func runWishbone(w io.Writer, opt *options, tr *hwtest.Trace) error {
	cfg := wishbone.Config{AddrWidth: 16, DataWidth: opt.width, RegAddr: opt.addr}
	if _, err := wishbone.New(cfg); err != nil {
		return err
	}
	if cfg.DataWidth == 0 {
		cfg.DataWidth = 32
	}
	dw := cfg.DataWidth
	f := regbus.NewFile()
	reg := "reg_addr=ra, reg_wdata=rw, reg_rvalid=rv, reg_wvalid=wv"

	var (
		cyc, we bool
		datO    uint64
		ack     bool
		werr    bool
	)
	sys, err := hwbus.Chip("WBSYS", "cyc, we", "dat_o["+strconv.Itoa(dw)+"], ack, err",
		hwlib.InputN(16, func() uint64 { return opt.addr })("out=adr"),
		hwlib.InputN(dw, func() uint64 { return opt.data })("out=dat_i"),
		wishbone.Part(cfg)("cyc=cyc, stb=cyc, we=we, adr=adr, dat_i=dat_i, dat_o=dat_o, ack=ack, err=err, "+reg),
		regbus.FilePart(f, 16, dw)(reg),
	)
	if err != nil {
		return err
	}
	c, err := hwbus.NewCircuit(0, 8,
		hwlib.Input(func() bool { return cyc })("out=cyc"),
		hwlib.Input(func() bool { return we })("out=we"),
		sys("cyc=cyc, we=we, dat_o=dat_o, ack=ack, err=err"),
		hwlib.OutputN(dw, func(v uint64) { datO = v })("in=dat_o"),
		hwlib.Output(func(v bool) { ack = v })("in=ack"),
		hwlib.Output(func(v bool) { werr = v })("in=err"),
		hwtest.Probe(tr, "cyc", "we", "ack", "err")("cyc=cyc, we=we, ack=ack, err=err"),
	)
	if err != nil {
		return err
	}
	defer c.Dispose()

	cycle := func() {
		c.Tock()
		c.Tick()
	}
	c.Tick()
	cyc, we = true, true
	cycle()
	if werr || !ack {
		return errors.Errorf("write %#x: no ack", opt.addr)
	}
	cyc, we = false, false
	cycle()
	cyc = true
	cycle()
	if werr || !ack {
		return errors.Errorf("read %#x: no ack", opt.addr)
	}
	rd := datO
	cyc = false
	cycle()
	fmt.Fprintf(w, "wishbone: wrote %#x at %#x, read back %#x (%d cycles)\n", opt.data, opt.addr, rd, c.Cycles())
	return nil
}

// runAXI writes then reads back a register through the slave model.
//
func runAXI(w io.Writer, opt *options, tr *hwtest.Trace) error {
	s, err := axilite.New(axilite.Config{DataWidth: opt.width})
	if err != nil {
		return err
	}
	f := regbus.NewFile()
	in := axilite.Inputs{
		AWValid: true, AWAddr: opt.addr, WValid: true, WData: opt.data, BReady: true,
	}
	var o axilite.Outputs
	var rdata uint64
	var done bool
	for i := 0; i < maxCycles && !done; i++ {
		if o.BValid {
			// issue the read once the write response has been accepted
			in.ARValid, in.ARAddr, in.RReady = true, opt.addr, true
		}
		o = s.Step(in)
		in.ReadData = regbus.Serve(f, o.Reg)
		if o.AWReady {
			in.AWValid = false
		}
		if o.WReady {
			in.WValid = false
		}
		if o.ARReady {
			in.ARValid = false
		}
		if o.RValid {
			rdata, done = o.RData, true
		}
		tr.Bit("awvalid", in.AWValid)
		tr.Bit("awready", o.AWReady)
		tr.Bit("wready", o.WReady)
		tr.Bit("bvalid", o.BValid)
		tr.Bit("arready", o.ARReady)
		tr.Bit("rvalid", o.RValid)
		tr.Word("rdata", s.Config().DataWidth, o.RData)
		tr.Next()
	}
	if !done {
		return errors.New("transaction timeout")
	}
	fmt.Fprintf(w, "axi: wrote %#x at %#x, read back %#x (%v)\n", opt.data, opt.addr, rdata, o.RResp)
	return nil
}

// runSPI exchanges a word with a peer answering the complement of the data.
//
func runSPI(w io.Writer, opt *options, tr *hwtest.Trace) error {
	if opt.mode > uint64(spi.Mode3) {
		return errors.Errorf("invalid mode %d", opt.mode)
	}
	m, err := spi.New(spi.Config{WordWidth: opt.width, Mode: spi.Mode(opt.mode)})
	if err != nil {
		return err
	}
	cfg := m.Config()
	mask := regbus.Mask(cfg.WordWidth)
	p := &hwtest.SPIPeer{
		CPOL:  cfg.Mode.CPOL(),
		CPHA:  cfg.Mode.CPHA(),
		Width: cfg.WordWidth,
		Data:  ^opt.data & mask,
	}
	rx, err := m.Transfer(opt.data, func(o spi.Outputs) bool {
		miso := p.Step(o.SCLK, o.MOSI, o.CSn)
		tr.Bit("cs_n", o.CSn)
		tr.Bit("sclk", o.SCLK)
		tr.Bit("mosi", o.MOSI)
		tr.Bit("miso", miso)
		tr.Next()
		return miso
	})
	if err != nil {
		return err
	}
	o := m.Outputs()
	p.Step(o.SCLK, o.MOSI, o.CSn)
	fmt.Fprintf(w, "spi mode %d: sent %#x, received %#x, peer received %#x\n", cfg.Mode, opt.data&mask, rx, p.Received)
	return nil
}

// runI2C writes one byte to a slave then reads it back with a repeated start.
//
func runI2C(w io.Writer, opt *options, tr *hwtest.Trace) error {
	if opt.slave > 0x7f {
		return errors.Errorf("invalid 7 bit address %#x", opt.slave)
	}
	s, err := i2c.New(i2c.Config{Address: uint8(opt.slave)})
	if err != nil {
		return err
	}
	f := regbus.NewFile()
	var rd uint8
	h := &hwtest.I2CHost{
		Trace: tr,
		Step: func(scl, sda bool) hwbus.Driver {
			o := s.Step(i2c.Inputs{SCL: scl, SDA: sda, ReadData: rd})
			rd = uint8(regbus.Serve(f, o.Reg))
			return o.SDA
		},
	}
	addr := s.Config().Address
	h.Idle(2)
	h.Start()
	if !h.Address(addr, false) {
		h.Stop()
		return errors.Errorf("no device at %#x", addr)
	}
	if !h.Write(uint8(opt.data)) {
		h.Stop()
		return errors.Errorf("byte %#x not acknowledged", uint8(opt.data))
	}
	h.Start()
	h.Address(addr, true)
	v := h.Read(false)
	h.Stop()
	h.Idle(2)
	if h.Err != nil {
		return h.Err
	}
	fmt.Fprintf(w, "i2c %#x: wrote %#x, read back %#x\n", addr, uint8(opt.data), v)
	return nil
}
