package wishbone_test

import (
	"testing"
	"testing/quick"

	"github.com/db47h/hwbus"
	hl "github.com/db47h/hwbus/hwlib"
	"github.com/db47h/hwbus/regbus"
	"github.com/db47h/hwbus/wishbone"
)

const regAddr = 0x40

func newSlave(t *testing.T, cfg wishbone.Config) *wishbone.Slave {
	t.Helper()
	s, err := wishbone.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func write(adr, data uint64) wishbone.Inputs {
	return wishbone.Inputs{Cyc: true, Stb: true, We: true, Adr: adr, DatI: data}
}

func read(adr uint64) wishbone.Inputs {
	return wishbone.Inputs{Cyc: true, Stb: true, Adr: adr}
}

func TestNew_invalid(t *testing.T) {
	td := []struct {
		name string
		cfg  wishbone.Config
	}{
		{"addr width", wishbone.Config{AddrWidth: 65}},
		{"data width", wishbone.Config{DataWidth: 24}},
		{"offset", wishbone.Config{AddrWidth: 4, RegAddr: 0x10}},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			if _, err := wishbone.New(d.cfg); err == nil {
				t.Fatalf("expected error for %+v", d.cfg)
			}
		})
	}
	s := newSlave(t, wishbone.Config{})
	if cfg := s.Config(); cfg.AddrWidth != 32 || cfg.DataWidth != 32 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestSlave_writeRead(t *testing.T) {
	s := newSlave(t, wishbone.Config{RegAddr: regAddr})
	f := func(v uint32) bool {
		o := s.Step(write(regAddr, uint64(v)))
		if !o.Ack || o.Err || o.Rty || o.Reg != regbus.Write(regAddr, uint64(v)) {
			t.Logf("write %#x: %+v", v, o)
			return false
		}
		o = s.Step(read(regAddr))
		if !o.Ack || o.Err || o.DatO != uint64(v) || o.Reg != regbus.Read(regAddr) {
			t.Logf("read %#x: %+v", v, o)
			return false
		}
		return s.Register() == uint64(v)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestSlave_badAddress(t *testing.T) {
	s := newSlave(t, wishbone.Config{RegAddr: regAddr, ResetValue: 0x1234})
	f := func(adr uint32, v uint32, we bool) bool {
		if adr == regAddr {
			return true
		}
		in := read(uint64(adr))
		in.We, in.DatI = we, uint64(v)
		o := s.Step(in)
		return o.Err && !o.Ack && !o.Rty && o.DatO == 0 && o.Reg.Idle() && s.Register() == 0x1234
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestSlave_idle(t *testing.T) {
	s := newSlave(t, wishbone.Config{RegAddr: regAddr})
	td := []struct {
		name string
		in   wishbone.Inputs
	}{
		{"none", wishbone.Inputs{Adr: regAddr}},
		{"cyc only", wishbone.Inputs{Cyc: true, We: true, Adr: regAddr, DatI: 1}},
		{"stb only", wishbone.Inputs{Stb: true, We: true, Adr: regAddr, DatI: 1}},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			if o := s.Step(d.in); o != (wishbone.Outputs{}) {
				t.Fatalf("expected idle outputs, got %+v", o)
			}
			if s.Register() != 0 {
				t.Fatalf("register changed to %#x", s.Register())
			}
		})
	}
}

func TestSlave_repeatedAck(t *testing.T) {
	s := newSlave(t, wishbone.Config{RegAddr: regAddr})
	s.Step(write(regAddr, 0xcafe))
	for i := 0; i < 3; i++ {
		if o := s.Step(read(regAddr)); !o.Ack || o.DatO != 0xcafe {
			t.Fatalf("cycle %d: expected ack with 0xcafe, got %+v", i, o)
		}
	}
	if o := s.Step(wishbone.Inputs{}); o.Ack {
		t.Fatal("ack asserted after the request was dropped")
	}
}

func TestSlave_reset(t *testing.T) {
	s := newSlave(t, wishbone.Config{RegAddr: regAddr, ResetValue: 0x55})
	if s.Register() != 0x55 {
		t.Fatalf("expected reset value 0x55, got %#x", s.Register())
	}
	s.Step(write(regAddr, 0xaa))
	in := write(regAddr, 0xff)
	in.Reset = true
	if o := s.Step(in); o != (wishbone.Outputs{}) {
		t.Fatalf("expected idle outputs during reset, got %+v", o)
	}
	if s.Register() != 0x55 {
		t.Fatalf("expected reset value 0x55, got %#x", s.Register())
	}
	s.Step(write(regAddr, 0xaa))
	s.Reset()
	if s.Register() != 0x55 || s.Outputs() != (wishbone.Outputs{}) {
		t.Fatalf("Reset: register %#x, outputs %+v", s.Register(), s.Outputs())
	}
}

func TestSlave_byteLanes(t *testing.T) {
	s := newSlave(t, wishbone.Config{RegAddr: regAddr, ResetValue: 0x11223344})
	in := write(regAddr, 0xaabbccdd)
	in.Sel = 0x5
	o := s.Step(in)
	if exp := uint64(0x11bb33dd); s.Register() != exp || o.Reg.WriteData != exp {
		t.Fatalf("expected %#x, got register %#x, reg port %#x", exp, s.Register(), o.Reg.WriteData)
	}
}

func TestSlave_invalidLanes(t *testing.T) {
	td := []struct {
		dw  int
		sel uint8
		exp uint64
		wr  bool
	}{
		{8, 0x2, 0x44, false},
		{8, 0xfe, 0x44, false},
		{8, 0xff, 0xdd, true},
		{16, 0x6, 0xcc44, true},
		{16, 0xfc, 0x3344, false},
		{64, 0x80, 0xaa00000011223344, true},
	}
	for _, d := range td {
		s := newSlave(t, wishbone.Config{DataWidth: d.dw, RegAddr: regAddr, ResetValue: 0x11223344})
		in := write(regAddr, 0xaa000000aabbccdd)
		in.Sel = d.sel
		o := s.Step(in)
		if !o.Ack || o.Err {
			t.Fatalf("width %d, sel %#x: expected ack, got %+v", d.dw, d.sel, o)
		}
		if s.Register() != d.exp {
			t.Errorf("width %d, sel %#x: expected %#x, got %#x", d.dw, d.sel, d.exp, s.Register())
		}
		if o.Reg.WriteValid != d.wr || d.wr && o.Reg.WriteData != d.exp {
			t.Errorf("width %d, sel %#x: unexpected register port request %+v", d.dw, d.sel, o.Reg)
		}
	}
}

func TestSlave_resetDominance(t *testing.T) {
	bad := write(regAddr+1, 0)
	td := []struct {
		name string
		pre  []wishbone.Inputs
	}{
		{"idle", nil},
		{"write ack", []wishbone.Inputs{write(regAddr, 0xaa)}},
		{"read ack", []wishbone.Inputs{write(regAddr, 0xaa), read(regAddr)}},
		{"held read", []wishbone.Inputs{read(regAddr), read(regAddr), read(regAddr)}},
		{"error", []wishbone.Inputs{bad}},
		{"read after error", []wishbone.Inputs{bad, read(regAddr)}},
	}
	for _, d := range td {
		for _, in := range []wishbone.Inputs{{}, write(regAddr, 0xff), read(regAddr), bad} {
			s := newSlave(t, wishbone.Config{RegAddr: regAddr, ResetValue: 0x55})
			for _, p := range d.pre {
				s.Step(p)
			}
			in.Reset = true
			if o := s.Step(in); o != (wishbone.Outputs{}) || s.Register() != 0x55 {
				t.Fatalf("%s, reset with %+v: outputs %+v, register %#x", d.name, in, o, s.Register())
			}
		}
	}
}

func TestSlave_exclusive(t *testing.T) {
	s := newSlave(t, wishbone.Config{AddrWidth: 2, DataWidth: 8, RegAddr: 1})
	f := func(rst, cyc, stb, we bool, adr, dat uint8) bool {
		o := s.Step(wishbone.Inputs{Reset: rst, Cyc: cyc, Stb: stb, We: we, Adr: uint64(adr), DatI: uint64(dat)})
		if o.Ack && o.Err || o.Rty || o.Reg.ReadValid && o.Reg.WriteValid {
			return false
		}
		// the address is truncated to 2 bits
		return o.Ack == (!rst && cyc && stb && adr&3 == 1)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestPart(t *testing.T) {
	var (
		cyc, we  bool
		adr, dat uint64
		datO     uint64
		ack, err bool
	)
	f := regbus.NewFile()
	cfg := wishbone.Config{AddrWidth: 8, DataWidth: 8, RegAddr: 0x10}
	c, e := hwbus.NewCircuit(0, 8,
		hl.Input(func() bool { return cyc })("out=cyc"),
		hl.Input(func() bool { return we })("out=we"),
		hl.InputN(8, func() uint64 { return adr })("out=adr"),
		hl.InputN(8, func() uint64 { return dat })("out=dat"),
		wishbone.Part(cfg)("cyc=cyc, stb=cyc, we=we, adr=adr, dat_i=dat, dat_o=dat_o, ack=ack, err=err, "+
			"reg_addr=ra, reg_wdata=rw, reg_rvalid=rv, reg_wvalid=wv"),
		regbus.FilePart(f, 8, 8)("reg_addr=ra, reg_wdata=rw, reg_rvalid=rv, reg_wvalid=wv"),
		hl.OutputN(8, func(v uint64) { datO = v })("in=dat_o"),
		hl.Output(func(v bool) { ack = v })("in=ack"),
		hl.Output(func(v bool) { err = v })("in=err"),
	)
	if e != nil {
		t.Fatal(e)
	}
	defer c.Dispose()

	cycle := func() {
		c.Tock()
		c.Tick()
	}
	c.Tick()

	cyc, we, adr, dat = true, true, 0x10, 0x5a
	cycle()
	if !ack || err {
		t.Fatalf("write: ack=%v, err=%v", ack, err)
	}
	cyc, we = false, false
	cycle()
	if ack || f.Peek(0x10) != 0x5a || f.Writes != 1 {
		t.Fatalf("after write: ack=%v, reg=%#x, writes=%d", ack, f.Peek(0x10), f.Writes)
	}

	cyc = true
	cycle()
	if !ack || datO != 0x5a {
		t.Fatalf("read: ack=%v, dat_o=%#x", ack, datO)
	}
	cyc = false
	cycle()
	if f.Reads != 1 {
		t.Fatalf("expected 1 register read, got %d", f.Reads)
	}

	cyc, adr = true, 0x11
	cycle()
	if ack || !err || datO != 0 {
		t.Fatalf("bad address: ack=%v, err=%v, dat_o=%#x", ack, err, datO)
	}
}

func TestPart_noReadDataPin(t *testing.T) {
	_, err := hwbus.NewCircuit(0, 8,
		wishbone.Part(wishbone.Config{AddrWidth: 8, DataWidth: 8})("reg_rdata=rd"),
	)
	if err == nil {
		t.Fatal("reg_rdata accepted as a slave pin")
	}
}
