package i2c_test

import (
	"testing"

	"github.com/db47h/hwbus"
	hl "github.com/db47h/hwbus/hwlib"
	"github.com/db47h/hwbus/hwtest"
	"github.com/db47h/hwbus/i2c"
	"github.com/db47h/hwbus/regbus"
)

const devAddr = 0x29

// bench wires a slave to a register file and a bit-banging host.
type bench struct {
	s      *i2c.Slave
	f      *regbus.File
	host   *hwtest.I2CHost
	states []i2c.State // visited states, without repetitions
	acks   int
	nacks  int
	starts int
	stops  int
	bad    []i2c.Outputs // outputs breaking ack/nack exclusion
}

func newBench(t *testing.T, addr uint8) *bench {
	t.Helper()
	s, err := i2c.New(i2c.Config{Address: addr})
	if err != nil {
		t.Fatal(err)
	}
	b := &bench{s: s, f: regbus.NewFile(), states: []i2c.State{i2c.Idle}}
	var rd uint8
	var ack bool
	b.host = &hwtest.I2CHost{Step: func(scl, sda bool) hwbus.Driver {
		o := s.Step(i2c.Inputs{SCL: scl, SDA: sda, ReadData: rd})
		rd = uint8(regbus.Serve(b.f, o.Reg))
		if st := s.State(); st != b.states[len(b.states)-1] {
			b.states = append(b.states, st)
		}
		if o.Ack && !ack {
			b.acks++
		}
		ack = o.Ack
		if o.Nack {
			b.nacks++
		}
		if o.Start {
			b.starts++
		}
		if o.Stop {
			b.stops++
		}
		// ack and nack are exclusive, ack pulls SDA low and SDA is never driven high
		if o.Ack && o.Nack || o.Ack && o.SDA != hwbus.Low || o.SDA == hwbus.High {
			b.bad = append(b.bad, o)
		}
		return o.SDA
	}}
	b.host.Idle(4)
	return b
}

func (b *bench) check(t *testing.T) {
	t.Helper()
	if b.host.Err != nil {
		t.Fatalf("bus error: %v", b.host.Err)
	}
	if len(b.bad) > 0 {
		t.Fatalf("bad outputs: %+v", b.bad)
	}
}

func TestNew_invalid(t *testing.T) {
	if _, err := i2c.New(i2c.Config{Address: 0x80}); err == nil {
		t.Fatal("expected error for an 8 bit address")
	}
}

func TestSlave_addressRead(t *testing.T) {
	b := newBench(t, devAddr)
	b.host.Start()
	if !b.host.Address(devAddr, true) { // 0x53 on the wire
		t.Fatal("address not acknowledged")
	}
	if b.s.State() != i2c.AckPhase || !b.s.Outputs().Ack {
		t.Fatalf("expected ack, got %v", b.s.State())
	}
	b.host.Read(false)
	b.host.Stop()
	b.host.Idle(2)
	b.check(t)

	exp := []i2c.State{
		i2c.Idle, i2c.StartDetected, i2c.AddressPhase, i2c.AckPhase,
		i2c.DataPhaseRead, i2c.HostAckPhase, i2c.Idle, i2c.StopDetected, i2c.Idle,
	}
	if len(b.states) != len(exp) {
		t.Fatalf("expected states %v, got %v", exp, b.states)
	}
	for i := range exp {
		if b.states[i] != exp[i] {
			t.Fatalf("expected states %v, got %v", exp, b.states)
		}
	}
	if b.starts != 1 || b.stops != 1 || b.acks != 1 || b.nacks != 0 {
		t.Fatalf("pulses: %d starts, %d stops, %d acks, %d nacks", b.starts, b.stops, b.acks, b.nacks)
	}
}

func TestSlave_addressMismatch(t *testing.T) {
	for addr := uint8(0); addr < 0x80; addr++ {
		if addr == devAddr {
			continue
		}
		b := newBench(t, devAddr)
		b.host.Start()
		if b.host.Address(addr, addr&1 != 0) {
			t.Fatalf("address %#x acknowledged", addr)
		}
		if b.s.State() != i2c.Idle || b.nacks != 1 || b.acks != 0 {
			t.Fatalf("address %#x: state %v, %d nacks, %d acks", addr, b.s.State(), b.nacks, b.acks)
		}
		// the slave ignores the rest of the transfer
		b.host.Write(0xff)
		b.host.Stop()
		b.check(t)
		if b.f.Writes != 0 || b.f.Reads != 0 {
			t.Fatalf("address %#x: register access", addr)
		}
	}
}

func TestSlave_write(t *testing.T) {
	b := newBench(t, devAddr)
	data := []byte{0x11, 0x22, 0x33, 0xff, 0x00}
	b.host.Start()
	if !b.host.Address(devAddr, false) {
		t.Fatal("address not acknowledged")
	}
	for _, d := range data {
		if !b.host.Write(d) {
			t.Fatalf("byte %#x not acknowledged", d)
		}
	}
	b.host.Stop()
	b.check(t)
	if b.f.Writes != len(data) {
		t.Fatalf("expected %d writes, got %d", len(data), b.f.Writes)
	}
	for i, d := range data {
		if v := b.f.Peek(uint64(i)); v != uint64(d) {
			t.Errorf("register %d: expected %#x, got %#x", i, d, v)
		}
	}
	if b.acks != len(data)+1 {
		t.Fatalf("expected %d acks, got %d", len(data)+1, b.acks)
	}
}

func TestSlave_read(t *testing.T) {
	b := newBench(t, devAddr)
	data := []byte{0xa1, 0xb2, 0x00, 0xc3}
	for i, d := range data {
		b.f.WriteReg(uint64(i), uint64(d))
	}
	b.f.Writes = 0
	b.host.Start()
	if !b.host.Address(devAddr, true) {
		t.Fatal("address not acknowledged")
	}
	for i, d := range data {
		if v := b.host.Read(i < len(data)-1); v != d {
			t.Errorf("byte %d: expected %#x, got %#x", i, d, v)
		}
	}
	b.host.Stop()
	b.check(t)
	if b.f.Reads != len(data) || b.f.Writes != 0 {
		t.Fatalf("expected %d reads, got %d reads and %d writes", len(data), b.f.Reads, b.f.Writes)
	}
	if b.s.State() != i2c.Idle {
		t.Fatalf("expected Idle, got %v", b.s.State())
	}
}

func TestSlave_repeatedStart(t *testing.T) {
	b := newBench(t, devAddr)
	b.host.Start()
	b.host.Address(devAddr, false)
	b.host.Write(0x42)
	b.host.Write(0x43)
	b.host.Start()
	if !b.host.Address(devAddr, true) {
		t.Fatal("address not acknowledged after repeated start")
	}
	// byte index restarts at 0
	if v := b.host.Read(true); v != 0x42 {
		t.Fatalf("expected 0x42, got %#x", v)
	}
	if v := b.host.Read(false); v != 0x43 {
		t.Fatalf("expected 0x43, got %#x", v)
	}
	b.host.Stop()
	b.check(t)
	if b.starts != 2 || b.stops != 1 {
		t.Fatalf("expected 2 starts and 1 stop, got %d and %d", b.starts, b.stops)
	}
}

func TestSlave_startStopPriority(t *testing.T) {
	b := newBench(t, devAddr)
	b.host.Start()
	b.host.Address(devAddr, false)
	s := b.s
	step := func(scl, sda bool) i2c.Outputs {
		return s.Step(i2c.Inputs{SCL: scl, SDA: sda})
	}
	step(false, false) // release ack
	step(true, true)   // one data bit
	if s.State() != i2c.DataPhaseWrite || s.ShiftIndex() != 1 {
		t.Fatalf("expected DataPhaseWrite with 1 bit, got %v with %d", s.State(), s.ShiftIndex())
	}
	if o := step(true, false); !o.Start || s.State() != i2c.StartDetected || s.ShiftIndex() != 0 {
		t.Fatalf("start not detected: %+v in %v", o, s.State())
	}
	if o := step(true, true); !o.Stop || o.Start || s.State() != i2c.StopDetected {
		t.Fatalf("stop not detected: %+v in %v", o, s.State())
	}
	if o := step(true, true); o.Stop || s.State() != i2c.Idle {
		t.Fatalf("stop pulse longer than one cycle: %+v in %v", o, s.State())
	}
	if b.f.Writes != 0 {
		t.Fatal("partial byte written")
	}
}

// busLevels records the SCL and SDA levels seen by the slave during a write of
// two bytes followed by a repeated start and a read of two bytes.
func busLevels(t *testing.T) []i2c.Inputs {
	t.Helper()
	var seq []i2c.Inputs
	b := newBench(t, devAddr)
	step := b.host.Step
	b.host.Step = func(scl, sda bool) hwbus.Driver {
		seq = append(seq, i2c.Inputs{SCL: scl, SDA: sda})
		return step(scl, sda)
	}
	b.host.Start()
	b.host.Address(devAddr, false)
	b.host.Write(0x00)
	b.host.Write(0xff)
	b.host.Start()
	b.host.Address(devAddr, true)
	b.host.Read(true)
	b.host.Read(false)
	b.host.Stop()
	b.host.Idle(2)
	b.check(t)
	return seq
}

func TestSlave_reset(t *testing.T) {
	seq := busLevels(t)
	seen := make(map[i2c.State]bool)
	var acking bool
	for n := 0; n <= len(seq); n++ {
		s, err := i2c.New(i2c.Config{Address: devAddr})
		if err != nil {
			t.Fatal(err)
		}
		f := regbus.NewFile()
		var rd uint8
		var o i2c.Outputs
		for _, in := range seq[:n] {
			in.ReadData = rd
			o = s.Step(in)
			rd = uint8(regbus.Serve(f, o.Reg))
		}
		st := s.State()
		seen[st] = true
		acking = acking || st == i2c.AckPhase && o.Ack && o.SDA == hwbus.Low

		o = s.Step(i2c.Inputs{Reset: true, SCL: true, SDA: false})
		if o != (i2c.Outputs{}) || s.State() != i2c.Idle || s.ShiftIndex() != 0 || s.Shift() != 0 {
			t.Fatalf("cycle %d (%v): expected released outputs in Idle, got %+v in %v, shift %#x/%d",
				n, st, o, s.State(), s.Shift(), s.ShiftIndex())
		}
		// no start is seen when the bus goes idle after reset
		if o = s.Step(i2c.Inputs{SCL: true, SDA: true}); o != (i2c.Outputs{}) || s.State() != i2c.Idle {
			t.Fatalf("cycle %d (%v): spurious activity after reset: %+v in %v", n, st, o, s.State())
		}
		// and the next transfer is served
		h := &hwtest.I2CHost{Step: func(scl, sda bool) hwbus.Driver {
			return s.Step(i2c.Inputs{SCL: scl, SDA: sda}).SDA
		}}
		h.Idle(2)
		h.Start()
		if !h.Address(devAddr, false) {
			t.Fatalf("cycle %d (%v): address not acknowledged after reset", n, st)
		}
	}
	for st := i2c.Idle; st <= i2c.StopDetected; st++ {
		if !seen[st] {
			t.Errorf("state %v not reached", st)
		}
	}
	if !acking {
		t.Error("reset never applied while driving an acknowledge")
	}
}

func TestState_String(t *testing.T) {
	if i2c.HostAckPhase.String() != "HostAckPhase" || i2c.State(42).String() != "State(?)" {
		t.Fatal("bad state names")
	}
}

func TestPart(t *testing.T) {
	var scl, hostLow, oe bool
	f := regbus.NewFile()
	reg := "reg_addr=ra, reg_wdata=rw, reg_rvalid=rv, reg_wvalid=wv, reg_rdata=rd"
	c, err := hwbus.NewCircuit(0, 8,
		hl.Input(func() bool { return scl })("out=scl"),
		hl.Input(func() bool { return hostLow })("out=host_oe"),
		hl.PullUp(2)("oe[0]=host_oe, oe[1]=sda_oe, out=sda"),
		i2c.Part(i2c.Config{Address: 0x50})("scl=scl, sda=sda, sda_oe=sda_oe, "+reg),
		regbus.FilePart(f, 8, 8)(reg),
		hl.Output(func(v bool) { oe = v })("in=sda_oe"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()
	c.Tick()

	host := &hwtest.I2CHost{Step: func(s, sda bool) hwbus.Driver {
		scl, hostLow = s, !sda
		c.Tock()
		c.Tick()
		return hwbus.OpenDrain(oe)
	}}
	host.Idle(2)
	host.Start()
	if !host.Address(0x50, false) || !host.Write(0x99) {
		t.Fatal("write not acknowledged")
	}
	host.Stop()
	if f.Peek(0) != 0x99 {
		t.Fatalf("expected 0x99, got %#x", f.Peek(0))
	}
	host.Start()
	if !host.Address(0x50, true) {
		t.Fatal("read not acknowledged")
	}
	if v := host.Read(false); v != 0x99 {
		t.Fatalf("expected 0x99, got %#x", v)
	}
	host.Stop()
	if host.Err != nil {
		t.Fatal(host.Err)
	}
}
