// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/db47h/hwbus"
	"github.com/db47h/hwbus/hwlib"
)

// selfConns returns a connection string connecting each pin to a wire of the
// same name.
//
func selfConns(pins ...[]string) string {
	var b strings.Builder
	for _, ps := range pins {
		for _, n := range ps {
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			b.WriteString(n)
			b.WriteByte('=')
			b.WriteString(n)
		}
	}
	return b.String()
}

// ioSpec folds expanded pin names back into an IO specification,
// "bus[0], bus[1], x" giving "bus[2], x".
//
func ioSpec(names []string) string {
	widths := make(map[string]int)
	var buses, pins []string
	for _, n := range names {
		i := strings.IndexByte(n, '[')
		if i < 0 {
			pins = append(pins, n)
			continue
		}
		idx, err := strconv.Atoi(n[i+1 : len(n)-1])
		if err != nil {
			panic(err)
		}
		bn := n[:i]
		w, ok := widths[bn]
		if !ok {
			buses = append(buses, bn)
		}
		if idx+1 > w {
			widths[bn] = idx + 1
		}
	}
	sort.Strings(buses)
	spec := make([]string, 0, len(buses)+len(pins))
	for _, bn := range buses {
		spec = append(spec, bn+"["+strconv.Itoa(widths[bn])+"]")
	}
	return strings.Join(append(spec, pins...), ", ")
}

// ComparePart takes two parts and compares their outputs given the same inputs,
// first all low, then all high, then iter random input vectors. Both parts
// must have the same pin names.
//
func ComparePart(t *testing.T, tpc uint, iter int, part1, part2 hwbus.NewPartFn) {
	t.Helper()

	p1, p2 := part1(""), part2("")
	if strings.Join(p1.Inputs, ",") != strings.Join(p2.Inputs, ",") {
		t.Fatalf("input mismatch: %v != %v", p1.Inputs, p2.Inputs)
	}
	if strings.Join(p1.Outputs, ",") != strings.Join(p2.Outputs, ",") {
		t.Fatalf("output mismatch: %v != %v", p1.Outputs, p2.Outputs)
	}
	ins, outs := p1.Inputs, p1.Outputs
	conns := selfConns(ins, outs)

	inputs := make([]bool, len(ins))
	outputs := make([][2]bool, len(outs))

	// wrap each part with its own set of probes
	wrap := func(name string, p hwbus.Part, k int) hwbus.NewPartFn {
		parts := []hwbus.Part{p}
		for i, o := range outs {
			n := i
			parts = append(parts, hwlib.Output(func(b bool) { outputs[n][k] = b })("in="+o))
		}
		w, err := hwbus.Chip(name, ioSpec(ins), "", parts...)
		if err != nil {
			t.Fatal(err)
		}
		return w
	}
	w1, w2 := wrap("W1", part1(conns), 0), wrap("W2", part2(conns), 1)

	var parts []hwbus.Part
	for i, n := range ins {
		k := i
		parts = append(parts, hwlib.Input(func() bool { return inputs[k] })("out="+n))
	}
	inConns := selfConns(ins)
	parts = append(parts, w1(inConns), w2(inConns))

	c, err := hwbus.NewCircuit(0, tpc, parts...)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	check := func() {
		t.Helper()
		c.Tock()
		c.Tick()
		for o, out := range outputs {
			if out[0] != out[1] {
				var b strings.Builder
				for i, n := range ins {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s=%v", n, inputs[i])
				}
				t.Fatalf("%s => %s: %s=%v, %s=%v", b.String(), outs[o], p1.Name, out[0], p2.Name, out[1])
			}
		}
	}

	c.Tick()
	check()
	for i := range inputs {
		inputs[i] = true
	}
	check()
	for ; iter > 0; iter-- {
		for i := range inputs {
			inputs[i] = rand.Int63()&1 != 0
		}
		check()
	}
}
