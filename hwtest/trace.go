// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits and bus
// adapters: a waveform recorder, bus peers and probe parts.
//
package hwtest

import (
	"fmt"
	"io"
	"strings"

	"github.com/db47h/hwbus"
)

// Trace records the values of named signals, one row per clock cycle.
// Signals that are not sampled in a row keep their previous value.
//
type Trace struct {
	names []string
	width map[string]int // 1 for single bit signals
	rows  map[string][]uint64
	cur   map[string]uint64
	n     int
}

// NewTrace returns a new empty trace.
//
func NewTrace() *Trace {
	return &Trace{
		width: make(map[string]int),
		rows:  make(map[string][]uint64),
		cur:   make(map[string]uint64),
	}
}

func (t *Trace) declare(name string, width int) {
	if _, ok := t.width[name]; ok {
		return
	}
	t.names = append(t.names, name)
	t.width[name] = width
	t.rows[name] = make([]uint64, t.n)
}

// Bit samples a single bit signal in the current row.
//
func (t *Trace) Bit(name string, v bool) {
	t.declare(name, 1)
	if v {
		t.cur[name] = 1
	} else {
		t.cur[name] = 0
	}
}

// Word samples a multi bit signal in the current row.
//
func (t *Trace) Word(name string, width int, v uint64) {
	t.declare(name, width)
	t.cur[name] = v
}

// Next commits the current row.
//
func (t *Trace) Next() {
	for _, n := range t.names {
		t.rows[n] = append(t.rows[n], t.cur[n])
	}
	t.n++
}

// Len returns the number of committed rows.
//
func (t *Trace) Len() int { return t.n }

// Values returns all committed values of a signal.
//
func (t *Trace) Values(name string) []uint64 {
	return t.rows[name]
}

// Bits returns all committed values of a single bit signal.
//
func (t *Trace) Bits(name string) []bool {
	vs := t.rows[name]
	bs := make([]bool, len(vs))
	for i, v := range vs {
		bs[i] = v != 0
	}
	return bs
}

// Edges returns the row indices where a single bit signal goes high (rising)
// or low (!rising). The first row never counts as an edge.
//
func (t *Trace) Edges(name string, rising bool) []int {
	var es []int
	bs := t.Bits(name)
	for i := 1; i < len(bs); i++ {
		if bs[i] != bs[i-1] && bs[i] == rising {
			es = append(es, i)
		}
	}
	return es
}

// SampleAt returns the values of signal name at the given rows.
//
func (t *Trace) SampleAt(name string, rows []int) []uint64 {
	vs := t.rows[name]
	out := make([]uint64, 0, len(rows))
	for _, r := range rows {
		if r >= 0 && r < len(vs) {
			out = append(out, vs[r])
		}
	}
	return out
}

// WriteTo writes the trace as an ASCII waveform: one line per signal, with
// single bit signals drawn as '_' (low) and '#' (high) and words printed in
// hex when they change.
//
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	pad := 0
	for _, n := range t.names {
		if len(n) > pad {
			pad = len(n)
		}
	}
	var total int64
	for _, n := range t.names {
		var b strings.Builder
		fmt.Fprintf(&b, "%-*s ", pad, n)
		vs := t.rows[n]
		if t.width[n] == 1 {
			for _, v := range vs {
				if v != 0 {
					b.WriteByte('#')
				} else {
					b.WriteByte('_')
				}
			}
		} else {
			for i, v := range vs {
				if i == 0 || v != vs[i-1] {
					fmt.Fprintf(&b, "|%x", v)
				}
			}
		}
		b.WriteByte('\n')
		k, err := io.WriteString(w, b.String())
		total += int64(k)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the waveform as written by WriteTo.
//
func (t *Trace) String() string {
	var b strings.Builder
	t.WriteTo(&b)
	return b.String()
}

// Probe returns a probe part recording each of its inputs into t under the
// pin name on every rising edge of the circuit clock and committing the row.
// The trace is only safe for use by a single probe.
//
//	Inputs: names...
//
func Probe(t *Trace, names ...string) hwbus.NewPartFn {
	return (&hwbus.PartSpec{
		Name:   "PROBE",
		Inputs: names,
		Mount: func(s *hwbus.Socket) []hwbus.Component {
			pins := make([]int, len(names))
			for i, n := range names {
				pins[i] = s.Pin(n)
			}
			return []hwbus.Component{
				func(c *hwbus.Circuit) {
					if !c.AtTick() {
						return
					}
					for i, n := range names {
						t.Bit(n, c.Get(pins[i]))
					}
					t.Next()
				}}
		}}).NewPart
}
