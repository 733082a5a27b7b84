// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwbus

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Connection connects the pin PP of a part to the pin CP of its host chip.
//
type Connection struct {
	PP string // part pin
	CP string // chip pin
}

// BusPinName returns the name of the i-th pin of the named bus.
//
func BusPinName(bus string, i int) string {
	return bus + "[" + strconv.Itoa(i) + "]"
}

// ParseConnections parses a connection configuration like "a=x, b=y" into
// a slice of Connection. Bus ranges are expanded:
//
//	"in[0..3]=bus[4..7]"
//
// connects pins in[0] through in[3] to bus[4] through bus[7]. A range can also
// be connected to a single pin, in which case all pins of the range are
// connected to that pin:
//
//	"in[0..15]=false"
//
func ParseConnections(c string) ([]Connection, error) {
	c = strings.TrimSpace(c)
	if c == "" {
		return nil, nil
	}
	var conns []Connection
	for _, f := range strings.Split(c, ",") {
		kv := strings.Split(f, "=")
		if len(kv) != 2 {
			return nil, errors.Errorf("invalid connection %q", strings.TrimSpace(f))
		}
		k, v := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if k == "" || v == "" {
			return nil, errors.Errorf("invalid pin mapping %q", strings.TrimSpace(f))
		}
		ks, err := expandRange(k)
		if err != nil {
			return nil, errors.Wrap(err, "expand key "+k)
		}
		vs, err := expandRange(v)
		if err != nil {
			return nil, errors.Wrap(err, "expand value "+v)
		}
		switch {
		case len(ks) == len(vs):
			for i := range ks {
				conns = append(conns, Connection{ks[i], vs[i]})
			}
		case len(vs) == 1:
			for _, k := range ks {
				conns = append(conns, Connection{k, vs[0]})
			}
		default:
			return nil, errors.New("pin count mismatch in pin mapping: " + k + "=" + v)
		}
	}
	return conns, nil
}

func expandRange(name string) ([]string, error) {
	i := strings.IndexByte(name, '[')
	if i < 0 {
		return []string{name}, nil
	}
	bus := name[:i]
	if bus == "" {
		return nil, errors.New("empty bus name")
	}
	n := name[i+1:]
	j := strings.IndexByte(n, ']')
	if j < 0 {
		return nil, errors.New("no terminating ] in bus range")
	}
	if j != len(n)-1 {
		return nil, errors.Errorf("trailing characters after ] in %q", name)
	}
	n = n[:j]
	i = strings.Index(n, "..")
	if i < 0 {
		idx, err := strconv.Atoi(n)
		if err != nil || idx < 0 {
			return nil, errors.Errorf("invalid bus index in %q", name)
		}
		return []string{BusPinName(bus, idx)}, nil
	}
	start, err := strconv.Atoi(n[:i])
	if err != nil {
		return nil, err
	}
	end, err := strconv.Atoi(n[i+2:])
	if err != nil {
		return nil, err
	}
	if start < 0 || end < start {
		return nil, errors.Errorf("invalid bus range in %q", name)
	}
	r := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		r = append(r, BusPinName(bus, i))
	}
	return r, nil
}

// IO expands a pin specification like "a, b, bus[4]" into individual pin
// names: []string{"a", "b", "bus[0]", "bus[1]", "bus[2]", "bus[3]"}.
// It panics if the specification is invalid.
//
func IO(spec string) []string {
	names, err := parseIOSpec(spec)
	if err != nil {
		panic(err)
	}
	return names
}

func parseIOSpec(spec string) ([]string, error) {
	var out []string
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	seen := make(map[string]bool)
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, errors.Errorf("in %q: expected pin name", spec)
		}
		names := []string{f}
		if i := strings.IndexByte(f, '['); i >= 0 {
			if i == 0 || !strings.HasSuffix(f, "]") {
				return nil, errors.Errorf("in %q: malformed bus %q", spec, f)
			}
			size, err := strconv.Atoi(f[i+1 : len(f)-1])
			if err != nil || size <= 0 {
				return nil, errors.Errorf("in %q: invalid bus size for %q", spec, f)
			}
			names = names[:0]
			for b := 0; b < size; b++ {
				names = append(names, BusPinName(f[:i], b))
			}
		}
		for _, n := range names {
			if seen[n] {
				return nil, errors.Errorf("in %q: duplicate pin name %q", spec, n)
			}
			seen[n] = true
		}
		out = append(out, names...)
	}
	return out, nil
}
