// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwbus

import "github.com/pkg/errors"

// ErrContention is returned by Sense and Resolve when more than one
// participant drives a shared line in the same cycle.
//
var ErrContention = errors.New("line driven by more than one participant")

// A Driver is one participant's contribution to a shared bidirectional line.
// The zero value is a released (high impedance) output.
//
type Driver struct {
	Enable bool // output enable
	Value  bool // level driven while Enable is set
}

// Commonly used drivers. Open-drain outputs only ever use Released and Low.
//
var (
	Released = Driver{}
	Low      = Driver{Enable: true, Value: false}
	High     = Driver{Enable: true, Value: true}
)

// OpenDrain returns Low if low is true, Released otherwise.
//
func OpenDrain(low bool) Driver {
	if low {
		return Low
	}
	return Released
}

// Sense returns the level driven on a line by ds. If no participant drives the
// line, driven is false.
//
func Sense(ds ...Driver) (v bool, driven bool, err error) {
	for _, d := range ds {
		if !d.Enable {
			continue
		}
		if driven {
			return false, false, ErrContention
		}
		v, driven = d.Value, true
	}
	return v, driven, nil
}

// A Line is a shared wire with a passive pull resistor. Pull is the level
// observed when no participant drives the line.
//
type Line struct {
	Pull bool
}

// Resolve returns the level observed on the line given all its drivers.
//
func (l Line) Resolve(ds ...Driver) (bool, error) {
	v, driven, err := Sense(ds...)
	if err != nil {
		return false, err
	}
	if !driven {
		return l.Pull, nil
	}
	return v, nil
}
