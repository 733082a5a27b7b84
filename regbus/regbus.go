// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package regbus defines the register interface shared by all bus adapters:
// an adapter drives a Request for at most one cycle per transaction and reads
// the store's answer back on the next cycle.
//
package regbus

// Request is the application side of an adapter for one clock cycle.
// ReadValid and WriteValid are never set at the same time.
//
type Request struct {
	Addr       uint64
	WriteData  uint64
	ReadValid  bool
	WriteValid bool
}

// Idle returns true if r carries no transaction.
//
func (r Request) Idle() bool {
	return !r.ReadValid && !r.WriteValid
}

// Read returns a read request for addr.
//
func Read(addr uint64) Request {
	return Request{Addr: addr, ReadValid: true}
}

// Write returns a write request of data at addr.
//
func Write(addr, data uint64) Request {
	return Request{Addr: addr, WriteData: data, WriteValid: true}
}

// A Store is the application register storage behind an adapter.
//
type Store interface {
	ReadReg(addr uint64) uint64
	WriteReg(addr, data uint64)
}

// Serve performs the side effect of r on s and returns the read data to feed
// back to the adapter on the next cycle. It returns 0 for idle and write
// requests.
//
func Serve(s Store, r Request) uint64 {
	switch {
	case r.WriteValid:
		s.WriteReg(r.Addr, r.WriteData)
	case r.ReadValid:
		return s.ReadReg(r.Addr)
	}
	return 0
}

// Mask returns a mask of the given bit width.
//
func Mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}
