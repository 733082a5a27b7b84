// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package regbus

import "sort"

// File is a sparse register file implementing Store. Unwritten registers read
// as zero. The zero value is not usable, use NewFile.
//
type File struct {
	regs map[uint64]uint64

	// access counters
	Reads  int
	Writes int
}

// NewFile returns a new empty register file.
//
func NewFile() *File {
	return &File{regs: make(map[uint64]uint64)}
}

// ReadReg implements Store.
//
func (f *File) ReadReg(addr uint64) uint64 {
	f.Reads++
	return f.regs[addr]
}

// WriteReg implements Store.
//
func (f *File) WriteReg(addr, data uint64) {
	f.Writes++
	f.regs[addr] = data
}

// Peek returns the content of a register without counting an access.
//
func (f *File) Peek(addr uint64) uint64 {
	return f.regs[addr]
}

// Addrs returns the addresses of all written registers in increasing order.
//
func (f *File) Addrs() []uint64 {
	as := make([]uint64, 0, len(f.regs))
	for a := range f.regs {
		as = append(as, a)
	}
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	return as
}
