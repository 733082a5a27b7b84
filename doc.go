// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package hwbus provides cycle-accurate models of on-chip bus and serial
peripheral adapters, together with the naive circuit simulator used to wire
them to other parts.

The adapters live in sub-packages:

	axilite   AXI4-Lite register slave
	wishbone  Wishbone classic single cycle register slave
	spi       SPI master controller
	i2c       I2C slave controller

Each adapter is a plain Go value advanced by explicit calls to its Step method,
one call per rising edge of the reference clock, and exposes its application
side through the register interface defined in package regbus. Adapters also
provide a Part function that packages the model as a circuit part, so that it
can be composed with other parts using Chip and run in a Circuit.

Shared bidirectional lines, such as the I2C data line, are modeled with a
Driver per participant. At most one participant may enable its driver in any
given cycle; Line.Resolve reports violations with ErrContention and returns the
pull level when nobody drives the line.
*/
package hwbus
