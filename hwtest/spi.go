// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

// SPIPeer is an SPI slave device model. While selected, it shifts Data out on
// MISO and captures MOSI, using the same clock polarity and phase conventions
// as the master. Received is updated when the peer is deselected.
//
type SPIPeer struct {
	CPOL     bool
	CPHA     bool
	Width    int
	LSBFirst bool
	Data     uint64 // word sent during the next transfer
	Received uint64 // word received during the last transfer

	selected bool
	sclk     bool
	tx, rx   uint64
	n        int
	miso     bool
}

// Step observes the master outputs for one cycle and returns the MISO level for
// the next one.
//
func (p *SPIPeer) Step(sclk, mosi, csn bool) bool {
	switch {
	case csn:
		if p.selected {
			p.Received = p.rx
			p.selected = false
		}
		p.miso = false
		return p.miso
	case !p.selected:
		p.selected = true
		p.sclk = sclk
		p.tx, p.rx, p.n = p.Data, 0, 0
		if !p.CPHA {
			p.miso = p.shiftOut()
		}
		return p.miso
	}
	if sclk == p.sclk {
		return p.miso
	}
	p.sclk = sclk
	leading := sclk != p.CPOL
	if leading != p.CPHA {
		p.shiftIn(mosi)
	} else {
		p.miso = p.shiftOut()
	}
	return p.miso
}

func (p *SPIPeer) shiftOut() bool {
	var b bool
	if p.LSBFirst {
		b = p.tx&1 != 0
		p.tx >>= 1
	} else {
		b = p.tx&(1<<uint(p.Width-1)) != 0
		p.tx <<= 1
	}
	return b
}

func (p *SPIPeer) shiftIn(b bool) {
	if p.n >= p.Width {
		return
	}
	var v uint64
	if b {
		v = 1
	}
	if p.LSBFirst {
		p.rx |= v << uint(p.n)
	} else {
		p.rx = p.rx<<1 | v
	}
	p.n++
}
