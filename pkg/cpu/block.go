package cpu

// Block transfer, compare and I/O primitives. Each performs a single step;
// the repeating forms live in the ED table and rewind PC.

func (z *Z80) ldi() { z.ldStep(+1) }
func (z *Z80) ldd() { z.ldStep(-1) }

func (z *Z80) ldStep(dir int) {
	v := z.bus.Peek8(z.HL())
	de := z.DE()
	z.bus.Poke8(de, v)
	z.bus.ContendedStates(de, 2)
	z.SetHL(z.HL() + uint16(dir))
	z.SetDE(de + uint16(dir))
	z.SetBC(z.BC() - 1)

	n := v + z.a
	z.flags = z.flags&flagSZ | n&Flag3
	if n&FlagN != 0 {
		z.flags |= Flag5
	}
	if z.b != 0 || z.c != 0 {
		z.flags |= FlagP
	}
	z.q = true
}

func (z *Z80) cpi() { z.cpStep(+1) }
func (z *Z80) cpd() { z.cpStep(-1) }

func (z *Z80) cpStep(dir int) {
	hl := z.HL()
	v := z.bus.Peek8(hl)
	carry := z.carry
	z.cp(v)
	z.carry = carry
	z.bus.ContendedStates(hl, 5)
	z.SetHL(hl + uint16(dir))
	z.SetBC(z.BC() - 1)

	n := z.a - v
	if z.flags&FlagH != 0 {
		n--
	}
	z.flags = z.flags&flagSZHN | n&Flag3
	if n&FlagN != 0 {
		z.flags |= Flag5
	}
	if z.b != 0 || z.c != 0 {
		z.flags |= FlagP
	}
	z.memptr += uint16(dir)
	z.q = true
}

func (z *Z80) ini() { z.inStep(+1) }
func (z *Z80) ind() { z.inStep(-1) }

func (z *Z80) inStep(dir int) {
	z.memptr = z.BC()
	z.bus.ContendedStates(z.PairIR(), 1)
	v := z.bus.InPort(z.memptr)
	z.bus.Poke8(z.HL(), v)

	z.memptr += uint16(dir)
	z.b--
	z.SetHL(z.HL() + uint16(dir))

	z.flags = Sz53pnAddTable[z.b]
	if v > 0x7f {
		z.flags |= FlagN
	}
	z.carry = false
	tmp := uint16(v) + uint16(z.c+uint8(dir))
	if tmp > 0xff {
		z.flags |= FlagH
		z.carry = true
	}
	if Sz53pnAddTable[uint8(tmp)&0x07^z.b]&FlagP != 0 {
		z.flags |= FlagP
	} else {
		z.flags &^= FlagP
	}
	z.q = true
}

func (z *Z80) outi() { z.outStep(+1) }
func (z *Z80) outd() { z.outStep(-1) }

func (z *Z80) outStep(dir int) {
	z.bus.ContendedStates(z.PairIR(), 1)
	z.b--
	z.memptr = z.BC()

	v := z.bus.Peek8(z.HL())
	z.bus.OutPort(z.memptr, v)
	z.memptr += uint16(dir)
	z.SetHL(z.HL() + uint16(dir))

	z.carry = false
	if v > 0x7f {
		z.flags = Sz53nSubTable[z.b]
	} else {
		z.flags = Sz53nAddTable[z.b]
	}
	sum := uint16(z.l) + uint16(v)
	if sum > 0xff {
		z.flags |= FlagH
		z.carry = true
	}
	if Sz53pnAddTable[uint8(sum)&0x07^z.b]&FlagP != 0 {
		z.flags |= FlagP
	}
	z.q = true
}
