package cpu

// 8-bit arithmetic on A.

func (z *Z80) adc(v uint8) {
	res := uint16(z.a) + uint16(v)
	if z.carry {
		res++
	}
	r := uint8(res)
	z.carry = res > 0xff
	z.flags = Sz53nAddTable[r]
	if (z.a^v^r)&0x10 != 0 {
		z.flags |= FlagH
	}
	if (z.a^^v)&(z.a^r) > 0x7f {
		z.flags |= FlagV
	}
	z.a = r
	z.q = true
}

func (z *Z80) add(v uint8) {
	z.carry = false
	z.adc(v)
}

func (z *Z80) sbc(v uint8) {
	res := int(z.a) - int(v)
	if z.carry {
		res--
	}
	r := uint8(res)
	z.carry = res < 0
	z.flags = Sz53nSubTable[r]
	if (z.a^v^r)&0x10 != 0 {
		z.flags |= FlagH
	}
	if (z.a^v)&(z.a^r) > 0x7f {
		z.flags |= FlagV
	}
	z.a = r
	z.q = true
}

func (z *Z80) sub(v uint8) {
	z.carry = false
	z.sbc(v)
}

func (z *Z80) and(v uint8) {
	z.a &= v
	z.carry = false
	z.flags = Sz53pnAddTable[z.a] | FlagH
	z.q = true
}

func (z *Z80) xor(v uint8) {
	z.a ^= v
	z.carry = false
	z.flags = Sz53pnAddTable[z.a]
	z.q = true
}

func (z *Z80) or(v uint8) {
	z.a |= v
	z.carry = false
	z.flags = Sz53pnAddTable[z.a]
	z.q = true
}

// cp takes bits 5 and 3 from the operand, not from the result.
func (z *Z80) cp(v uint8) {
	res := int(z.a) - int(v)
	r := uint8(res)
	z.carry = res < 0
	z.flags = Sz53nAddTable[v]&flag53 | Sz53nSubTable[r]&flagSZHN
	if r&0x0f > z.a&0x0f {
		z.flags |= FlagH
	}
	if (z.a^v)&(z.a^r) > 0x7f {
		z.flags |= FlagV
	}
	z.q = true
}

// alu dispatches the eight accumulator operations by the y field of the
// opcode (ADD, ADC, SUB, SBC, AND, XOR, OR, CP).
func (z *Z80) alu(y uint8, v uint8) {
	switch y & 7 {
	case 0:
		z.add(v)
	case 1:
		z.adc(v)
	case 2:
		z.sub(v)
	case 3:
		z.sbc(v)
	case 4:
		z.and(v)
	case 5:
		z.xor(v)
	case 6:
		z.or(v)
	case 7:
		z.cp(v)
	}
}

func (z *Z80) inc8(v uint8) uint8 {
	v++
	z.flags = Sz53nAddTable[v]
	if v&0x0f == 0 {
		z.flags |= FlagH
	}
	if v == 0x80 {
		z.flags |= FlagV
	}
	z.q = true
	return v
}

func (z *Z80) dec8(v uint8) uint8 {
	v--
	z.flags = Sz53nSubTable[v]
	if v&0x0f == 0x0f {
		z.flags |= FlagH
	}
	if v == 0x7f {
		z.flags |= FlagV
	}
	z.q = true
	return v
}

func (z *Z80) daa() {
	var adj uint8
	carry := z.carry
	if z.flags&FlagH != 0 || z.a&0x0f > 0x09 {
		adj = 0x06
	}
	if carry || z.a > 0x99 {
		adj |= 0x60
	}
	if z.a > 0x99 {
		carry = true
	}
	z.carry = false
	if z.flags&FlagN != 0 {
		z.sbc(adj)
		z.flags = z.flags&FlagH | Sz53pnSubTable[z.a]
	} else {
		z.adc(adj)
		z.flags = z.flags&FlagH | Sz53pnAddTable[z.a]
	}
	z.carry = carry
	z.q = true
}

func (z *Z80) neg() {
	v := z.a
	z.a = 0
	z.carry = false
	z.sbc(v)
}

// 16-bit arithmetic.

func (z *Z80) add16(reg, v uint16) uint16 {
	res := uint32(reg) + uint32(v)
	r := uint16(res)
	z.carry = res > 0xffff
	z.flags = z.flags&flagSZP | uint8(r>>8)&flag53
	if r&0x0fff < reg&0x0fff {
		z.flags |= FlagH
	}
	z.memptr = reg + 1
	z.q = true
	return r
}

func (z *Z80) adc16(v uint16) {
	hl := z.HL()
	z.memptr = hl + 1
	res := uint32(hl) + uint32(v)
	if z.carry {
		res++
	}
	r := uint16(res)
	z.carry = res > 0xffff
	z.flags = Sz53nAddTable[uint8(r>>8)]
	if r != 0 {
		z.flags &^= FlagZ
	}
	if (r^hl^v)&0x1000 != 0 {
		z.flags |= FlagH
	}
	if (hl^^v)&(hl^r) > 0x7fff {
		z.flags |= FlagV
	}
	z.SetHL(r)
	z.q = true
}

func (z *Z80) sbc16(v uint16) {
	hl := z.HL()
	z.memptr = hl + 1
	res := int(hl) - int(v)
	if z.carry {
		res--
	}
	r := uint16(res)
	z.carry = res < 0
	z.flags = Sz53nSubTable[uint8(r>>8)]
	if r != 0 {
		z.flags &^= FlagZ
	}
	if (r^hl^v)&0x1000 != 0 {
		z.flags |= FlagH
	}
	if (hl^v)&(hl^r) > 0x7fff {
		z.flags |= FlagV
	}
	z.SetHL(r)
	z.q = true
}

// Rotates and shifts through carry. All set S, Z, 5, 3 and P from the result.

func (z *Z80) rlc(v uint8) uint8 {
	z.carry = v > 0x7f
	v = v<<1 | v>>7
	z.flags = Sz53pnAddTable[v]
	z.q = true
	return v
}

func (z *Z80) rl(v uint8) uint8 {
	c := z.carry
	z.carry = v > 0x7f
	v <<= 1
	if c {
		v |= 0x01
	}
	z.flags = Sz53pnAddTable[v]
	z.q = true
	return v
}

func (z *Z80) rrc(v uint8) uint8 {
	z.carry = v&0x01 != 0
	v = v>>1 | v<<7
	z.flags = Sz53pnAddTable[v]
	z.q = true
	return v
}

func (z *Z80) rr(v uint8) uint8 {
	c := z.carry
	z.carry = v&0x01 != 0
	v >>= 1
	if c {
		v |= 0x80
	}
	z.flags = Sz53pnAddTable[v]
	z.q = true
	return v
}

func (z *Z80) sla(v uint8) uint8 {
	z.carry = v > 0x7f
	v <<= 1
	z.flags = Sz53pnAddTable[v]
	z.q = true
	return v
}

func (z *Z80) sra(v uint8) uint8 {
	z.carry = v&0x01 != 0
	v = v>>1 | v&0x80
	z.flags = Sz53pnAddTable[v]
	z.q = true
	return v
}

// sll is the undocumented shift left that feeds a 1 into bit 0.
func (z *Z80) sll(v uint8) uint8 {
	z.carry = v > 0x7f
	v = v<<1 | 0x01
	z.flags = Sz53pnAddTable[v]
	z.q = true
	return v
}

func (z *Z80) srl(v uint8) uint8 {
	z.carry = v&0x01 != 0
	v >>= 1
	z.flags = Sz53pnAddTable[v]
	z.q = true
	return v
}

// rot dispatches the CB rotate/shift group by the y field.
func (z *Z80) rot(y uint8, v uint8) uint8 {
	switch y & 7 {
	case 0:
		return z.rlc(v)
	case 1:
		return z.rrc(v)
	case 2:
		return z.rl(v)
	case 3:
		return z.rr(v)
	case 4:
		return z.sla(v)
	case 5:
		return z.sra(v)
	case 6:
		return z.sll(v)
	}
	return z.srl(v)
}

// Accumulator rotates keep S, Z and P.

func (z *Z80) rlca() {
	z.carry = z.a > 0x7f
	z.a = z.a<<1 | z.a>>7
	z.flags = z.flags&flagSZP | z.a&flag53
	z.q = true
}

func (z *Z80) rrca() {
	z.carry = z.a&0x01 != 0
	z.a = z.a>>1 | z.a<<7
	z.flags = z.flags&flagSZP | z.a&flag53
	z.q = true
}

func (z *Z80) rla() {
	c := z.carry
	z.carry = z.a > 0x7f
	z.a <<= 1
	if c {
		z.a |= 0x01
	}
	z.flags = z.flags&flagSZP | z.a&flag53
	z.q = true
}

func (z *Z80) rra() {
	c := z.carry
	z.carry = z.a&0x01 != 0
	z.a >>= 1
	if c {
		z.a |= 0x80
	}
	z.flags = z.flags&flagSZP | z.a&flag53
	z.q = true
}

func (z *Z80) cpl() {
	z.a = ^z.a
	z.flags = z.flags&flagSZP | FlagH | z.a&flag53 | FlagN
	z.q = true
}

// scf and ccf take bits 5 and 3 from A, ORed with F when the previous
// instruction did not modify the flags.
func (z *Z80) scf() {
	var q uint8
	if z.lastQ {
		q = z.flags
	}
	z.carry = true
	z.flags = z.flags&flagSZP | ((q^z.flags)|z.a)&flag53
	z.q = true
}

func (z *Z80) ccf() {
	var q uint8
	if z.lastQ {
		q = z.flags
	}
	z.flags = z.flags&flagSZP | ((q^z.flags)|z.a)&flag53
	if z.carry {
		z.flags |= FlagH
	}
	z.carry = !z.carry
	z.q = true
}

// bit tests mask against v. Callers of the memory forms overwrite bits 5
// and 3 afterwards.
func (z *Z80) bit(mask, v uint8) {
	zero := mask&v == 0
	z.flags = Sz53nAddTable[v]&^flagSZP | FlagH
	if zero {
		z.flags |= FlagP | FlagZ
	}
	if mask == 0x80 && !zero {
		z.flags |= FlagS
	}
	z.q = true
}

// Stack helpers.

func (z *Z80) push(w uint16) {
	z.sp--
	z.bus.Poke8(z.sp, uint8(w>>8))
	z.sp--
	z.bus.Poke8(z.sp, uint8(w))
}

func (z *Z80) pop() uint16 {
	w := z.bus.Peek16(z.sp)
	z.sp += 2
	return w
}
