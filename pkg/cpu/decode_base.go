package cpu

// Per-prefix dispatch tables. They are filled in init and never modified,
// so every Z80 instance shares them.
var (
	baseOps [256]func(*Z80)
	cbOps   [256]func(*Z80)
	edOps   [256]func(*Z80)
)

// reg returns the register selected by a 3-bit operand field. Code 6,
// the (HL) operand, is handled by callers.
func (z *Z80) reg(r uint8) uint8 {
	switch r & 7 {
	case 0:
		return z.b
	case 1:
		return z.c
	case 2:
		return z.d
	case 3:
		return z.e
	case 4:
		return z.h
	case 5:
		return z.l
	case 7:
		return z.a
	}
	return 0
}

func (z *Z80) setReg(r, v uint8) {
	switch r & 7 {
	case 0:
		z.b = v
	case 1:
		z.c = v
	case 2:
		z.d = v
	case 3:
		z.e = v
	case 4:
		z.h = v
	case 5:
		z.l = v
	case 7:
		z.a = v
	}
}

// rp returns the pair selected by a 2-bit field, SP for code 3.
func (z *Z80) rp(p uint8) uint16 {
	switch p & 3 {
	case 0:
		return z.BC()
	case 1:
		return z.DE()
	case 2:
		return z.HL()
	}
	return z.sp
}

func (z *Z80) setRP(p uint8, w uint16) {
	switch p & 3 {
	case 0:
		z.SetBC(w)
	case 1:
		z.SetDE(w)
	case 2:
		z.SetHL(w)
	default:
		z.sp = w
	}
}

// cond evaluates condition code y: NZ, Z, NC, C, PO, PE, P, M.
func (z *Z80) cond(y uint8) bool {
	switch y & 7 {
	case 0:
		return z.flags&FlagZ == 0
	case 1:
		return z.flags&FlagZ != 0
	case 2:
		return !z.carry
	case 3:
		return z.carry
	case 4:
		return z.flags&FlagP == 0
	case 5:
		return z.flags&FlagP != 0
	case 6:
		return z.flags < FlagS
	}
	return z.flags > 0x7f
}

// imm8 reads the byte at PC and advances past it.
func (z *Z80) imm8() uint8 {
	v := z.bus.Peek8(z.pc)
	z.pc++
	return v
}

// imm16 reads the word at PC and advances past it.
func (z *Z80) imm16() uint16 {
	w := z.bus.Peek16(z.pc)
	z.pc += 2
	return w
}

func (z *Z80) jr() {
	off := int8(z.bus.Peek8(z.pc))
	z.bus.ContendedStates(z.pc, 5)
	z.pc += uint16(off) + 1
	z.memptr = z.pc
}

func (z *Z80) jrIf(taken bool) {
	if taken {
		z.jr()
		return
	}
	z.bus.Peek8(z.pc)
	z.pc++
}

func (z *Z80) call(taken bool) {
	z.memptr = z.bus.Peek16(z.pc)
	if !taken {
		z.pc += 2
		return
	}
	z.bus.ContendedStates(z.pc+1, 1)
	z.push(z.pc + 2)
	z.pc = z.memptr
}

func (z *Z80) rst(addr uint16) {
	z.bus.ContendedStates(z.PairIR(), 1)
	z.push(z.pc)
	z.pc = addr
	z.memptr = addr
}

// ret pops PC for RET and the taken conditional returns.
func (z *Z80) ret() {
	z.pc = z.pop()
	z.memptr = z.pc
}

func init() {
	initBaseOps()
	initCBOps()
	initEDOps()
	initIndexOps()
	initIndexCBOps()
}

func initBaseOps() {
	baseOps[0x00] = func(z *Z80) {}

	// Register pair group, x=0 p=0..3.
	for p := uint8(0); p < 4; p++ {
		baseOps[p<<4|0x01] = func(z *Z80) { z.setRP(p, z.imm16()) }
		baseOps[p<<4|0x03] = func(z *Z80) {
			z.bus.ContendedStates(z.PairIR(), 2)
			z.setRP(p, z.rp(p)+1)
		}
		baseOps[p<<4|0x09] = func(z *Z80) {
			z.bus.ContendedStates(z.PairIR(), 7)
			z.SetHL(z.add16(z.HL(), z.rp(p)))
		}
		baseOps[p<<4|0x0b] = func(z *Z80) {
			z.bus.ContendedStates(z.PairIR(), 2)
			z.setRP(p, z.rp(p)-1)
		}
	}

	// INC r, DEC r, LD r,n.
	for y := uint8(0); y < 8; y++ {
		if y == 6 {
			continue
		}
		baseOps[y<<3|0x04] = func(z *Z80) { z.setReg(y, z.inc8(z.reg(y))) }
		baseOps[y<<3|0x05] = func(z *Z80) { z.setReg(y, z.dec8(z.reg(y))) }
		baseOps[y<<3|0x06] = func(z *Z80) { z.setReg(y, z.imm8()) }
	}
	baseOps[0x34] = func(z *Z80) {
		hl := z.HL()
		v := z.inc8(z.bus.Peek8(hl))
		z.bus.ContendedStates(hl, 1)
		z.bus.Poke8(hl, v)
	}
	baseOps[0x35] = func(z *Z80) {
		hl := z.HL()
		v := z.dec8(z.bus.Peek8(hl))
		z.bus.ContendedStates(hl, 1)
		z.bus.Poke8(hl, v)
	}
	baseOps[0x36] = func(z *Z80) { z.bus.Poke8(z.HL(), z.imm8()) }

	baseOps[0x02] = func(z *Z80) {
		z.bus.Poke8(z.BC(), z.a)
		z.memptr = uint16(z.a)<<8 | uint16(z.c+1)
	}
	baseOps[0x12] = func(z *Z80) {
		z.bus.Poke8(z.DE(), z.a)
		z.memptr = uint16(z.a)<<8 | uint16(z.e+1)
	}
	baseOps[0x0a] = func(z *Z80) {
		z.memptr = z.BC()
		z.a = z.bus.Peek8(z.memptr)
		z.memptr++
	}
	baseOps[0x1a] = func(z *Z80) {
		z.memptr = z.DE()
		z.a = z.bus.Peek8(z.memptr)
		z.memptr++
	}
	baseOps[0x22] = func(z *Z80) {
		z.memptr = z.imm16()
		z.bus.Poke16(z.memptr, z.HL())
		z.memptr++
	}
	baseOps[0x2a] = func(z *Z80) {
		z.memptr = z.imm16()
		z.SetHL(z.bus.Peek16(z.memptr))
		z.memptr++
	}
	baseOps[0x32] = func(z *Z80) {
		addr := z.imm16()
		z.bus.Poke8(addr, z.a)
		z.memptr = uint16(z.a)<<8 | (addr+1)&0xff
	}
	baseOps[0x3a] = func(z *Z80) {
		z.memptr = z.imm16()
		z.a = z.bus.Peek8(z.memptr)
		z.memptr++
	}

	baseOps[0x07] = (*Z80).rlca
	baseOps[0x0f] = (*Z80).rrca
	baseOps[0x17] = (*Z80).rla
	baseOps[0x1f] = (*Z80).rra
	baseOps[0x27] = (*Z80).daa
	baseOps[0x2f] = (*Z80).cpl
	baseOps[0x37] = (*Z80).scf
	baseOps[0x3f] = (*Z80).ccf

	baseOps[0x08] = func(z *Z80) {
		z.a, z.ax = z.ax, z.a
		f := z.Flags()
		z.SetFlags(z.fx)
		z.fx = f
	}
	baseOps[0x10] = func(z *Z80) {
		z.bus.ContendedStates(z.PairIR(), 1)
		off := int8(z.bus.Peek8(z.pc))
		z.b--
		if z.b != 0 {
			z.bus.ContendedStates(z.pc, 5)
			z.pc += uint16(off) + 1
			z.memptr = z.pc
			return
		}
		z.pc++
	}
	baseOps[0x18] = (*Z80).jr
	baseOps[0x20] = func(z *Z80) { z.jrIf(z.flags&FlagZ == 0) }
	baseOps[0x28] = func(z *Z80) { z.jrIf(z.flags&FlagZ != 0) }
	baseOps[0x30] = func(z *Z80) { z.jrIf(!z.carry) }
	baseOps[0x38] = func(z *Z80) { z.jrIf(z.carry) }

	// LD r,r' with (HL) forms. 0x76 is HALT.
	for op := 0x40; op < 0x80; op++ {
		dst, src := uint8(op>>3)&7, uint8(op)&7
		switch {
		case op == 0x76:
			baseOps[op] = func(z *Z80) {
				z.pc--
				z.halted = true
			}
		case dst == 6:
			baseOps[op] = func(z *Z80) { z.bus.Poke8(z.HL(), z.reg(src)) }
		case src == 6:
			baseOps[op] = func(z *Z80) { z.setReg(dst, z.bus.Peek8(z.HL())) }
		case dst == src:
			baseOps[op] = baseOps[0x00]
		default:
			baseOps[op] = func(z *Z80) { z.setReg(dst, z.reg(src)) }
		}
	}

	// ALU A,r and ALU A,(HL).
	for op := 0x80; op < 0xc0; op++ {
		y, src := uint8(op>>3)&7, uint8(op)&7
		if src == 6 {
			baseOps[op] = func(z *Z80) { z.alu(y, z.bus.Peek8(z.HL())) }
		} else {
			baseOps[op] = func(z *Z80) { z.alu(y, z.reg(src)) }
		}
	}

	for y := uint8(0); y < 8; y++ {
		baseOps[0xc0|y<<3] = func(z *Z80) {
			z.bus.ContendedStates(z.PairIR(), 1)
			if z.cond(y) {
				z.ret()
			}
		}
		baseOps[0xc2|y<<3] = func(z *Z80) {
			z.memptr = z.bus.Peek16(z.pc)
			if z.cond(y) {
				z.pc = z.memptr
				return
			}
			z.pc += 2
		}
		baseOps[0xc4|y<<3] = func(z *Z80) { z.call(z.cond(y)) }
		baseOps[0xc6|y<<3] = func(z *Z80) { z.alu(y, z.imm8()) }
		addr := uint16(y) << 3
		baseOps[0xc7|y<<3] = func(z *Z80) { z.rst(addr) }
	}

	// PUSH and POP use AF in place of SP.
	for p := uint8(0); p < 3; p++ {
		baseOps[0xc1|p<<4] = func(z *Z80) { z.setRP(p, z.pop()) }
		baseOps[0xc5|p<<4] = func(z *Z80) {
			z.bus.ContendedStates(z.PairIR(), 1)
			z.push(z.rp(p))
		}
	}
	baseOps[0xf1] = func(z *Z80) { z.SetAF(z.pop()) }
	baseOps[0xf5] = func(z *Z80) {
		z.bus.ContendedStates(z.PairIR(), 1)
		z.push(z.AF())
	}

	baseOps[0xc3] = func(z *Z80) {
		z.pc = z.bus.Peek16(z.pc)
		z.memptr = z.pc
	}
	baseOps[0xc9] = (*Z80).ret
	baseOps[0xcd] = func(z *Z80) { z.call(true) }

	baseOps[0xd3] = func(z *Z80) {
		n := z.imm8()
		z.bus.OutPort(uint16(z.a)<<8|uint16(n), z.a)
		z.memptr = uint16(z.a)<<8 | uint16(n+1)
	}
	baseOps[0xdb] = func(z *Z80) {
		port := uint16(z.a)<<8 | uint16(z.imm8())
		z.a = z.bus.InPort(port)
		z.memptr = port + 1
	}

	baseOps[0xd9] = func(z *Z80) {
		z.b, z.bx = z.bx, z.b
		z.c, z.cx = z.cx, z.c
		z.d, z.dx = z.dx, z.d
		z.e, z.ex = z.ex, z.e
		z.h, z.hx = z.hx, z.h
		z.l, z.lx = z.lx, z.l
	}
	baseOps[0xe3] = func(z *Z80) {
		h, l := z.h, z.l
		z.SetHL(z.bus.Peek16(z.sp))
		z.bus.ContendedStates(z.sp+1, 1)
		z.bus.Poke8(z.sp+1, h)
		z.bus.Poke8(z.sp, l)
		z.bus.ContendedStates(z.sp, 2)
		z.memptr = z.HL()
	}
	baseOps[0xe9] = func(z *Z80) { z.pc = z.HL() }
	baseOps[0xeb] = func(z *Z80) {
		z.d, z.h = z.h, z.d
		z.e, z.l = z.l, z.e
	}
	baseOps[0xf9] = func(z *Z80) {
		z.bus.ContendedStates(z.PairIR(), 2)
		z.sp = z.HL()
	}
	baseOps[0xf3] = func(z *Z80) { z.iff1, z.iff2 = false, false }
	baseOps[0xfb] = func(z *Z80) {
		z.iff1, z.iff2 = true, true
		z.pendingEI = true
	}

	baseOps[0xcb] = (*Z80).execCB
	baseOps[0xed] = (*Z80).execED
	baseOps[0xdd] = func(z *Z80) { z.execIndex(&z.ix) }
	baseOps[0xfd] = func(z *Z80) { z.execIndex(&z.iy) }
}
