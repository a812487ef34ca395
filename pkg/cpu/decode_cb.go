package cpu

func (z *Z80) execCB() {
	z.incR()
	op := z.bus.FetchOpcode(z.pc)
	z.pc++
	cbOps[op](z)
}

// initCBOps fills the rotate/shift, BIT, RES and SET groups over
// B, C, D, E, H, L, (HL) and A.
func initCBOps() {
	for op := 0; op < 256; op++ {
		x, y, r := uint8(op>>6), uint8(op>>3)&7, uint8(op)&7
		mask := uint8(1) << y

		switch x {
		case 0:
			if r == 6 {
				cbOps[op] = func(z *Z80) {
					hl := z.HL()
					v := z.rot(y, z.bus.Peek8(hl))
					z.bus.ContendedStates(hl, 1)
					z.bus.Poke8(hl, v)
				}
			} else {
				cbOps[op] = func(z *Z80) { z.setReg(r, z.rot(y, z.reg(r))) }
			}
		case 1:
			if r == 6 {
				// Bits 5 and 3 come from MEMPTR.
				cbOps[op] = func(z *Z80) {
					hl := z.HL()
					z.bit(mask, z.bus.Peek8(hl))
					z.flags = z.flags&flagSZHP | uint8(z.memptr>>8)&flag53
					z.bus.ContendedStates(hl, 1)
				}
			} else {
				cbOps[op] = func(z *Z80) { z.bit(mask, z.reg(r)) }
			}
		case 2:
			if r == 6 {
				cbOps[op] = func(z *Z80) {
					hl := z.HL()
					v := z.bus.Peek8(hl) &^ mask
					z.bus.ContendedStates(hl, 1)
					z.bus.Poke8(hl, v)
				}
			} else {
				cbOps[op] = func(z *Z80) { z.setReg(r, z.reg(r)&^mask) }
			}
		case 3:
			if r == 6 {
				cbOps[op] = func(z *Z80) {
					hl := z.HL()
					v := z.bus.Peek8(hl) | mask
					z.bus.ContendedStates(hl, 1)
					z.bus.Poke8(hl, v)
				}
			} else {
				cbOps[op] = func(z *Z80) { z.setReg(r, z.reg(r)|mask) }
			}
		}
	}
}
