package cpu

// DDCB/FDCB opcodes, split by bit 7: rotates and BIT below 0x80, RES and
// SET above. Handlers get the effective address IX+d.
var (
	indexCBLow  [128]func(z *Z80, addr uint16)
	indexCBHigh [128]func(z *Z80, addr uint16)
)

// execIndexCB runs DD CB d op. The final opcode byte is read as data, not
// fetched, so R does not advance for it.
func (z *Z80) execIndexCB(xy uint16) {
	z.memptr = xy + uint16(int8(z.bus.Peek8(z.pc)))
	z.pc++
	op := z.bus.Peek8(z.pc)
	z.bus.ContendedStates(z.pc, 2)
	z.pc++
	if op < 0x80 {
		indexCBLow[op](z, z.memptr)
	} else {
		indexCBHigh[op&0x7f](z, z.memptr)
	}
}

// writeBack stores the result to memory and, except for code 6, copies it
// into the register named by the opcode.
func (z *Z80) writeBack(addr uint16, r, v uint8) {
	z.bus.ContendedStates(addr, 1)
	z.bus.Poke8(addr, v)
	if r != 6 {
		z.setReg(r, v)
	}
}

func initIndexCBOps() {
	for op := 0; op < 128; op++ {
		y, r := uint8(op>>3)&7, uint8(op)&7
		mask := uint8(1) << y

		if op < 0x40 {
			indexCBLow[op] = func(z *Z80, addr uint16) {
				z.writeBack(addr, r, z.rot(y, z.bus.Peek8(addr)))
			}
		} else {
			// All eight register codes are BIT with flags 5 and 3 from the
			// address high byte.
			indexCBLow[op] = func(z *Z80, addr uint16) {
				z.bit(mask, z.bus.Peek8(addr))
				z.flags = z.flags&flagSZHP | uint8(addr>>8)&flag53
				z.bus.ContendedStates(addr, 1)
			}
		}

		if op < 0x40 {
			indexCBHigh[op] = func(z *Z80, addr uint16) {
				z.writeBack(addr, r, z.bus.Peek8(addr)&^mask)
			}
		} else {
			indexCBHigh[op] = func(z *Z80, addr uint16) {
				z.writeBack(addr, r, z.bus.Peek8(addr)|mask)
			}
		}
	}
}
