package cpu

import (
	"fmt"
	"log/slog"
)

func (z *Z80) execED() {
	z.incR()
	op := z.bus.FetchOpcode(z.pc)
	z.pc++
	if fn := edOps[op]; fn != nil {
		fn(z)
		return
	}
	z.log.Error("unknown ED opcode",
		slog.String("opcode", fmt.Sprintf("%02X", op)),
		slog.String("pc", fmt.Sprintf("%04X", z.lastPC)))
}

func initEDOps() {
	for y := uint8(0); y < 8; y++ {
		base := 0x40 | y<<3

		// IN r,(C). Code 6 only sets flags.
		edOps[base] = func(z *Z80) {
			z.memptr = z.BC()
			v := z.bus.InPort(z.memptr)
			z.memptr++
			z.setReg(y, v)
			z.flags = Sz53pnAddTable[v]
			z.q = true
		}
		// OUT (C),r. Code 6 outputs zero.
		edOps[base|0x01] = func(z *Z80) {
			z.memptr = z.BC()
			var v uint8
			if y != 6 {
				v = z.reg(y)
			}
			z.bus.OutPort(z.memptr, v)
			z.memptr++
		}

		p := y >> 1
		if y&1 == 0 {
			edOps[base|0x02] = func(z *Z80) {
				z.bus.ContendedStates(z.PairIR(), 7)
				z.sbc16(z.rp(p))
			}
			edOps[base|0x03] = func(z *Z80) {
				z.memptr = z.imm16()
				z.bus.Poke16(z.memptr, z.rp(p))
				z.memptr++
			}
		} else {
			edOps[base|0x02] = func(z *Z80) {
				z.bus.ContendedStates(z.PairIR(), 7)
				z.adc16(z.rp(p))
			}
			edOps[base|0x03] = func(z *Z80) {
				z.memptr = z.imm16()
				z.setRP(p, z.bus.Peek16(z.memptr))
				z.memptr++
			}
		}

		edOps[base|0x04] = (*Z80).neg
		// RETN and RETI behave the same here.
		edOps[base|0x05] = func(z *Z80) {
			z.iff1 = z.iff2
			z.ret()
		}

		var mode IntMode
		switch y {
		case 2, 6:
			mode = IM1
		case 3, 7:
			mode = IM2
		}
		edOps[base|0x06] = func(z *Z80) { z.im = mode }
	}

	edOps[0x47] = func(z *Z80) {
		// Contention sees I before the load.
		z.bus.ContendedStates(z.PairIR(), 1)
		z.i = z.a
	}
	edOps[0x4f] = func(z *Z80) {
		z.bus.ContendedStates(z.PairIR(), 1)
		z.SetR(z.a)
	}
	edOps[0x57] = func(z *Z80) {
		z.bus.ContendedStates(z.PairIR(), 1)
		z.a = z.i
		z.ldAIR()
	}
	edOps[0x5f] = func(z *Z80) {
		z.bus.ContendedStates(z.PairIR(), 1)
		z.a = z.R()
		z.ldAIR()
	}
	edOps[0x67] = (*Z80).rrd
	edOps[0x6f] = (*Z80).rld

	edOps[0xa0] = (*Z80).ldi
	edOps[0xa1] = (*Z80).cpi
	edOps[0xa2] = (*Z80).ini
	edOps[0xa3] = (*Z80).outi
	edOps[0xa8] = (*Z80).ldd
	edOps[0xa9] = (*Z80).cpd
	edOps[0xaa] = (*Z80).ind
	edOps[0xab] = (*Z80).outd

	edOps[0xb0] = func(z *Z80) {
		z.ldi()
		if z.flags&FlagP != 0 {
			z.repeat()
			z.bus.ContendedStates(z.DE()-1, 5)
		}
	}
	edOps[0xb8] = func(z *Z80) {
		z.ldd()
		if z.flags&FlagP != 0 {
			z.repeat()
			z.bus.ContendedStates(z.DE()+1, 5)
		}
	}
	edOps[0xb1] = func(z *Z80) {
		z.cpi()
		if z.flags&FlagP != 0 && z.flags&FlagZ == 0 {
			z.repeat()
			z.bus.ContendedStates(z.HL()-1, 5)
		}
	}
	edOps[0xb9] = func(z *Z80) {
		z.cpd()
		if z.flags&FlagP != 0 && z.flags&FlagZ == 0 {
			z.repeat()
			z.bus.ContendedStates(z.HL()+1, 5)
		}
	}
	edOps[0xb2] = func(z *Z80) {
		z.ini()
		if z.b != 0 {
			z.pc -= 2
			z.bus.ContendedStates(z.HL()-1, 5)
		}
	}
	edOps[0xba] = func(z *Z80) {
		z.ind()
		if z.b != 0 {
			z.pc -= 2
			z.bus.ContendedStates(z.HL()+1, 5)
		}
	}
	edOps[0xb3] = func(z *Z80) {
		z.outi()
		if z.b != 0 {
			z.pc -= 2
			z.bus.ContendedStates(z.BC(), 5)
		}
	}
	edOps[0xbb] = func(z *Z80) {
		z.outd()
		if z.b != 0 {
			z.pc -= 2
			z.bus.ContendedStates(z.BC(), 5)
		}
	}
}

// repeat rewinds PC onto the ED prefix of a repeating block instruction.
func (z *Z80) repeat() {
	z.pc -= 2
	z.memptr = z.pc + 1
}

// ldAIR sets flags after LD A,I and LD A,R: P/V mirrors IFF2.
func (z *Z80) ldAIR() {
	z.flags = Sz53nAddTable[z.a]
	if z.iff2 {
		z.flags |= FlagP
	}
	z.q = true
}

func (z *Z80) rrd() {
	hi := z.a << 4
	z.memptr = z.HL()
	v := z.bus.Peek8(z.memptr)
	z.a = z.a&0xf0 | v&0x0f
	z.bus.ContendedStates(z.memptr, 4)
	z.bus.Poke8(z.memptr, v>>4|hi)
	z.flags = Sz53pnAddTable[z.a]
	z.memptr++
	z.q = true
}

func (z *Z80) rld() {
	lo := z.a & 0x0f
	z.memptr = z.HL()
	v := z.bus.Peek8(z.memptr)
	z.a = z.a&0xf0 | v>>4
	z.bus.ContendedStates(z.memptr, 4)
	z.bus.Poke8(z.memptr, v<<4|lo)
	z.flags = Sz53pnAddTable[z.a]
	z.memptr++
	z.q = true
}
