package cpu

import (
	"context"
	"fmt"
	"log/slog"
)

// indexOps covers the DD and FD prefixed set. Handlers receive the active
// index register. A nil entry means the opcode ignores the prefix.
var indexOps [256]func(z *Z80, xy *uint16)

func (z *Z80) execIndex(xy *uint16) {
	z.incR()
	op := z.bus.FetchOpcode(z.pc)
	z.pc++

	if fn := indexOps[op]; fn != nil {
		fn(z, xy)
		return
	}

	// The prefix only cost its own fetch; run op as if it stood alone.
	if z.log.Enabled(context.Background(), slog.LevelDebug) {
		z.log.Debug("index prefix ignored",
			slog.String("opcode", fmt.Sprintf("%02X", op)),
			slog.String("pc", fmt.Sprintf("%04X", z.pc-1)))
	}
	if z.breakpoints[z.pc-1] {
		z.bus.Breakpoint()
	}
	baseOps[op](z)
}

// xreg reads a register code with H and L replaced by the halves of the
// index register.
func (z *Z80) xreg(r uint8, xy uint16) uint8 {
	switch r & 7 {
	case 4:
		return uint8(xy >> 8)
	case 5:
		return uint8(xy)
	}
	return z.reg(r)
}

func (z *Z80) setXReg(r, v uint8, xy *uint16) {
	switch r & 7 {
	case 4:
		*xy = *xy&0x00ff | uint16(v)<<8
	case 5:
		*xy = *xy&0xff00 | uint16(v)
	default:
		z.setReg(r, v)
	}
}

// displaced reads d, forms IX+d into MEMPTR and accounts for the address
// computation.
func (z *Z80) displaced(xy uint16) uint16 {
	z.memptr = xy + uint16(int8(z.bus.Peek8(z.pc)))
	z.bus.ContendedStates(z.pc, 5)
	z.pc++
	return z.memptr
}

// xrp is rp with HL replaced by the index register.
func (z *Z80) xrp(p uint8, xy uint16) uint16 {
	if p&3 == 2 {
		return xy
	}
	return z.rp(p)
}

func initIndexOps() {
	for p := uint8(0); p < 4; p++ {
		indexOps[p<<4|0x09] = func(z *Z80, xy *uint16) {
			z.bus.ContendedStates(z.PairIR(), 7)
			*xy = z.add16(*xy, z.xrp(p, *xy))
		}
	}
	indexOps[0x21] = func(z *Z80, xy *uint16) { *xy = z.imm16() }
	indexOps[0x22] = func(z *Z80, xy *uint16) {
		z.memptr = z.imm16()
		z.bus.Poke16(z.memptr, *xy)
		z.memptr++
	}
	indexOps[0x2a] = func(z *Z80, xy *uint16) {
		z.memptr = z.imm16()
		*xy = z.bus.Peek16(z.memptr)
		z.memptr++
	}
	indexOps[0x23] = func(z *Z80, xy *uint16) {
		z.bus.ContendedStates(z.PairIR(), 2)
		*xy++
	}
	indexOps[0x2b] = func(z *Z80, xy *uint16) {
		z.bus.ContendedStates(z.PairIR(), 2)
		*xy--
	}

	// INC, DEC and LD n on the index halves.
	for r := uint8(4); r <= 5; r++ {
		indexOps[r<<3|0x04] = func(z *Z80, xy *uint16) { z.setXReg(r, z.inc8(z.xreg(r, *xy)), xy) }
		indexOps[r<<3|0x05] = func(z *Z80, xy *uint16) { z.setXReg(r, z.dec8(z.xreg(r, *xy)), xy) }
		indexOps[r<<3|0x06] = func(z *Z80, xy *uint16) { z.setXReg(r, z.imm8(), xy) }
	}

	indexOps[0x34] = func(z *Z80, xy *uint16) {
		addr := z.displaced(*xy)
		v := z.bus.Peek8(addr)
		z.bus.ContendedStates(addr, 1)
		z.bus.Poke8(addr, z.inc8(v))
	}
	indexOps[0x35] = func(z *Z80, xy *uint16) {
		addr := z.displaced(*xy)
		v := z.bus.Peek8(addr)
		z.bus.ContendedStates(addr, 1)
		z.bus.Poke8(addr, z.dec8(v))
	}
	indexOps[0x36] = func(z *Z80, xy *uint16) {
		z.memptr = *xy + uint16(int8(z.bus.Peek8(z.pc)))
		z.pc++
		n := z.bus.Peek8(z.pc)
		z.bus.ContendedStates(z.pc, 2)
		z.pc++
		z.bus.Poke8(z.memptr, n)
	}

	// LD r,r' touching IXh/IXl, and the (IX+d) loads and stores, which use
	// the real H and L.
	for op := 0x40; op < 0x80; op++ {
		if op == 0x76 {
			continue
		}
		dst, src := uint8(op>>3)&7, uint8(op)&7
		switch {
		case src == 6:
			indexOps[op] = func(z *Z80, xy *uint16) { z.setReg(dst, z.bus.Peek8(z.displaced(*xy))) }
		case dst == 6:
			indexOps[op] = func(z *Z80, xy *uint16) { z.bus.Poke8(z.displaced(*xy), z.reg(src)) }
		case dst == src && (dst == 4 || dst == 5):
			indexOps[op] = func(z *Z80, xy *uint16) {}
		case dst == 4 || dst == 5 || src == 4 || src == 5:
			indexOps[op] = func(z *Z80, xy *uint16) { z.setXReg(dst, z.xreg(src, *xy), xy) }
		}
	}

	for op := 0x80; op < 0xc0; op++ {
		y, src := uint8(op>>3)&7, uint8(op)&7
		switch src {
		case 4, 5:
			indexOps[op] = func(z *Z80, xy *uint16) { z.alu(y, z.xreg(src, *xy)) }
		case 6:
			indexOps[op] = func(z *Z80, xy *uint16) { z.alu(y, z.bus.Peek8(z.displaced(*xy))) }
		}
	}

	indexOps[0xcb] = func(z *Z80, xy *uint16) { z.execIndexCB(*xy) }
	indexOps[0xe1] = func(z *Z80, xy *uint16) { *xy = z.pop() }
	indexOps[0xe3] = func(z *Z80, xy *uint16) {
		old := *xy
		*xy = z.bus.Peek16(z.sp)
		z.bus.ContendedStates(z.sp+1, 1)
		z.bus.Poke8(z.sp+1, uint8(old>>8))
		z.bus.Poke8(z.sp, uint8(old))
		z.bus.ContendedStates(z.sp, 2)
		z.memptr = *xy
	}
	indexOps[0xe5] = func(z *Z80, xy *uint16) {
		z.bus.ContendedStates(z.PairIR(), 1)
		z.push(*xy)
	}
	indexOps[0xe9] = func(z *Z80, xy *uint16) { z.pc = *xy }
	indexOps[0xf9] = func(z *Z80, xy *uint16) {
		z.bus.ContendedStates(z.PairIR(), 2)
		z.sp = *xy
	}
}
