package cpu

import (
	"errors"
	"fmt"
	"log/slog"
)

// IntMode is the maskable interrupt acknowledge mode.
type IntMode uint8

const (
	IM0 IntMode = iota
	IM1
	IM2
)

// ErrIntMode is returned for an interrupt mode outside IM0-IM2.
var ErrIntMode = errors.New("invalid interrupt mode")

// Valid reports whether m is one of IM0, IM1 or IM2.
func (m IntMode) Valid() bool { return m <= IM2 }

func (m IntMode) String() string {
	switch m {
	case IM0:
		return "IM0"
	case IM1:
		return "IM1"
	case IM2:
		return "IM2"
	}
	return fmt.Sprintf("IntMode(%d)", uint8(m))
}

// Z80 is one interpreter instance. It owns its register file and
// breakpoint matrix; memory, ports and timing live behind Bus and Clock.
type Z80 struct {
	bus   Bus
	clock Clock
	log   *slog.Logger

	a, b, c, d, e, h, l            uint8
	ax, fx, bx, cx, dx, ex, hx, lx uint8

	// flags holds S, Z, 5, H, 3, P/V and N. Carry lives in carry.
	flags uint8
	carry bool

	// q is set when the running instruction writes F; lastQ is q of the
	// previous instruction.
	q, lastQ bool

	ix, iy, sp, pc uint16
	memptr         uint16
	lastPC         uint16
	opPC           uint16
	acked          bool

	i uint8
	// r holds the incrementing low 7 bits; r7 is bit 7 as last written.
	r  uint8
	r7 bool

	iff1, iff2 bool
	pendingEI  bool
	nmiLine    bool
	intLine    bool
	halted     bool
	pinReset   bool
	im         IntMode

	execDone bool

	breakpoints [65536]bool
}

// New creates an interpreter wired to clock and bus and performs a
// power-on reset.
func New(clock Clock, bus Bus) *Z80 {
	z := &Z80{bus: bus, clock: clock, log: slog.Default()}
	z.Reset()
	return z
}

// SetLogger replaces the diagnostic logger. A nil logger restores the default.
func (z *Z80) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	z.log = l
}

// SetExecDone enables the Bus.ExecDone notification after each instruction.
func (z *Z80) SetExecDone(on bool) { z.execDone = on }

// SetPinReset makes the next Reset behave like the /RESET pin: general
// registers are kept.
func (z *Z80) SetPinReset() { z.pinReset = true }

// Reset puts the CPU in its reset state. A power-on reset loads 0xFF into
// the 8-bit registers and 0xFFFF into IX, IY, SP and MEMPTR; a pin reset
// (see SetPinReset) leaves them untouched.
func (z *Z80) Reset() {
	if z.pinReset {
		z.pinReset = false
	} else {
		z.a, z.ax = 0xff, 0xff
		z.SetFlags(0xff)
		z.fx = 0xff
		z.b, z.c, z.d, z.e, z.h, z.l = 0xff, 0xff, 0xff, 0xff, 0xff, 0xff
		z.bx, z.cx, z.dx, z.ex, z.hx, z.lx = 0xff, 0xff, 0xff, 0xff, 0xff, 0xff
		z.ix, z.iy, z.sp = 0xffff, 0xffff, 0xffff
		z.memptr = 0xffff
	}

	z.pc, z.lastPC, z.opPC = 0, 0, 0
	z.acked = false
	z.i, z.r, z.r7 = 0, 0, false
	z.iff1, z.iff2 = false, false
	z.pendingEI = false
	z.nmiLine, z.intLine = false, false
	z.halted = false
	z.im = IM0
	z.q, z.lastQ = false, false
}

// 8-bit registers.

func (z *Z80) A() uint8     { return z.a }
func (z *Z80) SetA(v uint8) { z.a = v }
func (z *Z80) B() uint8     { return z.b }
func (z *Z80) SetB(v uint8) { z.b = v }
func (z *Z80) C() uint8     { return z.c }
func (z *Z80) SetC(v uint8) { z.c = v }
func (z *Z80) D() uint8     { return z.d }
func (z *Z80) SetD(v uint8) { z.d = v }
func (z *Z80) E() uint8     { return z.e }
func (z *Z80) SetE(v uint8) { z.e = v }
func (z *Z80) H() uint8     { return z.h }
func (z *Z80) SetH(v uint8) { z.h = v }
func (z *Z80) L() uint8     { return z.l }
func (z *Z80) SetL(v uint8) { z.l = v }

// Flags returns the canonical F register.
func (z *Z80) Flags() uint8 {
	if z.carry {
		return z.flags | FlagC
	}
	return z.flags
}

// SetFlags loads F, splitting carry out of the packed byte.
func (z *Z80) SetFlags(f uint8) {
	z.flags = f &^ FlagC
	z.carry = f&FlagC != 0
}

// 16-bit pairs.

func (z *Z80) AF() uint16 { return uint16(z.a)<<8 | uint16(z.Flags()) }
func (z *Z80) SetAF(w uint16) {
	z.a = uint8(w >> 8)
	z.SetFlags(uint8(w))
}
func (z *Z80) BC() uint16 { return uint16(z.b)<<8 | uint16(z.c) }
func (z *Z80) SetBC(w uint16) {
	z.b, z.c = uint8(w>>8), uint8(w)
}
func (z *Z80) DE() uint16 { return uint16(z.d)<<8 | uint16(z.e) }
func (z *Z80) SetDE(w uint16) {
	z.d, z.e = uint8(w>>8), uint8(w)
}
func (z *Z80) HL() uint16 { return uint16(z.h)<<8 | uint16(z.l) }
func (z *Z80) SetHL(w uint16) {
	z.h, z.l = uint8(w>>8), uint8(w)
}

// Alternate bank.

func (z *Z80) AFx() uint16     { return uint16(z.ax)<<8 | uint16(z.fx) }
func (z *Z80) SetAFx(w uint16) { z.ax, z.fx = uint8(w>>8), uint8(w) }
func (z *Z80) BCx() uint16     { return uint16(z.bx)<<8 | uint16(z.cx) }
func (z *Z80) SetBCx(w uint16) { z.bx, z.cx = uint8(w>>8), uint8(w) }
func (z *Z80) DEx() uint16     { return uint16(z.dx)<<8 | uint16(z.ex) }
func (z *Z80) SetDEx(w uint16) { z.dx, z.ex = uint8(w>>8), uint8(w) }
func (z *Z80) HLx() uint16     { return uint16(z.hx)<<8 | uint16(z.lx) }
func (z *Z80) SetHLx(w uint16) { z.hx, z.lx = uint8(w>>8), uint8(w) }

func (z *Z80) IX() uint16         { return z.ix }
func (z *Z80) SetIX(w uint16)     { z.ix = w }
func (z *Z80) IY() uint16         { return z.iy }
func (z *Z80) SetIY(w uint16)     { z.iy = w }
func (z *Z80) SP() uint16         { return z.sp }
func (z *Z80) SetSP(w uint16)     { z.sp = w }
func (z *Z80) PC() uint16         { return z.pc }
func (z *Z80) SetPC(w uint16)     { z.pc = w }
func (z *Z80) MemPtr() uint16     { return z.memptr }
func (z *Z80) SetMemPtr(w uint16) { z.memptr = w }

// LastPC is the address of the most recently started instruction.
func (z *Z80) LastPC() uint16 { return z.lastPC }

// OpPC is the address of the opcode the most recent step fetched. It
// differs from LastPC when an interrupt was accepted first. An NMI step
// fetches nothing and leaves it at 0x0066.
func (z *Z80) OpPC() uint16 { return z.opPC }

// Acknowledged reports whether the most recent step accepted NMI or INT.
func (z *Z80) Acknowledged() bool { return z.acked }

func (z *Z80) I() uint8     { return z.i }
func (z *Z80) SetI(v uint8) { z.i = v }

// R returns the refresh register with its independently stored bit 7.
func (z *Z80) R() uint8 {
	if z.r7 {
		return z.r&0x7f | 0x80
	}
	return z.r & 0x7f
}

// SetR loads R. Subsequent M1 cycles only advance the low 7 bits.
func (z *Z80) SetR(v uint8) {
	z.r = v & 0x7f
	z.r7 = v&0x80 != 0
}

// PairIR is I:R as put on the address bus during refresh.
func (z *Z80) PairIR() uint16 { return uint16(z.i)<<8 | uint16(z.R()) }

func (z *Z80) incR() { z.r = (z.r + 1) & 0x7f }

// Individual flags. ParOver and the Parity/Overflow meaning share one bit.

func (z *Z80) Carry() bool         { return z.carry }
func (z *Z80) SetCarry(v bool)     { z.carry = v }
func (z *Z80) AddSub() bool        { return z.flags&FlagN != 0 }
func (z *Z80) SetAddSub(v bool)    { z.setFlag(FlagN, v) }
func (z *Z80) ParOver() bool       { return z.flags&FlagP != 0 }
func (z *Z80) SetParOver(v bool)   { z.setFlag(FlagP, v) }
func (z *Z80) Bit3() bool          { return z.flags&Flag3 != 0 }
func (z *Z80) SetBit3(v bool)      { z.setFlag(Flag3, v) }
func (z *Z80) HalfCarry() bool     { return z.flags&FlagH != 0 }
func (z *Z80) SetHalfCarry(v bool) { z.setFlag(FlagH, v) }
func (z *Z80) Bit5() bool          { return z.flags&Flag5 != 0 }
func (z *Z80) SetBit5(v bool)      { z.setFlag(Flag5, v) }
func (z *Z80) Zero() bool          { return z.flags&FlagZ != 0 }
func (z *Z80) SetZero(v bool)      { z.setFlag(FlagZ, v) }
func (z *Z80) Sign() bool          { return z.flags&FlagS != 0 }
func (z *Z80) SetSign(v bool)      { z.setFlag(FlagS, v) }

func (z *Z80) setFlag(mask uint8, v bool) {
	if v {
		z.flags |= mask
	} else {
		z.flags &^= mask
	}
}

// Interrupt state.

func (z *Z80) IFF1() bool          { return z.iff1 }
func (z *Z80) SetIFF1(v bool)      { z.iff1 = v }
func (z *Z80) IFF2() bool          { return z.iff2 }
func (z *Z80) SetIFF2(v bool)      { z.iff2 = v }
func (z *Z80) IM() IntMode         { return z.im }
func (z *Z80) Halted() bool        { return z.halted }
func (z *Z80) SetHalted(v bool)    { z.halted = v }
func (z *Z80) PendingEI() bool     { return z.pendingEI }
func (z *Z80) SetPendingEI(v bool) { z.pendingEI = v }

// SetIM selects the interrupt mode. Values outside IM0-IM2 are ignored.
func (z *Z80) SetIM(m IntMode) {
	if m.Valid() {
		z.im = m
	}
}

// NMI reports whether the NMI line is active.
func (z *Z80) NMI() bool { return z.nmiLine }

// SetNMI drives the NMI line. It is consumed when serviced.
func (z *Z80) SetNMI(v bool) { z.nmiLine = v }

// TriggerNMI raises the NMI line.
func (z *Z80) TriggerNMI() { z.nmiLine = true }

// INTLine reports whether the maskable interrupt line is active.
func (z *Z80) INTLine() bool { return z.intLine }

// SetINTLine drives the INT line. It is level triggered and stays active
// until the caller releases it.
func (z *Z80) SetINTLine(v bool) { z.intLine = v }

// Breakpoints.

func (z *Z80) IsBreakpoint(addr uint16) bool { return z.breakpoints[addr] }

func (z *Z80) SetBreakpoint(addr uint16, on bool) { z.breakpoints[addr] = on }

// ResetBreakpoints clears the whole matrix.
func (z *Z80) ResetBreakpoints() { z.breakpoints = [65536]bool{} }
