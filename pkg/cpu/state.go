package cpu

import "fmt"

// State is an inert copy of every register and flip-flop of the CPU.
// F holds the canonical flag byte (carry included) and R the full 8-bit
// refresh register. FlagQ is the "flags changed by the last instruction"
// history bit. Plain value type, cheap to copy and to encode.
type State struct {
	A, F, B, C, D, E, H, L         uint8
	Ax, Fx, Bx, Cx, Dx, Ex, Hx, Lx uint8

	IX, IY, SP, PC uint16
	I, R           uint8
	MemPtr         uint16

	Halted    bool
	IFF1      bool
	IFF2      bool
	IM        IntMode
	INTLine   bool
	PendingEI bool
	NMI       bool
	FlagQ     bool
}

// Equal returns true if two states are identical.
func (s State) Equal(o State) bool {
	return s == o
}

// AF returns the A/F pair.
func (s State) AF() uint16 { return uint16(s.A)<<8 | uint16(s.F) }

// BC returns the B/C pair.
func (s State) BC() uint16 { return uint16(s.B)<<8 | uint16(s.C) }

// DE returns the D/E pair.
func (s State) DE() uint16 { return uint16(s.D)<<8 | uint16(s.E) }

// HL returns the H/L pair.
func (s State) HL() uint16 { return uint16(s.H)<<8 | uint16(s.L) }

// Capture copies the live register file into a State.
func (z *Z80) Capture() State {
	return State{
		A: z.a, F: z.Flags(), B: z.b, C: z.c, D: z.d, E: z.e, H: z.h, L: z.l,
		Ax: z.ax, Fx: z.fx, Bx: z.bx, Cx: z.cx, Dx: z.dx, Ex: z.ex, Hx: z.hx, Lx: z.lx,
		IX: z.ix, IY: z.iy, SP: z.sp, PC: z.pc,
		I: z.i, R: z.R(),
		MemPtr:    z.memptr,
		Halted:    z.halted,
		IFF1:      z.iff1,
		IFF2:      z.iff2,
		IM:        z.im,
		INTLine:   z.intLine,
		PendingEI: z.pendingEI,
		NMI:       z.nmiLine,
		FlagQ:     z.lastQ,
	}
}

// Restore loads a State captured earlier. The in-flight Q bit is cleared;
// the recorded one becomes the last-instruction history. A State with an
// invalid interrupt mode is rejected and nothing is changed.
func (z *Z80) Restore(s State) error {
	if !s.IM.Valid() {
		return fmt.Errorf("restore: %w: %d", ErrIntMode, uint8(s.IM))
	}
	z.a = s.A
	z.SetFlags(s.F)
	z.b, z.c, z.d, z.e, z.h, z.l = s.B, s.C, s.D, s.E, s.H, s.L
	z.ax, z.fx = s.Ax, s.Fx
	z.bx, z.cx, z.dx, z.ex, z.hx, z.lx = s.Bx, s.Cx, s.Dx, s.Ex, s.Hx, s.Lx
	z.ix, z.iy, z.sp = s.IX, s.IY, s.SP
	z.pc = s.PC
	z.lastPC, z.opPC = s.PC, s.PC
	z.acked = false
	z.i = s.I
	z.SetR(s.R)
	z.memptr = s.MemPtr
	z.halted = s.Halted
	z.iff1, z.iff2 = s.IFF1, s.IFF2
	z.im = s.IM
	z.intLine = s.INTLine
	z.pendingEI = s.PendingEI
	z.nmiLine = s.NMI
	z.q = false
	z.lastQ = s.FlagQ
	return nil
}
