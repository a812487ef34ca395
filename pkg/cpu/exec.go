package cpu

// Execute runs exactly one instruction, with all of its prefixes, after
// servicing a pending NMI or maskable interrupt.
//
// An accepted NMI is the whole step: the return address is pushed and PC
// moves to 0x0066, nothing else runs. An accepted INT jumps to its handler
// and the handler's first instruction executes in the same step.
func (z *Z80) Execute() {
	z.lastPC = z.pc
	z.acked = false

	if z.nmiLine {
		z.nmiLine = false
		z.lastQ = false
		z.acked = true
		z.nmi()
		z.opPC = z.pc
		return
	}

	if z.intLine && z.iff1 && !z.pendingEI {
		z.lastQ = false
		z.acked = true
		z.interrupt()
	}

	if z.breakpoints[z.pc] {
		z.bus.Breakpoint()
	}

	z.incR()
	z.opPC = z.pc
	op := z.bus.FetchOpcode(z.pc)
	z.pc++

	z.q = false
	baseOps[op](z)
	z.lastQ = z.q

	if z.pendingEI && op != 0xfb {
		z.pendingEI = false
	}

	if z.execDone {
		z.bus.ExecDone()
	}
}

// ExecuteUntil steps while the clock is below limit.
func (z *Z80) ExecuteUntil(limit int64) {
	for z.clock.Tstates() < limit {
		z.Execute()
	}
}

// nmi acknowledges a non-maskable interrupt: an M1 fetch at PC plus one
// extra state, then the push. IFF2 keeps the pre-NMI enable state.
func (z *Z80) nmi() {
	z.bus.FetchOpcode(z.pc)
	z.clock.AddTstates(1)
	z.unhalt()
	z.incR()
	z.iff1 = false
	z.push(z.pc)
	z.pc = 0x0066
	z.memptr = z.pc
}

// interrupt acknowledges INT. IM0 behaves as IM1 since no device puts an
// instruction on the data bus.
func (z *Z80) interrupt() {
	z.unhalt()
	z.clock.AddTstates(7)
	z.incR()
	z.iff1, z.iff2 = false, false
	z.push(z.pc)
	if z.im == IM2 {
		z.pc = z.bus.Peek16(uint16(z.i)<<8 | 0xff)
	} else {
		z.pc = 0x0038
	}
	z.memptr = z.pc
}

// unhalt leaves the HALT state, stepping PC past the HALT opcode.
func (z *Z80) unhalt() {
	if z.halted {
		z.halted = false
		z.pc++
	}
}
