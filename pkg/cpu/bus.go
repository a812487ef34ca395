package cpu

// Bus is everything the interpreter needs from the surrounding machine.
// Memory and port accesses are expected to account for their own T-states;
// the interpreter only reports the extra internal cycles through
// ContendedStates, at the exact points the real chip spends them.
type Bus interface {
	// FetchOpcode reads an M1 byte. It may cost differently from Peek8.
	FetchOpcode(address uint16) uint8
	Peek8(address uint16) uint8
	Poke8(address uint16, value uint8)
	// Peek16 and Poke16 are little-endian.
	Peek16(address uint16) uint16
	Poke16(address uint16, word uint16)
	InPort(port uint16) uint8
	OutPort(port uint16, value uint8)
	// ContendedStates adds tstates internal cycles tied to address.
	ContendedStates(address uint16, tstates int)
	// Breakpoint is called before executing an instruction whose address
	// is marked in the breakpoint matrix.
	Breakpoint()
	// ExecDone is called after every instruction when enabled with
	// (*Z80).SetExecDone.
	ExecDone()
}

// Clock is the external T-state accumulator.
type Clock interface {
	Tstates() int64
	AddTstates(n int64)
}
