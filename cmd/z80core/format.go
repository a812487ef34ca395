package main

import (
	"fmt"

	"github.com/oisee/z80core/pkg/cpu"
)

// flagString renders F as SZ5H3PNC with '-' for clear bits.
func flagString(f uint8) string {
	const names = "SZ5H3PNC"
	b := []byte(names)
	for i := range b {
		if f&(0x80>>i) == 0 {
			b[i] = '-'
		}
	}
	return string(b)
}

func formatState(s cpu.State) string {
	iff := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	return fmt.Sprintf("AF=%02X%02X BC=%02X%02X DE=%02X%02X HL=%02X%02X IX=%04X IY=%04X SP=%04X PC=%04X I=%02X R=%02X %v IFF=%d%d %s",
		s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L,
		s.IX, s.IY, s.SP, s.PC, s.I, s.R, s.IM, iff(s.IFF1), iff(s.IFF2), flagString(s.F))
}

func formatAlternates(s cpu.State) string {
	return fmt.Sprintf("AF'=%02X%02X BC'=%02X%02X DE'=%02X%02X HL'=%02X%02X MEMPTR=%04X",
		s.Ax, s.Fx, s.Bx, s.Cx, s.Dx, s.Ex, s.Hx, s.Lx, s.MemPtr)
}
