package cpu

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestTiming checks total T-states per instruction with the standard
// memory-cycle costs of the test bus.
func TestTiming(t *testing.T) {
	tests := []struct {
		name  string
		code  []uint8
		setup func(z *Z80)
		want  int64
	}{
		{"NOP", []uint8{0x00}, nil, 4},
		{"LD BC,nn", []uint8{0x01, 0x34, 0x12}, nil, 10},
		{"LD (BC),A", []uint8{0x02}, nil, 7},
		{"INC BC", []uint8{0x03}, nil, 6},
		{"LD B,n", []uint8{0x06, 0x01}, nil, 7},
		{"ADD HL,BC", []uint8{0x09}, nil, 11},
		{"DJNZ taken", []uint8{0x10, 0xFE}, func(z *Z80) { z.SetB(2) }, 13},
		{"DJNZ not taken", []uint8{0x10, 0xFE}, func(z *Z80) { z.SetB(1) }, 8},
		{"JR e", []uint8{0x18, 0x00}, nil, 12},
		{"JR NZ not taken", []uint8{0x20, 0x00}, func(z *Z80) { z.SetZero(true) }, 7},
		{"LD (nn),HL", []uint8{0x22, 0x00, 0x40}, nil, 16},
		{"INC (HL)", []uint8{0x34}, func(z *Z80) { z.SetHL(0x4000) }, 11},
		{"LD (HL),n", []uint8{0x36, 0x00}, func(z *Z80) { z.SetHL(0x4000) }, 10},
		{"HALT", []uint8{0x76}, nil, 4},
		{"ADD A,(HL)", []uint8{0x86}, func(z *Z80) { z.SetHL(0x4000) }, 7},
		{"RET NZ taken", []uint8{0xC0}, func(z *Z80) { z.SetZero(false) }, 11},
		{"RET NZ not taken", []uint8{0xC0}, func(z *Z80) { z.SetZero(true) }, 5},
		{"POP BC", []uint8{0xC1}, nil, 10},
		{"JP nn", []uint8{0xC3, 0x00, 0x10}, nil, 10},
		{"CALL NZ not taken", []uint8{0xC4, 0x00, 0x10}, func(z *Z80) { z.SetZero(true) }, 10},
		{"PUSH BC", []uint8{0xC5}, nil, 11},
		{"RST 38", []uint8{0xFF}, nil, 11},
		{"RET", []uint8{0xC9}, nil, 10},
		{"CALL nn", []uint8{0xCD, 0x00, 0x10}, nil, 17},
		{"OUT (n),A", []uint8{0xD3, 0xFE}, nil, 11},
		{"IN A,(n)", []uint8{0xDB, 0xFE}, nil, 11},
		{"EX (SP),HL", []uint8{0xE3}, nil, 19},
		{"LD SP,HL", []uint8{0xF9}, nil, 6},
		{"RLC B", []uint8{0xCB, 0x00}, nil, 8},
		{"RLC (HL)", []uint8{0xCB, 0x06}, func(z *Z80) { z.SetHL(0x4000) }, 15},
		{"BIT 0,(HL)", []uint8{0xCB, 0x46}, func(z *Z80) { z.SetHL(0x4000) }, 12},
		{"SET 0,(HL)", []uint8{0xCB, 0xC6}, func(z *Z80) { z.SetHL(0x4000) }, 15},
		{"IN B,(C)", []uint8{0xED, 0x40}, nil, 12},
		{"SBC HL,BC", []uint8{0xED, 0x42}, nil, 15},
		{"LD (nn),BC", []uint8{0xED, 0x43, 0x00, 0x40}, nil, 20},
		{"NEG", []uint8{0xED, 0x44}, nil, 8},
		{"RETN", []uint8{0xED, 0x45}, nil, 14},
		{"IM 1", []uint8{0xED, 0x56}, nil, 8},
		{"LD A,I", []uint8{0xED, 0x57}, nil, 9},
		{"RRD", []uint8{0xED, 0x67}, func(z *Z80) { z.SetHL(0x4000) }, 18},
		{"LDI", []uint8{0xED, 0xA0}, func(z *Z80) { z.SetHL(0x4000); z.SetDE(0x5000) }, 16},
		{"CPI", []uint8{0xED, 0xA1}, func(z *Z80) { z.SetHL(0x4000) }, 16},
		{"INI", []uint8{0xED, 0xA2}, func(z *Z80) { z.SetHL(0x4000) }, 16},
		{"OUTI", []uint8{0xED, 0xA3}, func(z *Z80) { z.SetHL(0x4000) }, 16},
		{"LD IX,nn", []uint8{0xDD, 0x21, 0x00, 0x40}, nil, 14},
		{"ADD IX,BC", []uint8{0xDD, 0x09}, nil, 15},
		{"INC IX", []uint8{0xDD, 0x23}, nil, 10},
		{"LD A,(IX+d)", []uint8{0xDD, 0x7E, 0x05}, nil, 19},
		{"INC (IX+d)", []uint8{0xDD, 0x34, 0x05}, nil, 23},
		{"LD (IX+d),n", []uint8{0xDD, 0x36, 0x05, 0x99}, nil, 19},
		{"ADD A,IXh", []uint8{0xDD, 0x84}, nil, 8},
		{"PUSH IX", []uint8{0xFD, 0xE5}, nil, 15},
		{"EX (SP),IY", []uint8{0xFD, 0xE3}, nil, 23},
		{"BIT 0,(IX+d)", []uint8{0xDD, 0xCB, 0x05, 0x46}, nil, 20},
		{"RLC (IX+d)", []uint8{0xDD, 0xCB, 0x05, 0x06}, nil, 23},
		{"SET 0,(IY+d),B", []uint8{0xFD, 0xCB, 0x05, 0xC0}, nil, 23},
	}

	for _, tc := range tests {
		z, b := newTestCPU(tc.code...)
		z.SetIX(0x4000)
		z.SetIY(0x4000)
		if tc.setup != nil {
			tc.setup(z)
		}
		step(z, 1)
		if b.clock.t != tc.want {
			t.Errorf("%s: got %d T-states, want %d (contention %v)", tc.name, b.clock.t, tc.want, b.cont)
		}
	}
}

func TestContentionPlacement(t *testing.T) {
	z, b := newTestCPU(0x03) // INC BC
	z.SetI(0x3F)
	step(z, 1)
	want := []contention{{0x3F01, 2}}
	if len(b.cont) != 1 || b.cont[0] != want[0] {
		t.Errorf("INC BC contention: got %v, want %v", b.cont, want)
	}

	z, b = newTestCPU(0xE3) // EX (SP),HL
	z.SetSP(0x6000)
	step(z, 1)
	want = []contention{{0x6001, 1}, {0x6000, 2}}
	if len(b.cont) != 2 || b.cont[0] != want[0] || b.cont[1] != want[1] {
		t.Errorf("EX (SP),HL contention: got %v, want %v", b.cont, want)
	}
}

// TestLDIR copies three bytes and checks the loop exit state.
func TestLDIR(t *testing.T) {
	z, b := newTestCPU(0xED, 0xB0)
	copy(b.mem[0x4000:], []uint8{0x11, 0x22, 0x33})
	z.SetHL(0x4000)
	z.SetDE(0x5000)
	z.SetBC(3)

	step(z, 1)
	requireU16(t, "PC after first pass", z.PC(), 0)
	requireU16(t, "MEMPTR", z.MemPtr(), 1)
	step(z, 2)

	for i, want := range []uint8{0x11, 0x22, 0x33} {
		requireU8(t, "copied byte", b.mem[0x5000+i], want)
	}
	requireU16(t, "BC", z.BC(), 0)
	requireU16(t, "HL", z.HL(), 0x4003)
	requireU16(t, "DE", z.DE(), 0x5003)
	requireU16(t, "PC", z.PC(), 2)
	requireFlag(t, z, FlagP, false)
	requireTstates(t, b, 21+21+16)
}

func TestCPIRStopsOnMatch(t *testing.T) {
	z, b := newTestCPU(0xED, 0xB1)
	copy(b.mem[0x4000:], []uint8{0x01, 0x02, 0x03, 0x04})
	z.SetHL(0x4000)
	z.SetBC(4)
	z.SetA(0x02)
	step(z, 2)
	requireU16(t, "PC", z.PC(), 2)
	requireU16(t, "HL", z.HL(), 0x4002)
	requireU16(t, "BC", z.BC(), 2)
	requireFlag(t, z, FlagZ, true)
	requireFlag(t, z, FlagP, true)
}

func TestOTIR(t *testing.T) {
	z, b := newTestCPU(0xED, 0xB3)
	copy(b.mem[0x4000:], []uint8{0xAA, 0xBB})
	z.SetHL(0x4000)
	z.SetBC(0x02FE)
	step(z, 2)
	if len(b.out) != 2 || b.out[0] != (portWrite{0x01FE, 0xAA}) || b.out[1] != (portWrite{0x00FE, 0xBB}) {
		t.Errorf("OTIR writes: got %v", b.out)
	}
	requireU16(t, "PC", z.PC(), 2)
	requireFlag(t, z, FlagZ, true)
}

func TestINI(t *testing.T) {
	z, b := newTestCPU(0xED, 0xA2)
	b.in[0x01FE] = 0x80
	z.SetHL(0x4000)
	z.SetBC(0x01FE)
	step(z, 1)
	requireU8(t, "(HL)", b.mem[0x4000], 0x80)
	requireU8(t, "B", z.B(), 0)
	requireU16(t, "MEMPTR", z.MemPtr(), 0x01FF)
	requireFlag(t, z, FlagZ, true)
	requireFlag(t, z, FlagN, true)
	// 0x80 + (C+1)&0xFF = 0x80 + 0xFF overflows.
	requireFlag(t, z, FlagC|FlagH, true)
}

// TestEIDelay: INT raised right after EI is taken one instruction later.
func TestEIDelay(t *testing.T) {
	z, b := newTestCPU(0xFB, 0x00, 0x00)
	z.SetIM(IM1)
	step(z, 1)
	if !z.PendingEI() {
		t.Fatal("EI should leave pendingEI set")
	}
	z.SetINTLine(true)

	step(z, 1)
	requireU16(t, "PC after NOP", z.PC(), 2)
	if z.Acknowledged() {
		t.Error("INT acknowledged during the EI shadow")
	}
	if z.PendingEI() {
		t.Error("pendingEI should clear after the next instruction")
	}

	before := b.clock.t
	step(z, 1)
	requireU16(t, "PC in handler", z.PC(), 0x39)
	requireU16(t, "SP", z.SP(), 0x7FFE)
	requireU16(t, "return address", uint16(b.mem[0x7FFE])|uint16(b.mem[0x7FFF])<<8, 2)
	requireU16(t, "MEMPTR", z.MemPtr(), 0x38)
	requireU16(t, "LastPC", z.LastPC(), 2)
	requireU16(t, "OpPC", z.OpPC(), 0x38)
	if !z.Acknowledged() {
		t.Error("INT step should report an acknowledge")
	}
	if z.IFF1() || z.IFF2() {
		t.Error("IFF1/IFF2 should be cleared by INT")
	}
	// 13 for the acknowledge plus the NOP at 0x38.
	if got := b.clock.t - before; got != 17 {
		t.Errorf("INT step: got %d T-states, want 17", got)
	}
}

func TestINTMasked(t *testing.T) {
	z, _ := newTestCPU(0x00)
	z.SetINTLine(true)
	step(z, 1)
	requireU16(t, "PC", z.PC(), 1)
}

func TestIM2Vector(t *testing.T) {
	z, b := newTestCPU()
	z.SetIM(IM2)
	z.SetI(0x80)
	z.SetIFF1(true)
	b.mem[0x80FF] = 0x34
	b.mem[0x8100] = 0x12
	z.SetINTLine(true)
	step(z, 1)
	requireU16(t, "PC", z.PC(), 0x1235)
	requireU16(t, "MEMPTR", z.MemPtr(), 0x1234)
	requireU16(t, "OpPC", z.OpPC(), 0x1234)
	requireTstates(t, b, 7+6+6+4)
}

func TestNMI(t *testing.T) {
	z, b := newTestCPU(0x00)
	z.SetPC(0x1000)
	z.SetIFF1(true)
	z.SetIFF2(true)
	z.TriggerNMI()
	step(z, 1)

	requireU16(t, "PC", z.PC(), 0x0066)
	requireU16(t, "MEMPTR", z.MemPtr(), 0x0066)
	requireU16(t, "return address", uint16(b.mem[0x7FFE])|uint16(b.mem[0x7FFF])<<8, 0x1000)
	if z.IFF1() || !z.IFF2() {
		t.Errorf("IFF1=%v IFF2=%v, want false true", z.IFF1(), z.IFF2())
	}
	if z.NMI() {
		t.Error("NMI line should be consumed")
	}
	requireTstates(t, b, 11)
	requireU8(t, "R", z.R(), 1)
	requireU16(t, "OpPC", z.OpPC(), 0x0066)
	if !z.Acknowledged() {
		t.Error("NMI step should report an acknowledge")
	}

	// RETN restores IFF1 from IFF2.
	b.mem[0x66], b.mem[0x67] = 0xED, 0x45
	step(z, 1)
	requireU16(t, "PC after RETN", z.PC(), 0x1000)
	requireU16(t, "OpPC after RETN", z.OpPC(), 0x66)
	if z.Acknowledged() {
		t.Error("plain step reported an acknowledge")
	}
	if !z.IFF1() {
		t.Error("RETN should copy IFF2 into IFF1")
	}
}

func TestNMIIgnoresIFF1(t *testing.T) {
	z, _ := newTestCPU()
	z.SetNMI(true)
	step(z, 1)
	requireU16(t, "PC", z.PC(), 0x66)
}

func TestHaltAndWake(t *testing.T) {
	z, b := newTestCPU(0x76)
	step(z, 2)
	if !z.Halted() {
		t.Fatal("CPU should be halted")
	}
	requireU16(t, "PC while halted", z.PC(), 0)
	requireTstates(t, b, 8)

	z.SetIFF1(true)
	z.SetIM(IM1)
	z.SetINTLine(true)
	step(z, 1)
	if z.Halted() {
		t.Error("INT should leave HALT")
	}
	requireU16(t, "return address", uint16(b.mem[0x7FFE])|uint16(b.mem[0x7FFF])<<8, 1)
	requireU16(t, "PC", z.PC(), 0x39)
}

// TestIndexFallback runs DD 00: a plain NOP after an ignored prefix.
func TestIndexFallback(t *testing.T) {
	z, b := newTestCPU(0xDD, 0x00)
	z.SetIX(0x1234)
	z.SetR(0)
	step(z, 1)
	requireU16(t, "IX", z.IX(), 0x1234)
	requireU16(t, "PC", z.PC(), 2)
	requireU8(t, "R", z.R(), 2)
	requireTstates(t, b, 8)
}

func TestIndexFallbackBreakpoint(t *testing.T) {
	z, b := newTestCPU(0xFD, 0x00)
	z.SetBreakpoint(1, true)
	step(z, 1)
	if len(b.breaks) != 1 {
		t.Errorf("breakpoint hits: got %d, want 1", len(b.breaks))
	}
}

func TestIndexFallbackUsesHL(t *testing.T) {
	// FD 21 loads IY, but FD 11 (LD DE,nn) ignores the prefix.
	z, _ := newTestCPU(0xFD, 0x21, 0x34, 0x12, 0xFD, 0x11, 0x78, 0x56)
	step(z, 2)
	requireU16(t, "IY", z.IY(), 0x1234)
	requireU16(t, "DE", z.DE(), 0x5678)
	requireU16(t, "PC", z.PC(), 8)
}

func TestIndexHalves(t *testing.T) {
	// LD IXh,n; LD IXl,B; LD A,IXh; LD H,(IX+1)
	z, b := newTestCPU(0xDD, 0x26, 0x40, 0xDD, 0x68, 0xDD, 0x7C, 0xDD, 0x66, 0x01)
	z.SetB(0x10)
	b.mem[0x4011] = 0x99
	step(z, 4)
	requireU16(t, "IX", z.IX(), 0x4010)
	requireU8(t, "A", z.A(), 0x40)
	requireU8(t, "H", z.H(), 0x99)
	requireU16(t, "MEMPTR", z.MemPtr(), 0x4011)
}

func TestIndexNegativeDisplacement(t *testing.T) {
	z, b := newTestCPU(0xFD, 0x77, 0xFE) // LD (IY-2),A
	z.SetIY(0x4002)
	z.SetA(0x5A)
	step(z, 1)
	requireU8(t, "(IY-2)", b.mem[0x4000], 0x5A)
	requireU16(t, "MEMPTR", z.MemPtr(), 0x4000)
}

// TestIndexCBCopy checks the undocumented register copy of DDCB ops.
func TestIndexCBCopy(t *testing.T) {
	z, b := newTestCPU(0xDD, 0xCB, 0x05, 0x00) // RLC (IX+5),B
	z.SetIX(0x4000)
	z.SetR(0)
	b.mem[0x4005] = 0x81
	step(z, 1)
	requireU8(t, "(IX+5)", b.mem[0x4005], 0x03)
	requireU8(t, "B", z.B(), 0x03)
	requireFlag(t, z, FlagC, true)
	requireU8(t, "R", z.R(), 2)
	requireU16(t, "PC", z.PC(), 4)

	z, b = newTestCPU(0xFD, 0xCB, 0xFF, 0xBF) // RES 7,(IY-1),A
	z.SetIY(0x4001)
	b.mem[0x4000] = 0xFF
	step(z, 1)
	requireU8(t, "(IY-1)", b.mem[0x4000], 0x7F)
	requireU8(t, "A", z.A(), 0x7F)
}

func TestIndexCBBit(t *testing.T) {
	z, b := newTestCPU(0xDD, 0xCB, 0x00, 0x7E) // BIT 7,(IX+0)
	z.SetIX(0x2800)
	b.mem[0x2800] = 0x80
	step(z, 1)
	requireFlag(t, z, FlagZ, false)
	requireFlag(t, z, FlagS, true)
	requireU8(t, "F&53", z.Flags()&flag53, 0x28)
}

func TestUnknownEDLogs(t *testing.T) {
	var buf bytes.Buffer
	z, b := newTestCPU(0xED, 0x00, 0x00)
	z.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	z.SetR(0)
	step(z, 2)
	requireU16(t, "PC", z.PC(), 3)
	requireU8(t, "R", z.R(), 3)
	requireTstates(t, b, 12)
	if !strings.Contains(buf.String(), "unknown ED opcode") || !strings.Contains(buf.String(), "opcode=00") {
		t.Errorf("missing log record: %q", buf.String())
	}
}

func TestExchanges(t *testing.T) {
	z, _ := newTestCPU(0x08, 0xD9, 0xEB)
	z.SetAF(0x1234)
	z.SetAFx(0x5678)
	z.SetBC(0x1111)
	z.SetBCx(0x2222)
	z.SetDE(0x3333)
	z.SetHL(0x4444)
	z.SetHLx(0x5555)
	step(z, 3)
	requireU16(t, "AF", z.AF(), 0x5678)
	requireU16(t, "AF'", z.AFx(), 0x1234)
	requireU16(t, "BC", z.BC(), 0x2222)
	requireU16(t, "BC'", z.BCx(), 0x1111)
	// EXX swapped HL with HL' before EX DE,HL.
	requireU16(t, "HL", z.HL(), 0xFFFF)
	requireU16(t, "DE", z.DE(), 0x5555)
}

func TestCallRet(t *testing.T) {
	z, b := newTestCPU(0xCD, 0x00, 0x10)
	b.mem[0x1000] = 0xC9
	step(z, 1)
	requireU16(t, "PC", z.PC(), 0x1000)
	requireU16(t, "SP", z.SP(), 0x7FFE)
	step(z, 1)
	requireU16(t, "PC", z.PC(), 3)
	requireU16(t, "SP", z.SP(), 0x8000)
	requireU16(t, "MEMPTR", z.MemPtr(), 3)
}

func TestMemptrStores(t *testing.T) {
	z, _ := newTestCPU(0x32, 0xFF, 0x40) // LD (40FFh),A
	z.SetA(0x12)
	step(z, 1)
	requireU16(t, "MEMPTR", z.MemPtr(), 0x1200)

	z, _ = newTestCPU(0xD3, 0xFE) // OUT (FEh),A
	z.SetA(0x07)
	step(z, 1)
	requireU16(t, "MEMPTR", z.MemPtr(), 0x07FF)
}

func TestLDAR(t *testing.T) {
	z, _ := newTestCPU(0xED, 0x5F)
	z.SetR(0x80)
	z.SetIFF2(true)
	step(z, 1)
	// Two M1 cycles ran before R was read.
	requireU8(t, "A", z.A(), 0x82)
	requireFlag(t, z, FlagP, true)
	requireFlag(t, z, FlagS, true)
}

func TestIMModes(t *testing.T) {
	for code, want := range map[uint8]IntMode{0x46: IM0, 0x4E: IM0, 0x56: IM1, 0x76: IM1, 0x5E: IM2, 0x7E: IM2} {
		z, _ := newTestCPU(0xED, code)
		z.SetIM(IM1)
		if want == IM1 {
			z.SetIM(IM0)
		}
		step(z, 1)
		if z.IM() != want {
			t.Errorf("ED %02X: got %v, want %v", code, z.IM(), want)
		}
	}
}
