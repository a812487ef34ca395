package machine

import (
	"context"
	"errors"
	"testing"
)

func newMachine(t *testing.T, code ...byte) *Machine {
	t.Helper()
	m := New(Config{})
	if err := m.Load(0, code); err != nil {
		t.Fatal(err)
	}
	m.CPU().SetSP(0x8000)
	return m
}

func TestLoadBounds(t *testing.T) {
	m := New(Config{})
	if err := m.Load(0xFFFE, []byte{1, 2}); err != nil {
		t.Fatalf("load at top: %v", err)
	}
	if m.Read(0xFFFF) != 2 {
		t.Errorf("byte at FFFF: got %d, want 2", m.Read(0xFFFF))
	}
	err := m.Load(0xFFFF, []byte{1, 2})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("got %v, want ErrImageTooLarge", err)
	}
}

func TestReadWriteUntimed(t *testing.T) {
	m := New(Config{})
	m.Write(0x1234, 0xCD)
	m.Write(0x1235, 0xAB)
	if got := m.ReadWord(0x1234); got != 0xABCD {
		t.Errorf("ReadWord: got %04X", got)
	}
	if m.Clock().Tstates() != 0 {
		t.Errorf("untimed access spent %d T-states", m.Clock().Tstates())
	}
}

func TestBusCosts(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int64
	}{
		{"NOP", []byte{0x00}, 4},
		{"LD A,(nn)", []byte{0x3A, 0x00, 0x10}, 13},
		{"LD (nn),HL", []byte{0x22, 0x00, 0x10}, 16},
		{"OUT (n),A", []byte{0xD3, 0xFE}, 11},
		{"PUSH BC", []byte{0xC5}, 11},
		{"LDIR last", []byte{0xED, 0xB0}, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, tt.code...)
			m.CPU().SetBC(1)
			m.CPU().SetHL(0x2000)
			m.CPU().SetDE(0x3000)
			m.Step()
			if got := m.Clock().Tstates(); got != tt.want {
				t.Errorf("got %d T-states, want %d", got, tt.want)
			}
		})
	}
}

func TestPortHandlers(t *testing.T) {
	// IN A,(FEh); OUT (C),A
	m := newMachine(t, 0xDB, 0xFE, 0xED, 0x79)
	m.CPU().SetA(0x12)
	var gotPort uint16
	m.SetInHandler(func(port uint16) uint8 {
		gotPort = port
		return 0x5A
	})
	var outs []uint8
	m.SetOutHandler(func(port uint16, v uint8) { outs = append(outs, v) })
	m.Step()
	if gotPort != 0x12FE {
		t.Errorf("IN port: got %04X, want 12FE", gotPort)
	}
	if m.CPU().A() != 0x5A {
		t.Errorf("A: got %02X", m.CPU().A())
	}
	m.Step()
	if len(outs) != 1 || outs[0] != 0x5A {
		t.Errorf("OUT values: %v", outs)
	}
}

func TestFloatingBus(t *testing.T) {
	m := newMachine(t, 0xDB, 0x00)
	m.Step()
	if m.CPU().A() != 0xFF {
		t.Errorf("unhandled IN: got %02X, want FF", m.CPU().A())
	}
}

func TestContention(t *testing.T) {
	m := New(Config{Contention: RangeContention{Start: 0x4000, End: 0x7FFF, Pattern: []int{2}}})
	// LD A,(4000h) at 0: fetch 4 + operands 3+3 + contended read 2+3.
	if err := m.Load(0, []byte{0x3A, 0x00, 0x40}); err != nil {
		t.Fatal(err)
	}
	m.Step()
	if got := m.Clock().Tstates(); got != 15 {
		t.Errorf("got %d T-states, want 15", got)
	}
}

func TestULAPattern(t *testing.T) {
	c := ULAPattern()
	want := []int{6, 5, 4, 3, 2, 1, 0, 0, 6}
	for now, w := range want {
		if got := c.Delay(0x4000, int64(now)); got != w {
			t.Errorf("Delay at %d: got %d, want %d", now, got, w)
		}
	}
	if c.Delay(0x8000, 0) != 0 {
		t.Error("uncontended address delayed")
	}
}

func TestRunStopsAtBreakpoint(t *testing.T) {
	// NOP; NOP; NOP; JR -2
	m := newMachine(t, 0x00, 0x00, 0x00, 0x18, 0xFE)
	m.CPU().SetBreakpoint(2, true)
	var hitPC uint16
	m.SetBreakpointHandler(func(m *Machine) {
		hitPC = m.CPU().PC()
		m.Stop()
	})
	if err := m.Run(context.Background(), 1000); err != nil {
		t.Fatal(err)
	}
	if !m.Stopped() {
		t.Fatal("run should have been stopped")
	}
	if hitPC != 2 {
		t.Errorf("breakpoint PC: got %04X, want 0002", hitPC)
	}
	if m.CPU().PC() != 3 {
		t.Errorf("PC after stop: got %04X, want 0003", m.CPU().PC())
	}
}

func TestRunLimit(t *testing.T) {
	m := newMachine(t, 0x18, 0xFE) // JR -2
	if err := m.Run(context.Background(), 100); err != nil {
		t.Fatal(err)
	}
	if got := m.Clock().Tstates(); got < 100 || got >= 112 {
		t.Errorf("clock after run: %d", got)
	}
	if m.Stopped() {
		t.Error("limit should not look like Stop")
	}
}

func TestRunCancelled(t *testing.T) {
	m := newMachine(t, 0x18, 0xFE)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx, 1<<40); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestStepHandler(t *testing.T) {
	m := newMachine(t, 0x00, 0x00, 0x00)
	var pcs []uint16
	m.SetStepHandler(func(m *Machine) { pcs = append(pcs, m.CPU().PC()) })
	m.Step()
	m.Step()
	m.SetStepHandler(nil)
	m.Step()
	if len(pcs) != 2 || pcs[0] != 1 || pcs[1] != 2 {
		t.Errorf("step callbacks: %v", pcs)
	}
}
