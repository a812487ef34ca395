package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/machine"
)

func newEngine(t *testing.T, code ...byte) (*Engine, *machine.Machine) {
	t.Helper()
	m := machine.New(machine.Config{})
	if err := m.Load(0, code); err != nil {
		t.Fatal(err)
	}
	e, err := New(m)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e, m
}

func TestBreakpointHook(t *testing.T) {
	// NOP; JR back to 0.
	e, m := newEngine(t, 0x00, 0x18, 0xFD)
	m.CPU().SetA(0)
	m.CPU().SetBreakpoint(0, true)
	err := e.LoadString(`
hits = 0
function on_breakpoint(pc)
  hits = hits + 1
  setreg("a", reg("a") + 1)
  poke(0x9000, pc + 0x10)
  return hits >= 2
end
`)
	if err != nil {
		t.Fatal(err)
	}
	e.Attach()
	if err := m.Run(context.Background(), 10_000); err != nil {
		t.Fatal(err)
	}
	if !m.Stopped() {
		t.Fatal("script should have stopped the run")
	}
	if e.Err() != nil {
		t.Fatalf("script error: %v", e.Err())
	}
	if got := m.CPU().A(); got != 2 {
		t.Errorf("A = %d, want 2", got)
	}
	if got := m.Read(0x9000); got != 0x10 {
		t.Errorf("poked byte = %02X, want 10", got)
	}
	if got := m.Clock().Tstates(); got != 4+12+4 {
		t.Errorf("stopped after %d T-states, want 20", got)
	}
}

func TestStopFunction(t *testing.T) {
	e, _ := newEngine(t)
	if err := e.LoadString(`function on_breakpoint() stop() end`); err != nil {
		t.Fatal(err)
	}
	stop, err := e.OnBreakpoint()
	if err != nil || !stop {
		t.Errorf("OnBreakpoint = %v, %v; want true, nil", stop, err)
	}
}

func TestNoHandler(t *testing.T) {
	e, _ := newEngine(t)
	if _, err := e.OnBreakpoint(); !errors.Is(err, ErrNoHandler) {
		t.Errorf("got %v, want ErrNoHandler", err)
	}
}

func TestScriptError(t *testing.T) {
	e, m := newEngine(t, 0x00, 0x00)
	m.CPU().SetBreakpoint(1, true)
	if err := e.LoadString(`function on_breakpoint(pc) error("boom") end`); err != nil {
		t.Fatal(err)
	}
	e.Attach()
	if err := m.Run(context.Background(), 100); err != nil {
		t.Fatal(err)
	}
	if e.Err() == nil || !strings.Contains(e.Err().Error(), "boom") {
		t.Errorf("Err = %v, want boom", e.Err())
	}
	if !m.Stopped() {
		t.Error("a failing script should stop the run")
	}
}

func TestRegisterAccess(t *testing.T) {
	e, m := newEngine(t)
	err := e.LoadString(`
setreg("HL", 0x1234)
setreg("ix", 0xBEEF)
setreg("af'", 0x0102)
setreg("im", 2)
breakpoint(0x4000)
breakpoint(0x4001, true)
breakpoint(0x4001, false)
poke(0x100, reg("h") + reg("l"))
t = tstates()
`)
	if err != nil {
		t.Fatal(err)
	}
	z := m.CPU()
	if z.HL() != 0x1234 || z.IX() != 0xBEEF || z.AFx() != 0x0102 || z.IM() != 2 {
		t.Errorf("HL=%04X IX=%04X AF'=%04X IM=%v", z.HL(), z.IX(), z.AFx(), z.IM())
	}
	if !z.IsBreakpoint(0x4000) || z.IsBreakpoint(0x4001) {
		t.Error("breakpoint() did not update the matrix")
	}
	if m.Read(0x100) != 0x46 {
		t.Errorf("peek/poke: got %02X, want 46", m.Read(0x100))
	}
}

func TestUnknownRegister(t *testing.T) {
	e, _ := newEngine(t)
	err := e.LoadString(`reg("zz")`)
	if err == nil || !strings.Contains(err.Error(), "unknown register") {
		t.Errorf("got %v", err)
	}
}

func TestInvalidIntMode(t *testing.T) {
	e, m := newEngine(t)
	m.CPU().SetIM(cpu.IM2)
	err := e.LoadString(`setreg("im", 7)`)
	if err == nil || !strings.Contains(err.Error(), "invalid interrupt mode") {
		t.Errorf("got %v", err)
	}
	if m.CPU().IM() != cpu.IM2 {
		t.Errorf("IM = %v, want IM2", m.CPU().IM())
	}
	if err := e.LoadString(`setreg("im", 1)`); err != nil {
		t.Fatal(err)
	}
	if m.CPU().IM() != cpu.IM1 {
		t.Errorf("IM = %v, want IM1", m.CPU().IM())
	}
}

func TestLoadFile(t *testing.T) {
	e, _ := newEngine(t)
	path := filepath.Join(t.TempDir(), "hook.lua")
	if err := os.WriteFile(path, []byte("function on_breakpoint(pc) return pc == 0 end\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadFile(path); err != nil {
		t.Fatal(err)
	}
	stop, err := e.OnBreakpoint()
	if err != nil || !stop {
		t.Errorf("OnBreakpoint = %v, %v", stop, err)
	}
	if err := e.LoadFile(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestNewNilMachine(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) should fail")
	}
}
