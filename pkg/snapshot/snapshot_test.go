package snapshot

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/machine"
)

// counter loops forever: INC A; LD (8000h),A; DJNZ back; JR back.
var counter = []byte{0x3C, 0x32, 0x00, 0x80, 0x10, 0xFA, 0x18, 0xF8}

func runningMachine(t *testing.T) *machine.Machine {
	t.Helper()
	m := machine.New(machine.Config{})
	if err := m.Load(0, counter); err != nil {
		t.Fatal(err)
	}
	m.CPU().SetSP(0xFF00)
	m.CPU().SetBreakpoint(0x0006, true)
	if err := m.Run(context.Background(), 500); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{Gob, JSON} {
		t.Run(format.String(), func(t *testing.T) {
			m := runningMachine(t)
			want := Capture(m)

			var buf bytes.Buffer
			if err := Save(&buf, want, format); err != nil {
				t.Fatal(err)
			}
			got, err := Load(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if !got.State.Equal(want.State) {
				t.Errorf("state:\n got  %+v\n want %+v", got.State, want.State)
			}
			if got.Tstates != want.Tstates {
				t.Errorf("Tstates: got %d, want %d", got.Tstates, want.Tstates)
			}
			if !bytes.Equal(got.Memory, want.Memory) {
				t.Error("memory image differs")
			}
			if len(got.Breakpoints) != 1 || got.Breakpoints[0] != 0x0006 {
				t.Errorf("breakpoints: %v", got.Breakpoints)
			}
		})
	}
}

func TestApplyResumes(t *testing.T) {
	m := runningMachine(t)
	f := Capture(m)
	if err := m.Run(context.Background(), 2000); err != nil {
		t.Fatal(err)
	}

	n := machine.New(machine.Config{})
	if err := f.Apply(n); err != nil {
		t.Fatal(err)
	}
	if !n.CPU().IsBreakpoint(0x0006) {
		t.Error("breakpoint not restored")
	}
	if err := n.Run(context.Background(), 2000); err != nil {
		t.Fatal(err)
	}
	if !n.CPU().Capture().Equal(m.CPU().Capture()) {
		t.Errorf("resumed state differs:\n got  %+v\n want %+v", n.CPU().Capture(), m.CPU().Capture())
	}
	if n.Clock().Tstates() != m.Clock().Tstates() {
		t.Errorf("clock: got %d, want %d", n.Clock().Tstates(), m.Clock().Tstates())
	}
	if n.Read(0x8000) != m.Read(0x8000) {
		t.Errorf("counter byte: got %02X, want %02X", n.Read(0x8000), m.Read(0x8000))
	}
}

func TestLoadRejects(t *testing.T) {
	_, err := Load(strings.NewReader("MZ\x90\x00garbage"))
	if !errors.Is(err, ErrBadMagic) {
		t.Errorf("garbage: got %v, want ErrBadMagic", err)
	}
	_, err = Load(strings.NewReader(""))
	if !errors.Is(err, ErrBadMagic) {
		t.Errorf("empty: got %v, want ErrBadMagic", err)
	}
	_, err = Load(strings.NewReader(`{"Version": 99}`))
	if err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("future version: got %v", err)
	}
	_, err = Load(strings.NewReader(`{"Version": 1, "State": {"IM": 5}}`))
	if !errors.Is(err, cpu.ErrIntMode) {
		t.Errorf("interrupt mode 5: got %v, want ErrIntMode", err)
	}

	m := machine.New(machine.Config{})
	bad := &File{Version: Version, State: m.CPU().Capture()}
	bad.State.IM = 4
	if err := bad.Apply(m); !errors.Is(err, cpu.ErrIntMode) {
		t.Errorf("Apply with IM 4: got %v, want ErrIntMode", err)
	}
}

func TestFormats(t *testing.T) {
	for s, want := range map[string]Format{"gob": Gob, "JSON": JSON} {
		got, err := ParseFormat(s)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseFormat("sna"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(sna): got %v", err)
	}
	if err := Save(&bytes.Buffer{}, &File{}, Format(7)); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Save with bad format: got %v", err)
	}
	if FormatFromPath("a/b.JSON") != JSON || FormatFromPath("state.z80s") != Gob {
		t.Error("FormatFromPath mismatch")
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := &File{
		Version: Version,
		State:   cpu.State{A: 0x42, PC: 0x1234, SP: 0xFFF0, IM: cpu.IM2, IFF1: true},
		Tstates: 99,
		Memory:  []byte{0xC3, 0x00, 0x00},
	}
	for _, name := range []string{"s.z80s", "s.json"} {
		path := filepath.Join(dir, name)
		if err := SaveFile(path, f, FormatFromPath(path)); err != nil {
			t.Fatal(err)
		}
		got, err := LoadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !got.State.Equal(f.State) || got.Tstates != 99 || !bytes.Equal(got.Memory, f.Memory) {
			t.Errorf("%s: got %+v", name, got)
		}
	}
	if _, err := LoadFile(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing file should fail")
	}
}
