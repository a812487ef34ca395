// Package snapshot saves and restores complete machine states: the CPU
// register file, the 64K memory image, the clock and the breakpoint set.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/machine"
)

// Version is the current file layout version.
const Version = 1

// magic prefixes the gob encoding.
var magic = []byte("Z80S")

var (
	ErrBadMagic      = errors.New("not a snapshot file")
	ErrUnknownFormat = errors.New("unknown snapshot format")
)

// Format selects the on-disk encoding.
type Format int

const (
	Gob  Format = iota // Compact binary, magic-prefixed
	JSON               // Indented, for inspection
)

func (f Format) String() string {
	switch f {
	case Gob:
		return "gob"
	case JSON:
		return "json"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps "gob" or "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "gob":
		return Gob, nil
	case "json":
		return JSON, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

// FormatFromPath picks JSON for a .json extension and Gob otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return Gob
}

// File is one saved machine state.
type File struct {
	Version     int
	State       cpu.State
	Tstates     int64
	Memory      []byte
	Breakpoints []uint16 `json:",omitempty"`
}

// Capture records the current state of m.
func Capture(m *machine.Machine) *File {
	z := m.CPU()
	f := &File{
		Version: Version,
		State:   z.Capture(),
		Tstates: m.Clock().Tstates(),
		Memory:  bytes.Clone(m.Memory()[:]),
	}
	for addr := 0; addr < 0x10000; addr++ {
		if z.IsBreakpoint(uint16(addr)) {
			f.Breakpoints = append(f.Breakpoints, uint16(addr))
		}
	}
	return f
}

// Apply restores f into m. A short memory image is loaded at 0 and the
// rest of memory is left alone.
func (f *File) Apply(m *machine.Machine) error {
	if err := m.Load(0, f.Memory); err != nil {
		return fmt.Errorf("apply snapshot: %w", err)
	}
	z := m.CPU()
	if err := z.Restore(f.State); err != nil {
		return fmt.Errorf("apply snapshot: %w", err)
	}
	z.ResetBreakpoints()
	for _, addr := range f.Breakpoints {
		z.SetBreakpoint(addr, true)
	}
	m.Clock().Reset()
	m.Clock().AddTstates(f.Tstates)
	return nil
}

// Save writes f to w in the given format.
func Save(w io.Writer, f *File, format Format) error {
	switch format {
	case Gob:
		if _, err := w.Write(magic); err != nil {
			return err
		}
		return gob.NewEncoder(w).Encode(f)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	}
	return fmt.Errorf("save: %w", ErrUnknownFormat)
}

// Load reads a snapshot in either format, telling them apart by the
// gob magic or a leading '{'.
func Load(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(magic))
	if err != nil && len(head) == 0 {
		return nil, fmt.Errorf("read snapshot: %w", ErrBadMagic)
	}

	var f File
	switch {
	case bytes.Equal(head, magic):
		br.Discard(len(magic))
		if err := gob.NewDecoder(br).Decode(&f); err != nil {
			return nil, fmt.Errorf("decode gob snapshot: %w", err)
		}
	case bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("{")):
		if err := json.NewDecoder(br).Decode(&f); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}
	default:
		return nil, ErrBadMagic
	}
	if f.Version > Version {
		return nil, fmt.Errorf("snapshot version %d is newer than %d", f.Version, Version)
	}
	if !f.State.IM.Valid() {
		return nil, fmt.Errorf("read snapshot: %w: %d", cpu.ErrIntMode, uint8(f.State.IM))
	}
	return &f, nil
}

// SaveFile writes f to path.
func SaveFile(path string, f *File, format Format) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(out, f, format); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// LoadFile loads a snapshot from path.
func LoadFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return Load(in)
}
