package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/machine"
	"github.com/oisee/z80core/pkg/snapshot"
)

// parseNumber accepts 0x1234, $1234, 1234h or decimal.
func parseNumber(s string, limit uint64) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty number")
	}
	base := 10
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "0X"):
		s, base = s[2:], 16
	case strings.HasPrefix(s, "$"):
		s, base = s[1:], 16
	case strings.HasSuffix(upper, "H"):
		s, base = s[:len(s)-1], 16
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, err
	}
	if v > limit {
		return 0, fmt.Errorf("%d out of range (max %d)", v, limit)
	}
	return v, nil
}

// addr is a 16-bit flag value in any parseNumber form.
type addr uint16

var _ pflag.Value = (*addr)(nil)

func (a *addr) String() string { return fmt.Sprintf("0x%04X", uint16(*a)) }
func (a *addr) Type() string   { return "addr" }

func (a *addr) Set(s string) error {
	v, err := parseNumber(s, 0xFFFF)
	if err != nil {
		return err
	}
	*a = addr(v)
	return nil
}

// addrList collects repeated or comma-separated addresses.
type addrList []uint16

var _ pflag.Value = (*addrList)(nil)

func (l *addrList) Type() string { return "addrs" }

func (l *addrList) String() string {
	parts := make([]string, len(*l))
	for i, a := range *l {
		parts[i] = fmt.Sprintf("0x%04X", a)
	}
	return strings.Join(parts, ",")
}

func (l *addrList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		v, err := parseNumber(part, 0xFFFF)
		if err != nil {
			return err
		}
		*l = append(*l, uint16(v))
	}
	return nil
}

// machineFlags are the settings shared by run and trace.
type machineFlags struct {
	org, entry, sp addr
	im             int
	tstates        int64
	breaks, stopAt addrList
	contended      bool
	script         string
	snapIn         string
	snapOut        string
	format         string
}

func (f *machineFlags) register(fs *pflag.FlagSet) {
	fs.Var(&f.org, "org", "Load address of the image")
	fs.Var(&f.entry, "entry", "Start address (defaults to --org)")
	fs.Var(&f.sp, "sp", "Initial stack pointer")
	fs.IntVar(&f.im, "im", 0, "Interrupt mode (0, 1, 2)")
	fs.Int64Var(&f.tstates, "tstates", 10_000_000, "T-state budget")
	fs.Var(&f.breaks, "break", "Breakpoint address, handled by --script (repeatable)")
	fs.Var(&f.stopAt, "stop-at", "Stop before executing this address (repeatable)")
	fs.BoolVar(&f.contended, "contended", false, "Apply 48K ULA contention to 4000h-7FFFh")
	fs.StringVar(&f.script, "script", "", "Lua breakpoint script")
	fs.StringVar(&f.snapIn, "snapshot-in", "", "Start from a saved snapshot")
	fs.StringVar(&f.snapOut, "snapshot-out", "", "Save a snapshot when the run ends")
	fs.StringVar(&f.format, "format", "", "Snapshot format (gob, json; default from extension)")
}

// build creates the machine from an optional image and snapshot. Flags
// left unset keep the snapshot's values.
func (f *machineFlags) build(cmd *cobra.Command, args []string, cfg machine.Config) (*machine.Machine, error) {
	if len(args) == 0 && f.snapIn == "" {
		return nil, errors.New("need an image or --snapshot-in")
	}
	if f.im < 0 || f.im > 2 {
		return nil, fmt.Errorf("--im %d: want 0, 1 or 2", f.im)
	}
	if f.contended {
		cfg.Contention = machine.ULAPattern()
	}
	m := machine.New(cfg)
	z := m.CPU()
	fresh := f.snapIn == ""
	if !fresh {
		snap, err := snapshot.LoadFile(f.snapIn)
		if err != nil {
			return nil, err
		}
		if err := snap.Apply(m); err != nil {
			return nil, err
		}
	}
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		if err := m.Load(uint16(f.org), data); err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	switch {
	case changed("entry"):
		z.SetPC(uint16(f.entry))
	case fresh || changed("org"):
		z.SetPC(uint16(f.org))
	}
	if changed("sp") {
		z.SetSP(uint16(f.sp))
	}
	if fresh || changed("im") {
		z.SetIM(cpu.IntMode(f.im))
	}
	for _, a := range f.breaks {
		z.SetBreakpoint(a, true)
	}
	for _, a := range f.stopAt {
		z.SetBreakpoint(a, true)
	}
	return m, nil
}

// snapshotFormat resolves --format, falling back to the file extension.
func snapshotFormat(flag, path string) (snapshot.Format, error) {
	if flag == "" {
		return snapshot.FormatFromPath(path), nil
	}
	return snapshot.ParseFormat(flag)
}
