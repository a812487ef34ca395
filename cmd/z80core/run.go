package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oisee/z80core/pkg/inst"
	"github.com/oisee/z80core/pkg/machine"
	"github.com/oisee/z80core/pkg/script"
	"github.com/oisee/z80core/pkg/snapshot"
)

func newRunCmd(name, short string, trace bool) *cobra.Command {
	var mf machineFlags
	cmd := &cobra.Command{
		Use:   name + " [image]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImage(cmd, args, &mf, trace)
		},
	}
	mf.register(cmd.Flags())
	if !trace {
		cmd.Flags().BoolVar(&trace, "trace", false, "Print every executed instruction")
	}
	return cmd
}

func runImage(cmd *cobra.Command, args []string, mf *machineFlags, trace bool) error {
	log := slog.Default()
	m, err := mf.build(cmd, args, machine.Config{Logger: log})
	if err != nil {
		return err
	}

	var eng *script.Engine
	if mf.script != "" {
		eng, err = script.New(m)
		if err != nil {
			return err
		}
		defer eng.Close()
		if err := eng.LoadFile(mf.script); err != nil {
			return err
		}
	}

	stops := make(map[uint16]bool, len(mf.stopAt))
	for _, a := range mf.stopAt {
		stops[a] = true
	}
	var final *snapshot.File
	var scriptErr error
	m.SetBreakpointHandler(func(m *machine.Machine) {
		if m.Stopped() {
			return
		}
		pc := m.CPU().PC()
		stop := stops[pc]
		if !stop && eng != nil {
			stop, scriptErr = eng.OnBreakpoint()
			stop = stop || scriptErr != nil
		} else if !stop {
			log.Info("breakpoint", slog.String("pc", fmt.Sprintf("%04X", pc)))
		}
		if stop {
			// Nothing at pc has run yet; keep that state as the result.
			final = snapshot.Capture(m)
			m.Stop()
		}
	})

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()
	if trace {
		m.SetStepHandler(newTracer(out, cmd.OutOrStdout()).step)
	}

	if err := m.Run(cmd.Context(), m.Clock().Tstates()+mf.tstates); err != nil {
		return err
	}
	if scriptErr != nil {
		return scriptErr
	}

	reason := "budget exhausted"
	if final != nil {
		reason = fmt.Sprintf("stopped at %04X", final.State.PC)
	} else {
		final = snapshot.Capture(m)
	}
	fmt.Fprintf(out, "%s after %d T-states\n", reason, final.Tstates)
	fmt.Fprintln(out, formatState(final.State))
	fmt.Fprintln(out, formatAlternates(final.State))

	if mf.snapOut != "" {
		format, err := snapshotFormat(mf.format, mf.snapOut)
		if err != nil {
			return err
		}
		if err := snapshot.SaveFile(mf.snapOut, final, format); err != nil {
			return err
		}
		log.Info("snapshot saved", slog.String("path", mf.snapOut), slog.String("format", format.String()))
	}
	return nil
}

// tracer prints each executed instruction followed by the registers it
// left behind.
type tracer struct {
	w     io.Writer
	color bool
	width int
}

func newTracer(buf io.Writer, dest io.Writer) *tracer {
	t := &tracer{w: buf}
	if f, ok := dest.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.color = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			t.width = w
		}
	}
	return t
}

// step traces the opcode the CPU fetched, which after an accepted
// interrupt is the handler's first instruction rather than LastPC.
func (t *tracer) step(m *machine.Machine) {
	z := m.CPU()
	if z.Acknowledged() {
		fmt.Fprintf(t.w, "---- interrupt at %04X\n", z.LastPC())
	}
	l := inst.Disassemble(m.Read, z.OpPC(), 1)[0]
	line := fmt.Sprintf("%-40s %s", l.String(), formatState(z.Capture()))
	if t.width > 4 && len(line) > t.width {
		line = line[:t.width]
	}
	if t.color {
		fmt.Fprintf(t.w, "\x1b[36m%.4s\x1b[0m%s\n", line, line[4:])
		return
	}
	fmt.Fprintln(t.w, line)
}
