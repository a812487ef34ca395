// Package probe derives facts about a program by running it: it loads an
// image, runs to a stop address under a T-state budget and reports the
// register state and the stack layout found there.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/machine"
)

// ErrBudgetExhausted is reported when no stop address was reached within
// the T-state budget.
var ErrBudgetExhausted = errors.New("T-state budget exhausted")

// Defaults applied to zero Config fields.
const (
	DefaultBudget     = 50_000_000
	DefaultStackDepth = 8
)

// Config holds per-task run settings. Zero values mean defaults.
type Config struct {
	Org        uint16 // Load address
	Entry      uint16 // Start PC, used when HasEntry is set
	HasEntry   bool   // Otherwise execution starts at Org
	SP         uint16 // Initial SP (defaults to the power-on FFFFh)
	IM         cpu.IntMode
	Budget     int64    // T-state budget (defaults to DefaultBudget)
	StopAt     []uint16 // Addresses that end the run before executing
	StackDepth int      // Words sampled from SP at the stop point
	Contention machine.Contention
}

// Task is one program to probe.
type Task struct {
	Name  string
	Image []byte
	Config
}

// Report describes where and how a probe run ended.
type Report struct {
	Name string

	// Err is nil when a stop address was reached and ErrBudgetExhausted
	// when the budget ran out first.
	Err error

	StopPC       uint16
	State        cpu.State // Registers before the instruction at StopPC
	Stack        []uint16  // Words at SP, SP+2, ...
	Tstates      int64
	Instructions int64
}

// Stopped reports whether the run reached a stop address.
func (r Report) Stopped() bool { return r.Err == nil }

// Run executes one task on a fresh machine. Load failures and context
// cancellation are returned as errors; running out of budget is not.
func Run(ctx context.Context, task Task) (Report, error) {
	cfg := task.Config
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.StackDepth <= 0 {
		cfg.StackDepth = DefaultStackDepth
	}
	if !cfg.HasEntry {
		cfg.Entry = cfg.Org
	}
	if !cfg.IM.Valid() {
		return Report{}, fmt.Errorf("probe %s: %w %d", task.Name, cpu.ErrIntMode, uint8(cfg.IM))
	}

	m := machine.New(machine.Config{Contention: cfg.Contention})
	if err := m.Load(cfg.Org, task.Image); err != nil {
		return Report{}, fmt.Errorf("probe %s: %w", task.Name, err)
	}
	z := m.CPU()
	z.SetPC(cfg.Entry)
	if cfg.SP != 0 {
		z.SetSP(cfg.SP)
	}
	z.SetIM(cfg.IM)
	for _, addr := range cfg.StopAt {
		z.SetBreakpoint(addr, true)
	}

	rep := Report{Name: task.Name, Err: ErrBudgetExhausted}
	var executed int64
	m.SetStepHandler(func(*machine.Machine) { executed++ })
	m.SetBreakpointHandler(func(m *machine.Machine) {
		if !m.Stopped() {
			rep.Err = nil
			rep.Instructions = executed
			rep.State = z.Capture()
			rep.StopPC = rep.State.PC
			rep.Tstates = m.Clock().Tstates()
			rep.Stack = stackWords(m, rep.State.SP, cfg.StackDepth)
			m.Stop()
		}
	})

	if err := m.Run(ctx, cfg.Budget); err != nil {
		return Report{}, fmt.Errorf("probe %s: %w", task.Name, err)
	}
	if rep.Err != nil {
		rep.State = z.Capture()
		rep.StopPC = rep.State.PC
		rep.Tstates = m.Clock().Tstates()
		rep.Stack = stackWords(m, rep.State.SP, cfg.StackDepth)
		rep.Instructions = executed
	}
	return rep, nil
}

func stackWords(m *machine.Machine, sp uint16, n int) []uint16 {
	words := make([]uint16, n)
	for i := range words {
		words[i] = m.ReadWord(sp + uint16(2*i))
	}
	return words
}
