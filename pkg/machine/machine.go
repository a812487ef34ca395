// Package machine is a minimal Z80 host: 64K of flat RAM, an I/O port
// hook, a T-state clock and an optional contention model. It implements
// cpu.Bus with the standard memory-cycle costs.
package machine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oisee/z80core/pkg/cpu"
)

// ErrImageTooLarge is returned by Load when data would run past 0xFFFF.
var ErrImageTooLarge = errors.New("image does not fit in 64K")

// Memory-cycle costs in T-states.
const (
	FetchStates = 4
	ReadStates  = 3
	WordStates  = 6
	PortStates  = 4
)

// Config holds optional machine settings. The zero value is an
// uncontended machine logging through slog.Default.
type Config struct {
	Contention Contention
	Logger     *slog.Logger
}

// Clock counts T-states. It implements cpu.Clock.
type Clock struct {
	t int64
}

func (c *Clock) Tstates() int64     { return c.t }
func (c *Clock) AddTstates(n int64) { c.t += n }

// Reset sets the counter back to zero.
func (c *Clock) Reset() { c.t = 0 }

// Machine wires a cpu.Z80 to its memory, ports and clock.
type Machine struct {
	mem   [65536]uint8
	clock Clock
	cpu   *cpu.Z80
	cont  Contention
	log   *slog.Logger

	in      func(port uint16) uint8
	out     func(port uint16, value uint8)
	onBreak func(m *Machine)
	onStep  func(m *Machine)

	stopped bool
}

// New creates a machine with zeroed memory and a power-on reset CPU.
func New(cfg Config) *Machine {
	m := &Machine{cont: cfg.Contention, log: cfg.Logger}
	if m.log == nil {
		m.log = slog.Default()
	}
	m.cpu = cpu.New(&m.clock, m)
	m.cpu.SetLogger(m.log)
	return m
}

// CPU returns the interpreter driven by this machine.
func (m *Machine) CPU() *cpu.Z80 { return m.cpu }

// Clock returns the T-state counter.
func (m *Machine) Clock() *Clock { return &m.clock }

// Logger returns the machine logger.
func (m *Machine) Logger() *slog.Logger { return m.log }

// Load copies data into memory at addr.
func (m *Machine) Load(addr uint16, data []byte) error {
	if int(addr)+len(data) > len(m.mem) {
		return fmt.Errorf("load %d bytes at %04Xh: %w", len(data), addr, ErrImageTooLarge)
	}
	copy(m.mem[addr:], data)
	return nil
}

// Read returns the byte at addr without spending time.
func (m *Machine) Read(addr uint16) uint8 { return m.mem[addr] }

// Write stores v at addr without spending time.
func (m *Machine) Write(addr uint16, v uint8) { m.mem[addr] = v }

// ReadWord returns the little-endian word at addr without spending time.
func (m *Machine) ReadWord(addr uint16) uint16 {
	return uint16(m.mem[addr]) | uint16(m.mem[addr+1])<<8
}

// Memory exposes the backing store.
func (m *Machine) Memory() *[65536]uint8 { return &m.mem }

// SetInHandler installs the port read hook. Without one, reads see 0xFF.
func (m *Machine) SetInHandler(fn func(port uint16) uint8) { m.in = fn }

// SetOutHandler installs the port write hook. Without one, writes are dropped.
func (m *Machine) SetOutHandler(fn func(port uint16, value uint8)) { m.out = fn }

// SetBreakpointHandler installs the callback run before an instruction
// whose address is set in the CPU breakpoint matrix.
func (m *Machine) SetBreakpointHandler(fn func(m *Machine)) { m.onBreak = fn }

// SetStepHandler installs a callback run after every instruction.
// Passing nil turns the notification off.
func (m *Machine) SetStepHandler(fn func(m *Machine)) {
	m.onStep = fn
	m.cpu.SetExecDone(fn != nil)
}

// Stop ends the current Run after the instruction in progress.
func (m *Machine) Stop() { m.stopped = true }

// Stopped reports whether Stop was called during the last run.
func (m *Machine) Stopped() bool { return m.stopped }

// Step executes one instruction.
func (m *Machine) Step() { m.cpu.Execute() }

// Run executes until the clock reaches limit or Stop is called, checking
// ctx every checkEvery instructions. It returns ctx.Err() if cancelled.
func (m *Machine) Run(ctx context.Context, limit int64) error {
	const checkEvery = 4096
	m.stopped = false
	for n := 0; m.clock.t < limit && !m.stopped; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		m.cpu.Execute()
	}
	return nil
}

// cpu.Bus implementation.

func (m *Machine) FetchOpcode(addr uint16) uint8 {
	m.delay(addr)
	m.clock.t += FetchStates
	return m.mem[addr]
}

func (m *Machine) Peek8(addr uint16) uint8 {
	m.delay(addr)
	m.clock.t += ReadStates
	return m.mem[addr]
}

func (m *Machine) Poke8(addr uint16, v uint8) {
	m.delay(addr)
	m.clock.t += ReadStates
	m.mem[addr] = v
}

func (m *Machine) Peek16(addr uint16) uint16 {
	lo := m.Peek8(addr)
	hi := m.Peek8(addr + 1)
	return uint16(lo) | uint16(hi)<<8
}

func (m *Machine) Poke16(addr uint16, w uint16) {
	m.Poke8(addr, uint8(w))
	m.Poke8(addr+1, uint8(w>>8))
}

func (m *Machine) InPort(port uint16) uint8 {
	m.clock.t += PortStates
	if m.in == nil {
		return 0xff
	}
	return m.in(port)
}

func (m *Machine) OutPort(port uint16, v uint8) {
	m.clock.t += PortStates
	if m.out != nil {
		m.out(port, v)
	}
}

func (m *Machine) ContendedStates(addr uint16, tstates int) {
	if m.cont == nil {
		m.clock.t += int64(tstates)
		return
	}
	for i := 0; i < tstates; i++ {
		m.delay(addr)
		m.clock.t++
	}
}

func (m *Machine) Breakpoint() {
	if m.onBreak != nil {
		m.onBreak(m)
	}
}

func (m *Machine) ExecDone() {
	if m.onStep != nil {
		m.onStep(m)
	}
}

func (m *Machine) delay(addr uint16) {
	if m.cont != nil {
		m.clock.t += int64(m.cont.Delay(addr, m.clock.t))
	}
}
