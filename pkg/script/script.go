// Package script runs Lua breakpoint hooks against a machine.
//
// A script defines on_breakpoint(pc), called before the instruction at a
// breakpoint executes. Returning true, or calling stop(), ends the run.
// The hook can use:
//
//	reg(name)            register value; names as in registers below
//	setreg(name, value)
//	peek(addr)           memory byte, untimed
//	poke(addr, value)
//	tstates()            clock
//	breakpoint(addr[, on])
//	stop()
//	log(msg)
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/machine"
)

// ErrNoHandler is returned when the script defines no on_breakpoint.
var ErrNoHandler = errors.New("script defines no on_breakpoint function")

const handlerName = "on_breakpoint"

// Engine is one Lua state bound to one machine. It is not safe for
// concurrent use.
type Engine struct {
	L    *lua.LState
	m    *machine.Machine
	stop bool
	err  error
}

// New creates an engine with the machine functions registered.
func New(m *machine.Machine) (*Engine, error) {
	if m == nil {
		return nil, errors.New("script: nil machine")
	}
	e := &Engine{L: lua.NewState(), m: m}
	funcs := map[string]lua.LGFunction{
		"reg":        e.luaReg,
		"setreg":     e.luaSetReg,
		"peek":       e.luaPeek,
		"poke":       e.luaPoke,
		"tstates":    e.luaTstates,
		"breakpoint": e.luaBreakpoint,
		"stop":       e.luaStop,
		"log":        e.luaLog,
	}
	for name, fn := range funcs {
		e.L.SetGlobal(name, e.L.NewFunction(fn))
	}
	return e, nil
}

// LoadFile runs a script file, defining its functions.
func (e *Engine) LoadFile(path string) error {
	if err := e.L.DoFile(path); err != nil {
		return fmt.Errorf("load script %s: %w", path, err)
	}
	return nil
}

// LoadString runs script source.
func (e *Engine) LoadString(src string) error {
	if err := e.L.DoString(src); err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	return nil
}

// OnBreakpoint calls on_breakpoint(pc) and reports whether the script
// asked to stop.
func (e *Engine) OnBreakpoint() (stop bool, err error) {
	fn := e.L.GetGlobal(handlerName)
	if fn.Type() != lua.LTFunction {
		return false, ErrNoHandler
	}
	e.stop = false
	pc := lua.LNumber(e.m.CPU().PC())
	if err := e.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, pc); err != nil {
		return false, fmt.Errorf("%s: %w", handlerName, err)
	}
	ret := e.L.Get(-1)
	e.L.Pop(1)
	return e.stop || lua.LVAsBool(ret), nil
}

// Attach installs the engine as the machine breakpoint handler. A script
// error stops the run and is kept for Err.
func (e *Engine) Attach() {
	e.m.SetBreakpointHandler(func(m *machine.Machine) {
		stop, err := e.OnBreakpoint()
		if err != nil {
			e.err = err
			m.Logger().Error("breakpoint script failed",
				slog.String("pc", fmt.Sprintf("%04X", m.CPU().PC())),
				slog.Any("err", err))
			m.Stop()
			return
		}
		if stop {
			m.Stop()
		}
	})
}

// Err returns the error that stopped an attached run, if any.
func (e *Engine) Err() error { return e.err }

// Close releases the Lua state.
func (e *Engine) Close() { e.L.Close() }

func (e *Engine) lookup(L *lua.LState, arg int) register {
	name := strings.ToLower(L.CheckString(arg))
	r, ok := registers[name]
	if !ok {
		L.ArgError(arg, "unknown register "+name)
	}
	return r
}

func (e *Engine) luaReg(L *lua.LState) int {
	r := e.lookup(L, 1)
	L.Push(lua.LNumber(r.get(e.m.CPU())))
	return 1
}

func (e *Engine) luaSetReg(L *lua.LState) int {
	r := e.lookup(L, 1)
	if err := r.set(e.m.CPU(), L.CheckInt(2)); err != nil {
		L.ArgError(2, err.Error())
	}
	return 0
}

func (e *Engine) luaPeek(L *lua.LState) int {
	L.Push(lua.LNumber(e.m.Read(uint16(L.CheckInt(1)))))
	return 1
}

func (e *Engine) luaPoke(L *lua.LState) int {
	e.m.Write(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)))
	return 0
}

func (e *Engine) luaTstates(L *lua.LState) int {
	L.Push(lua.LNumber(e.m.Clock().Tstates()))
	return 1
}

func (e *Engine) luaBreakpoint(L *lua.LState) int {
	e.m.CPU().SetBreakpoint(uint16(L.CheckInt(1)), L.OptBool(2, true))
	return 0
}

func (e *Engine) luaStop(L *lua.LState) int {
	e.stop = true
	return 0
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.m.Logger().Info(L.CheckString(1), slog.String("source", "lua"))
	return 0
}

type register struct {
	get func(z *cpu.Z80) int
	set func(z *cpu.Z80, v int) error
}

func reg8(get func(*cpu.Z80) uint8, set func(*cpu.Z80, uint8)) register {
	return register{
		get: func(z *cpu.Z80) int { return int(get(z)) },
		set: func(z *cpu.Z80, v int) error {
			set(z, uint8(v))
			return nil
		},
	}
}

func reg16(get func(*cpu.Z80) uint16, set func(*cpu.Z80, uint16)) register {
	return register{
		get: func(z *cpu.Z80) int { return int(get(z)) },
		set: func(z *cpu.Z80, v int) error {
			set(z, uint16(v))
			return nil
		},
	}
}

var registers = map[string]register{
	"a":      reg8((*cpu.Z80).A, (*cpu.Z80).SetA),
	"f":      reg8((*cpu.Z80).Flags, (*cpu.Z80).SetFlags),
	"b":      reg8((*cpu.Z80).B, (*cpu.Z80).SetB),
	"c":      reg8((*cpu.Z80).C, (*cpu.Z80).SetC),
	"d":      reg8((*cpu.Z80).D, (*cpu.Z80).SetD),
	"e":      reg8((*cpu.Z80).E, (*cpu.Z80).SetE),
	"h":      reg8((*cpu.Z80).H, (*cpu.Z80).SetH),
	"l":      reg8((*cpu.Z80).L, (*cpu.Z80).SetL),
	"i":      reg8((*cpu.Z80).I, (*cpu.Z80).SetI),
	"r":      reg8((*cpu.Z80).R, (*cpu.Z80).SetR),
	"af":     reg16((*cpu.Z80).AF, (*cpu.Z80).SetAF),
	"bc":     reg16((*cpu.Z80).BC, (*cpu.Z80).SetBC),
	"de":     reg16((*cpu.Z80).DE, (*cpu.Z80).SetDE),
	"hl":     reg16((*cpu.Z80).HL, (*cpu.Z80).SetHL),
	"af'":    reg16((*cpu.Z80).AFx, (*cpu.Z80).SetAFx),
	"bc'":    reg16((*cpu.Z80).BCx, (*cpu.Z80).SetBCx),
	"de'":    reg16((*cpu.Z80).DEx, (*cpu.Z80).SetDEx),
	"hl'":    reg16((*cpu.Z80).HLx, (*cpu.Z80).SetHLx),
	"ix":     reg16((*cpu.Z80).IX, (*cpu.Z80).SetIX),
	"iy":     reg16((*cpu.Z80).IY, (*cpu.Z80).SetIY),
	"sp":     reg16((*cpu.Z80).SP, (*cpu.Z80).SetSP),
	"pc":     reg16((*cpu.Z80).PC, (*cpu.Z80).SetPC),
	"memptr": reg16((*cpu.Z80).MemPtr, (*cpu.Z80).SetMemPtr),
	"im": {
		get: func(z *cpu.Z80) int { return int(z.IM()) },
		set: func(z *cpu.Z80, v int) error {
			if v < 0 || v > int(cpu.IM2) {
				return fmt.Errorf("%w %d", cpu.ErrIntMode, v)
			}
			z.SetIM(cpu.IntMode(v))
			return nil
		},
	},
}
