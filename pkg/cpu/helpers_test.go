package cpu

import "testing"

type contention struct {
	addr    uint16
	tstates int
}

type portWrite struct {
	port  uint16
	value uint8
}

// testBus is a flat 64K memory with the standard memory-cycle costs. It
// records every ContendedStates call so tests can check their placement.
type testBus struct {
	mem    [65536]uint8
	clock  testClock
	in     map[uint16]uint8
	out    []portWrite
	cont   []contention
	breaks []uint16
	cpu    *Z80
	done   int
}

type testClock struct {
	t int64
}

func (c *testClock) Tstates() int64     { return c.t }
func (c *testClock) AddTstates(n int64) { c.t += n }

func (b *testBus) FetchOpcode(addr uint16) uint8 {
	b.clock.t += 4
	return b.mem[addr]
}

func (b *testBus) Peek8(addr uint16) uint8 {
	b.clock.t += 3
	return b.mem[addr]
}

func (b *testBus) Poke8(addr uint16, v uint8) {
	b.clock.t += 3
	b.mem[addr] = v
}

func (b *testBus) Peek16(addr uint16) uint16 {
	b.clock.t += 6
	return uint16(b.mem[addr]) | uint16(b.mem[addr+1])<<8
}

func (b *testBus) Poke16(addr uint16, w uint16) {
	b.clock.t += 6
	b.mem[addr] = uint8(w)
	b.mem[addr+1] = uint8(w >> 8)
}

func (b *testBus) InPort(port uint16) uint8 {
	b.clock.t += 4
	return b.in[port]
}

func (b *testBus) OutPort(port uint16, v uint8) {
	b.clock.t += 4
	b.out = append(b.out, portWrite{port, v})
}

func (b *testBus) ContendedStates(addr uint16, n int) {
	b.clock.t += int64(n)
	b.cont = append(b.cont, contention{addr, n})
}

func (b *testBus) Breakpoint() { b.breaks = append(b.breaks, b.cpu.PC()) }

func (b *testBus) ExecDone() { b.done++ }

// newTestCPU returns a CPU with code loaded at 0, SP at 0x8000 and the
// clock and contention log cleared.
func newTestCPU(code ...uint8) (*Z80, *testBus) {
	b := &testBus{in: map[uint16]uint8{}}
	z := New(&b.clock, b)
	b.cpu = z
	copy(b.mem[:], code)
	z.SetSP(0x8000)
	return z, b
}

// step executes n instructions.
func step(z *Z80, n int) {
	for i := 0; i < n; i++ {
		z.Execute()
	}
}

func requireU8(t *testing.T, name string, got, want uint8) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %02X, want %02X", name, got, want)
	}
}

func requireU16(t *testing.T, name string, got, want uint16) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %04X, want %04X", name, got, want)
	}
}

func requireFlag(t *testing.T, z *Z80, mask uint8, want bool) {
	t.Helper()
	if got := z.Flags()&mask != 0; got != want {
		t.Errorf("flag %02X: got %v, want %v (F=%02X)", mask, got, want, z.Flags())
	}
}

func requireTstates(t *testing.T, b *testBus, want int64) {
	t.Helper()
	if b.clock.t != want {
		t.Errorf("T-states: got %d, want %d", b.clock.t, want)
	}
}
