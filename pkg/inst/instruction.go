package inst

import (
	"fmt"
	"strings"
)

// Instruction is one decoded Z80 instruction.
type Instruction struct {
	Addr     uint16
	Bytes    []byte // Full encoding: prefixes, displacement, immediates
	Mnemonic string // Assembly text, e.g. "LD A, (IX+05h)"

	// TStates is the cost of the instruction when a branch is taken or a
	// block instruction repeats. TStatesAlt is the not-taken or final
	// iteration cost, zero for fixed-timing instructions.
	TStates    int
	TStatesAlt int
}

// Len returns the encoded size in bytes.
func (in Instruction) Len() int { return len(in.Bytes) }

func (in Instruction) String() string { return in.Mnemonic }

// Line is one row of a disassembly listing.
type Line struct {
	Addr  uint16
	Bytes []byte
	Text  string
}

func (l Line) String() string {
	var hex strings.Builder
	for i, b := range l.Bytes {
		if i > 0 {
			hex.WriteByte(' ')
		}
		fmt.Fprintf(&hex, "%02X", b)
	}
	return fmt.Sprintf("%04X  %-12s  %s", l.Addr, hex.String(), l.Text)
}

// Decode decodes the instruction at the start of b, which is assumed to
// live at address pc. Bytes missing from a short b read as zero; at most
// four bytes are ever consumed.
func Decode(b []byte, pc uint16) Instruction {
	d := decoder{src: b, pc: pc}
	text, t, alt := d.decode()
	return Instruction{
		Addr:       pc,
		Bytes:      d.bytes(),
		Mnemonic:   text,
		TStates:    t,
		TStatesAlt: alt,
	}
}

// Disassemble decodes count consecutive instructions starting at addr,
// reading memory through read. Addresses wrap at 64K.
func Disassemble(read func(addr uint16) uint8, addr uint16, count int) []Line {
	lines := make([]Line, 0, count)
	var buf [4]byte
	for i := 0; i < count; i++ {
		for j := range buf {
			buf[j] = read(addr + uint16(j))
		}
		in := Decode(buf[:], addr)
		lines = append(lines, Line{Addr: addr, Bytes: in.Bytes, Text: in.Mnemonic})
		addr += uint16(in.Len())
	}
	return lines
}

// SeqTStates returns the total T-states of a sequence, counting branches
// as taken.
func SeqTStates(seq []Instruction) int {
	t := 0
	for i := range seq {
		t += seq[i].TStates
	}
	return t
}

// SeqByteSize returns the total encoded size of a sequence.
func SeqByteSize(seq []Instruction) int {
	n := 0
	for i := range seq {
		n += seq[i].Len()
	}
	return n
}

func appendHex8(buf []byte, v uint8) []byte {
	const hex = "0123456789ABCDEF"
	if v >= 0xA0 {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>4], hex[v&0x0F], 'h')
	return buf
}

func appendHex16(buf []byte, v uint16) []byte {
	const hex = "0123456789ABCDEF"
	if v>>12 >= 0xA {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>12], hex[(v>>8)&0x0F], hex[(v>>4)&0x0F], hex[v&0x0F], 'h')
	return buf
}

func hex8(v uint8) string   { return string(appendHex8(nil, v)) }
func hex16(v uint16) string { return string(appendHex16(nil, v)) }
