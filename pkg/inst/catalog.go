package inst

// Name tables indexed by the x/y/z/p/q fields of an opcode byte:
// x = op>>6, y = op>>3&7, z = op&7, p = y>>1, q = y&1.
var (
	regNames  = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	pairNames = [4]string{"BC", "DE", "HL", "SP"}
	condNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	aluNames  = [8]string{"ADD A, ", "ADC A, ", "SUB ", "SBC A, ", "AND ", "XOR ", "OR ", "CP "}
	rotNames  = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
	accNames  = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	imNames   = [8]string{"0", "0", "1", "2", "0", "0", "1", "2"}

	// ED 40-7F, z=7.
	edSpecial = [8]string{"LD I, A", "LD R, A", "LD A, I", "LD A, R", "RRD", "RLD", "", ""}

	// ED A0-BB, indexed [y-4][z].
	blockNames = [4][4]string{
		{"LDI", "CPI", "INI", "OUTI"},
		{"LDD", "CPD", "IND", "OUTD"},
		{"LDIR", "CPIR", "INIR", "OTIR"},
		{"LDDR", "CPDR", "INDR", "OTDR"},
	}
)

// decoder walks one instruction. In index mode (xy set) every reference
// to HL, H, L or (HL) becomes IX/IY, IXH/IXL or (IX+d); an opcode that
// makes no such reference leaves the prefix acting on its own.
type decoder struct {
	src []byte
	pc  uint16
	n   int

	xy      string
	disp    int8
	hasDisp bool
	usesHL  bool
}

func (d *decoder) next() uint8 {
	var v uint8
	if d.n < len(d.src) {
		v = d.src[d.n]
	}
	d.n++
	return v
}

func (d *decoder) bytes() []byte {
	b := make([]byte, d.n)
	copy(b, d.src)
	return b
}

func (d *decoder) imm8() string { return hex8(d.next()) }

func (d *decoder) imm16() string {
	lo := d.next()
	hi := d.next()
	return hex16(uint16(hi)<<8 | uint16(lo))
}

// rel reads a relative jump offset and returns the target address.
func (d *decoder) rel() string {
	e := int8(d.next())
	return hex16(d.pc + uint16(d.n) + uint16(e))
}

// cost picks the plain or index-prefixed timing.
func (d *decoder) cost(plain, indexed int) int {
	if d.xy != "" {
		return indexed
	}
	return plain
}

func (d *decoder) hl() string {
	d.usesHL = true
	if d.xy != "" {
		return d.xy
	}
	return "HL"
}

func (d *decoder) reg(r uint8) string {
	switch r {
	case 4, 5:
		d.usesHL = true
		if d.xy != "" {
			return d.xy + regNames[r]
		}
	case 6:
		return d.mem()
	}
	return regNames[r]
}

func (d *decoder) mem() string {
	d.usesHL = true
	if d.xy == "" {
		return "(HL)"
	}
	if !d.hasDisp {
		d.disp = int8(d.next())
		d.hasDisp = true
	}
	buf := append([]byte{'('}, d.xy...)
	if d.disp < 0 {
		buf = appendHex8(append(buf, '-'), uint8(-int(d.disp)))
	} else {
		buf = appendHex8(append(buf, '+'), uint8(d.disp))
	}
	return string(append(buf, ')'))
}

func (d *decoder) pair(p uint8) string {
	if p == 2 {
		return d.hl()
	}
	return pairNames[p]
}

func (d *decoder) pair2(p uint8) string {
	if p == 3 {
		return "AF"
	}
	return d.pair(p)
}

func isPrefix(op uint8) bool {
	return op == 0xcb || op == 0xdd || op == 0xed || op == 0xfd
}

func (d *decoder) decode() (string, int, int) {
	op := d.next()
	switch op {
	case 0xcb:
		return d.cb()
	case 0xed:
		return d.ed()
	case 0xdd, 0xfd:
		return d.index(op)
	}
	return d.base(op)
}

func (d *decoder) index(prefix uint8) (string, int, int) {
	d.xy = "IX"
	if prefix == 0xfd {
		d.xy = "IY"
	}
	op := d.next()
	if op == 0xcb {
		return d.indexCB()
	}
	if !isPrefix(op) {
		if text, t, alt := d.base(op); d.usesHL {
			return text, t, alt
		}
	}

	// The prefix costs one fetch; the rest decodes unprefixed.
	var rest []byte
	if len(d.src) > 1 {
		rest = d.src[1:]
	}
	sub := decoder{src: rest, pc: d.pc + 1}
	text, t, alt := sub.decode()
	d.n = 1 + sub.n
	if alt != 0 {
		alt += 4
	}
	return text, t + 4, alt
}

func (d *decoder) base(op uint8) (string, int, int) {
	x, y, z := op>>6, op>>3&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				return "NOP", 4, 0
			case 1:
				return "EX AF, AF'", 4, 0
			case 2:
				return "DJNZ " + d.rel(), 13, 8
			case 3:
				return "JR " + d.rel(), 12, 0
			default:
				return "JR " + condNames[y-4] + ", " + d.rel(), 12, 7
			}
		case 1:
			if q == 0 {
				return "LD " + d.pair(p) + ", " + d.imm16(), d.cost(10, 14), 0
			}
			return "ADD " + d.hl() + ", " + d.pair(p), d.cost(11, 15), 0
		case 2:
			switch y {
			case 0:
				return "LD (BC), A", 7, 0
			case 1:
				return "LD A, (BC)", 7, 0
			case 2:
				return "LD (DE), A", 7, 0
			case 3:
				return "LD A, (DE)", 7, 0
			case 4:
				return "LD (" + d.imm16() + "), " + d.hl(), d.cost(16, 20), 0
			case 5:
				return "LD " + d.hl() + ", (" + d.imm16() + ")", d.cost(16, 20), 0
			case 6:
				return "LD (" + d.imm16() + "), A", 13, 0
			default:
				return "LD A, (" + d.imm16() + ")", 13, 0
			}
		case 3:
			if q == 0 {
				return "INC " + d.pair(p), d.cost(6, 10), 0
			}
			return "DEC " + d.pair(p), d.cost(6, 10), 0
		case 4, 5:
			name := "INC "
			if z == 5 {
				name = "DEC "
			}
			if y == 6 {
				return name + d.mem(), d.cost(11, 23), 0
			}
			return name + d.reg(y), d.cost(4, 8), 0
		case 6:
			if y == 6 {
				return "LD " + d.mem() + ", " + d.imm8(), d.cost(10, 19), 0
			}
			return "LD " + d.reg(y) + ", " + d.imm8(), d.cost(7, 11), 0
		default:
			return accNames[y], 4, 0
		}

	case 1:
		switch {
		case op == 0x76:
			return "HALT", 4, 0
		case y == 6:
			// The register side of an indexed load is always the real H/L.
			return "LD " + d.mem() + ", " + regNames[z], d.cost(7, 19), 0
		case z == 6:
			return "LD " + regNames[y] + ", " + d.mem(), d.cost(7, 19), 0
		}
		return "LD " + d.reg(y) + ", " + d.reg(z), d.cost(4, 8), 0

	case 2:
		if z == 6 {
			return aluNames[y] + d.mem(), d.cost(7, 19), 0
		}
		return aluNames[y] + d.reg(z), d.cost(4, 8), 0
	}

	switch z {
	case 0:
		return "RET " + condNames[y], 11, 5
	case 1:
		if q == 0 {
			return "POP " + d.pair2(p), d.cost(10, 14), 0
		}
		switch p {
		case 0:
			return "RET", 10, 0
		case 1:
			return "EXX", 4, 0
		case 2:
			return "JP (" + d.hl() + ")", d.cost(4, 8), 0
		default:
			return "LD SP, " + d.hl(), d.cost(6, 10), 0
		}
	case 2:
		return "JP " + condNames[y] + ", " + d.imm16(), 10, 0
	case 3:
		switch y {
		case 0:
			return "JP " + d.imm16(), 10, 0
		case 2:
			return "OUT (" + d.imm8() + "), A", 11, 0
		case 3:
			return "IN A, (" + d.imm8() + ")", 11, 0
		case 4:
			return "EX (SP), " + d.hl(), d.cost(19, 23), 0
		case 5:
			return "EX DE, HL", 4, 0
		case 6:
			return "DI", 4, 0
		case 7:
			return "EI", 4, 0
		}
	case 4:
		return "CALL " + condNames[y] + ", " + d.imm16(), 17, 10
	case 5:
		if q == 0 {
			return "PUSH " + d.pair2(p), d.cost(11, 15), 0
		}
		if p == 0 {
			return "CALL " + d.imm16(), 17, 0
		}
	case 6:
		return aluNames[y] + d.imm8(), 7, 0
	case 7:
		return "RST " + hex8(y*8), 11, 0
	}
	// Prefix bytes never reach here; decode dispatches them first.
	return "DB " + hex8(op), 4, 0
}

func (d *decoder) cb() (string, int, int) {
	op := d.next()
	x, y, z := op>>6, op>>3&7, op&7
	target, t := regNames[z], 8
	if z == 6 {
		t = 15
		if x == 1 {
			t = 12
		}
	}
	switch x {
	case 0:
		return rotNames[y] + " " + target, t, 0
	case 1:
		return "BIT " + string('0'+rune(y)) + ", " + target, t, 0
	case 2:
		return "RES " + string('0'+rune(y)) + ", " + target, t, 0
	}
	return "SET " + string('0'+rune(y)) + ", " + target, t, 0
}

// indexCB decodes DD CB d op / FD CB d op. Every form except BIT also
// copies the result into the register named by z when z != 6.
func (d *decoder) indexCB() (string, int, int) {
	mem := d.mem()
	op := d.next()
	x, y, z := op>>6, op>>3&7, op&7
	var text string
	switch x {
	case 0:
		text = rotNames[y] + " " + mem
	case 1:
		return "BIT " + string('0'+rune(y)) + ", " + mem, 20, 0
	case 2:
		text = "RES " + string('0'+rune(y)) + ", " + mem
	default:
		text = "SET " + string('0'+rune(y)) + ", " + mem
	}
	if z != 6 {
		text = "LD " + regNames[z] + ", " + text
	}
	return text, 23, 0
}

func (d *decoder) ed() (string, int, int) {
	op := d.next()
	x, y, z := op>>6, op>>3&7, op&7
	p, q := y>>1, y&1

	switch {
	case x == 1:
		switch z {
		case 0:
			if y == 6 {
				return "IN (C)", 12, 0
			}
			return "IN " + regNames[y] + ", (C)", 12, 0
		case 1:
			if y == 6 {
				return "OUT (C), 0", 12, 0
			}
			return "OUT (C), " + regNames[y], 12, 0
		case 2:
			if q == 0 {
				return "SBC HL, " + pairNames[p], 15, 0
			}
			return "ADC HL, " + pairNames[p], 15, 0
		case 3:
			if q == 0 {
				return "LD (" + d.imm16() + "), " + pairNames[p], 20, 0
			}
			return "LD " + pairNames[p] + ", (" + d.imm16() + ")", 20, 0
		case 4:
			return "NEG", 8, 0
		case 5:
			if y == 1 {
				return "RETI", 14, 0
			}
			return "RETN", 14, 0
		case 6:
			return "IM " + imNames[y], 8, 0
		default:
			switch {
			case y < 4:
				return edSpecial[y], 9, 0
			case y < 6:
				return edSpecial[y], 18, 0
			}
		}
	case x == 2 && z <= 3 && y >= 4:
		name := blockNames[y-4][z]
		if y >= 6 {
			return name, 21, 16
		}
		return name, 16, 0
	}
	return "DB 0EDh, " + hex8(op), 8, 0
}
