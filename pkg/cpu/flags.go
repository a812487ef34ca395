package cpu

// Z80 flag bit positions in the F register.
const (
	FlagC uint8 = 0x01 // Carry
	FlagN uint8 = 0x02 // Add/Subtract
	FlagP uint8 = 0x04 // Parity/Overflow
	FlagV       = FlagP // Overflow (same bit as Parity)
	Flag3 uint8 = 0x08 // Undocumented bit 3
	FlagH uint8 = 0x10 // Half-carry
	Flag5 uint8 = 0x20 // Undocumented bit 5
	FlagZ uint8 = 0x40 // Zero
	FlagS uint8 = 0x80 // Sign
)

// Combined masks used when only part of F survives an instruction.
const (
	flag53   = Flag5 | Flag3
	flagSZ   = FlagS | FlagZ
	flagSZHN = flagSZ | FlagH | FlagN
	flagSZP  = flagSZ | FlagP
	flagSZHP = flagSZP | FlagH
)

// Precomputed S, Z, 5, 3 (and optionally P) flags for every 8-bit result.
// The sub tables additionally carry N. Built once, never written afterwards.
var (
	Sz53nAddTable  [256]uint8
	Sz53pnAddTable [256]uint8
	Sz53nSubTable  [256]uint8
	Sz53pnSubTable [256]uint8
)

func init() {
	for i := 0; i < 256; i++ {
		if i > 0x7F {
			Sz53nAddTable[i] |= FlagS
		}

		// Count parity (number of 1 bits)
		j := uint8(i)
		parity := uint8(0)
		for k := 0; k < 8; k++ {
			parity ^= j & 1
			j >>= 1
		}

		Sz53nAddTable[i] |= uint8(i) & flag53
		Sz53nSubTable[i] = Sz53nAddTable[i] | FlagN

		Sz53pnAddTable[i] = Sz53nAddTable[i]
		Sz53pnSubTable[i] = Sz53nSubTable[i]
		if parity == 0 {
			Sz53pnAddTable[i] |= FlagP
			Sz53pnSubTable[i] |= FlagP
		}
	}
	// Zero flag for value 0
	Sz53nAddTable[0] |= FlagZ
	Sz53pnAddTable[0] |= FlagZ
	Sz53nSubTable[0] |= FlagZ
	Sz53pnSubTable[0] |= FlagZ
}
