package machine

// Contention returns the wait states inserted before an access to addr
// starting at T-state now.
type Contention interface {
	Delay(addr uint16, now int64) int
}

// RangeContention delays every access inside [Start, End] by a pattern
// that repeats every len(Pattern) T-states, indexed by the current
// T-state. An empty pattern means no delay.
type RangeContention struct {
	Start, End uint16
	Pattern    []int
}

func (c RangeContention) Delay(addr uint16, now int64) int {
	if addr < c.Start || addr > c.End || len(c.Pattern) == 0 {
		return 0
	}
	return c.Pattern[int(now%int64(len(c.Pattern)))]
}

// ULAPattern is the 6,5,4,3,2,1,0,0 delay sequence of the 48K ULA,
// contending 4000h-7FFFh.
func ULAPattern() RangeContention {
	return RangeContention{Start: 0x4000, End: 0x7fff, Pattern: []int{6, 5, 4, 3, 2, 1, 0, 0}}
}
