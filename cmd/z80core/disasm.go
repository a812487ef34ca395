package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oisee/z80core/pkg/inst"
)

func newDisasmCmd() *cobra.Command {
	var org addr
	var count int
	var timing bool

	cmd := &cobra.Command{
		Use:   "disasm <image>",
		Short: "Disassemble an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()
			seq := decodeImage(data, uint16(org), count)
			for _, in := range seq {
				fmt.Fprintln(out, formatListing(in, timing))
			}
			if timing {
				fmt.Fprintf(out, "; %d instructions, %d bytes, %d T-states\n",
					len(seq), inst.SeqByteSize(seq), inst.SeqTStates(seq))
			}
			return nil
		},
	}
	cmd.Flags().Var(&org, "org", "Address of the first byte")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Instructions to list (0 = whole image)")
	cmd.Flags().BoolVar(&timing, "timing", false, "Show T-states per instruction and totals")
	return cmd
}

// decodeImage decodes data as if loaded at org. With count 0 it stops at
// the first instruction that starts past the image; bytes past the end
// read as zero.
func decodeImage(data []byte, org uint16, count int) []inst.Instruction {
	var seq []inst.Instruction
	var buf [4]byte
	for off := 0; ; {
		if count > 0 && len(seq) == count || count <= 0 && off >= len(data) {
			return seq
		}
		for j := range buf {
			buf[j] = 0
			if off+j < len(data) {
				buf[j] = data[off+j]
			}
		}
		in := inst.Decode(buf[:], org+uint16(off))
		seq = append(seq, in)
		off += in.Len()
	}
}

// formatListing renders one listing row, optionally followed by its
// T-states ("7" or "12/7" for taken/not-taken).
func formatListing(in inst.Instruction, timing bool) string {
	l := inst.Line{Addr: in.Addr, Bytes: in.Bytes, Text: in.Mnemonic}
	if !timing {
		return l.String()
	}
	t := fmt.Sprint(in.TStates)
	if in.TStatesAlt != 0 {
		t = fmt.Sprintf("%d/%d", in.TStates, in.TStatesAlt)
	}
	return fmt.Sprintf("%-40s ; %s", l.String(), t)
}
