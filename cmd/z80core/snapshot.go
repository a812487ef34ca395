package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/oisee/z80core/pkg/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and convert snapshot files",
	}

	infoCmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Print the registers and clock stored in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := snapshot.LoadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version %d, %d bytes of memory, %d breakpoints, %d T-states\n",
				f.Version, len(f.Memory), len(f.Breakpoints), f.Tstates)
			fmt.Fprintln(out, formatState(f.State))
			fmt.Fprintln(out, formatAlternates(f.State))
			return nil
		},
	}

	var format string
	convertCmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Re-encode a snapshot (format from --format or the output extension)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := snapshot.LoadFile(args[0])
			if err != nil {
				return err
			}
			fm, err := snapshotFormat(format, args[1])
			if err != nil {
				return err
			}
			if err := snapshot.SaveFile(args[1], f, fm); err != nil {
				return err
			}
			slog.Info("snapshot converted", slog.String("in", args[0]), slog.String("out", args[1]), slog.String("format", fm.String()))
			return nil
		},
	}
	convertCmd.Flags().StringVar(&format, "format", "", "Output format (gob, json)")

	cmd.AddCommand(infoCmd, convertCmd)
	return cmd
}
