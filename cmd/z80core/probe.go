package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/probe"
)

func newProbeCmd() *cobra.Command {
	var org, entry, sp addr
	var im, stackDepth, workers int
	var budget int64
	var stopAt addrList

	cmd := &cobra.Command{
		Use:   "probe <image>...",
		Short: "Run images to a stop address and report launch registers and stack",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(stopAt) == 0 {
				return errors.New("probe needs at least one --stop-at address")
			}
			if im < 0 || im > 2 {
				return fmt.Errorf("--im %d: want 0, 1 or 2", im)
			}
			cfg := probe.Config{
				Org:        uint16(org),
				Entry:      uint16(entry),
				HasEntry:   cmd.Flags().Changed("entry"),
				SP:         uint16(sp),
				IM:         cpu.IntMode(im),
				Budget:     budget,
				StopAt:     stopAt,
				StackDepth: stackDepth,
			}
			tasks := make([]probe.Task, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				tasks = append(tasks, probe.Task{Name: filepath.Base(path), Image: data, Config: cfg})
			}

			pool := probe.NewWorkerPool(workers)
			if _, err := pool.RunTasks(cmd.Context(), tasks); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range pool.Results.Reports() {
				fmt.Fprintln(out, formatReport(r))
			}
			completed, exhausted := pool.Stats()
			fmt.Fprintf(out, "%d probed, %d stopped, %d exhausted\n", completed, completed-exhausted, exhausted)
			return nil
		},
	}
	cmd.Flags().Var(&org, "org", "Load address of each image")
	cmd.Flags().Var(&entry, "entry", "Start address (defaults to --org)")
	cmd.Flags().Var(&sp, "sp", "Initial stack pointer")
	cmd.Flags().IntVar(&im, "im", 0, "Interrupt mode (0, 1, 2)")
	cmd.Flags().Int64Var(&budget, "tstates", probe.DefaultBudget, "T-state budget per image")
	cmd.Flags().Var(&stopAt, "stop-at", "Stop address (repeatable)")
	cmd.Flags().IntVar(&stackDepth, "stack-depth", probe.DefaultStackDepth, "Stack words to report")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel probes (0 = NumCPU)")
	return cmd
}

func formatReport(r probe.Report) string {
	var b strings.Builder
	if r.Stopped() {
		fmt.Fprintf(&b, "%s: stopped at %04X after %d T-states, %d instructions\n", r.Name, r.StopPC, r.Tstates, r.Instructions)
	} else {
		fmt.Fprintf(&b, "%s: %v at %04X after %d T-states\n", r.Name, r.Err, r.StopPC, r.Tstates)
	}
	fmt.Fprintf(&b, "  %s\n  stack:", formatState(r.State))
	for i, w := range r.Stack {
		fmt.Fprintf(&b, " +%d=%04X", 2*i, w)
	}
	return b.String()
}
