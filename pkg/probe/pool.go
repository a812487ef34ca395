package probe

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs independent probes in parallel. Each task gets its own
// machine, so workers share nothing but the results table.
type WorkerPool struct {
	NumWorkers int
	Results    *Results
	Logger     *slog.Logger

	completed atomic.Int64
	exhausted atomic.Int64
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		NumWorkers: numWorkers,
		Results:    NewResults(),
		Logger:     slog.Default(),
	}
}

// Stats returns the number of finished runs and how many of them ran out
// of budget.
func (wp *WorkerPool) Stats() (completed, exhausted int64) {
	return wp.completed.Load(), wp.exhausted.Load()
}

// RunTasks probes every task and returns the reports in task order. The
// first hard error cancels the remaining tasks.
func (wp *WorkerPool) RunTasks(ctx context.Context, tasks []Task) ([]Report, error) {
	reports := make([]Report, len(tasks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.NumWorkers)
	for i, task := range tasks {
		g.Go(func() error {
			rep, err := Run(ctx, task)
			if err != nil {
				return err
			}
			reports[i] = rep
			wp.Results.Add(rep)
			wp.completed.Add(1)
			if !rep.Stopped() {
				wp.exhausted.Add(1)
			}
			wp.Logger.Debug("probe done",
				slog.String("name", rep.Name),
				slog.Bool("stopped", rep.Stopped()),
				slog.Int64("tstates", rep.Tstates))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
