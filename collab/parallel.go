package collab

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/logging"
)

// ParallelTask is one unit of a dependency-free batch. Higher priority tasks
// are dispatched first when the window is contended.
type ParallelTask struct {
	ID       string
	Name     string
	Priority core.Priority
	Run      func(ctx context.Context) (string, error)
}

// ParallelResult is the settled outcome of one batch task.
type ParallelResult struct {
	TaskID   string
	Name     string
	Output   string
	Err      error
	Duration time.Duration
}

// ParallelOptions configures RunParallel.
type ParallelOptions struct {
	// MaxConcurrency bounds the number of tasks in flight. Defaults to 3.
	MaxConcurrency int
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// RunParallel executes a batch of independent tasks through a sliding window
// of at most MaxConcurrency workers. It settles every task: one failure never
// cancels its siblings, and the returned slice holds one result per input
// task in dispatch order (priority descending, stable among equals).
//
// Context cancellation stops further dispatch; tasks not yet started settle
// with the context's error.
func RunParallel(ctx context.Context, tasks []ParallelTask, optFns ...func(o *ParallelOptions)) []ParallelResult {
	opts := ParallelOptions{
		MaxConcurrency: 3,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	ordered := make([]ParallelTask, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Weight() > ordered[j].Priority.Weight()
	})

	results := make([]ParallelResult, len(ordered))
	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))

	var wg sync.WaitGroup
	for i, task := range ordered {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Dispatch loop interrupted; settle the remainder without running.
			for j := i; j < len(ordered); j++ {
				results[j] = ParallelResult{TaskID: ordered[j].ID, Name: ordered[j].Name, Err: err}
			}
			break
		}

		wg.Add(1)
		go func(i int, task ParallelTask) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			output, err := task.Run(ctx)
			results[i] = ParallelResult{
				TaskID:   task.ID,
				Name:     task.Name,
				Output:   output,
				Err:      err,
				Duration: time.Since(start),
			}

			opts.Logger.Debug("parallel task settled", "task", task.Name, "duration", time.Since(start), "error", err)
		}(i, task)
	}

	wg.Wait()

	return results
}
