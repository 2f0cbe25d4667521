package utils

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParallelTask is one independent unit of work. It writes its own result
// through a closure.
type ParallelTask func(ctx context.Context) error

// RunParallelTasks executes tasks concurrently and returns the first error.
// The context handed to the tasks is cancelled as soon as one fails.
func RunParallelTasks(ctx context.Context, tasks ...ParallelTask) error {
	return RunParallelTasksLimit(ctx, -1, tasks...)
}

// RunParallelTasksLimit is RunParallelTasks with at most limit tasks in
// flight. A negative limit means no limit.
func RunParallelTasksLimit(ctx context.Context, limit int, tasks ...ParallelTask) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, task := range tasks {
		task := task
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}
