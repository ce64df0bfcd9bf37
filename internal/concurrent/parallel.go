package concurrent

import (
	"context"
	"sync"
)

// Result represents the result of a parallel operation
type Result[T any] struct {
	Value   T
	Error   error
	Index   int  // Original index in the input slice
	Skipped bool // True when the task never started because the context was canceled
}

// Task represents a function to be executed in parallel
type Task[T any] func(ctx context.Context) (T, error)

// ParallelExecuteWithLimit executes tasks in parallel with a concurrency limit.
// maxConcurrent specifies the maximum number of tasks running simultaneously.
// It waits for all started tasks to complete, even if some fail. Once the
// context is canceled no further task is started; tasks that never started are
// marked Skipped with the context error, while already-running tasks drain.
func ParallelExecuteWithLimit[T any](ctx context.Context, tasks []Task[T], maxConcurrent int) []Result[T] {
	if maxConcurrent <= 0 {
		maxConcurrent = len(tasks) // No limit
	}

	results := make([]Result[T], len(tasks))
	var wg sync.WaitGroup

	// Semaphore channel to limit concurrency
	semaphore := make(chan struct{}, maxConcurrent)

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t Task[T]) {
			defer wg.Done()

			// Acquire semaphore, unless the caller has already aborted
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				results[index] = Result[T]{Error: ctx.Err(), Index: index, Skipped: true}
				return
			}
			defer func() { <-semaphore }()

			// Re-check after waiting in the queue: a task that was queued
			// behind slow workers must not start after an abort
			if ctx.Err() != nil {
				results[index] = Result[T]{Error: ctx.Err(), Index: index, Skipped: true}
				return
			}

			value, err := t(ctx)
			results[index] = Result[T]{
				Value: value,
				Error: err,
				Index: index,
			}
		}(i, task)
	}

	wg.Wait()
	return results
}

// ParallelMapWithLimit executes a function on each item in parallel with a concurrency limit
func ParallelMapWithLimit[T any, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error), maxConcurrent int) []Result[R] {
	tasks := make([]Task[R], len(items))
	for i, item := range items {
		item := item // capture per-iteration value (pre-Go 1.22 loop semantics)
		tasks[i] = func(ctx context.Context) (R, error) {
			return fn(ctx, item)
		}
	}
	return ParallelExecuteWithLimit(ctx, tasks, maxConcurrent)
}

// AllErrors returns all errors from results
func AllErrors[T any](results []Result[T]) []error {
	errors := make([]error, 0)
	for _, result := range results {
		if result.Error != nil {
			errors = append(errors, result.Error)
		}
	}
	return errors
}
