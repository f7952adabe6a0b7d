package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/tsrefs/domain"
)

// Default values for parallel executor
const (
	DefaultTimeout = 5 * time.Minute
)

// Job is one unit of work run by the ParallelExecutor
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskError represents a single job failure
type TaskError struct {
	TaskName string
	Err      error
}

// Error implements the error interface
func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

// Unwrap returns the underlying error
func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError collects all job failures
type AggregatedError struct {
	Errors []TaskError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d tasks failed:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap returns the first error for errors.Is/As compatibility
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// ParallelExecutor runs independent jobs with bounded concurrency. A failing
// job does not stop the others; all failures are reported together.
type ParallelExecutor struct {
	maxConcurrency int
	timeout        time.Duration
	progress       domain.TaskProgress
	mu             sync.RWMutex
}

// NewParallelExecutor creates an executor running up to workers jobs at a
// time. Zero or negative workers means runtime.NumCPU().
func NewParallelExecutor(workers int) *ParallelExecutor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ParallelExecutor{
		maxConcurrency: workers,
		timeout:        DefaultTimeout,
	}
}

// WithProgress reports every finished job to task
func (e *ParallelExecutor) WithProgress(task domain.TaskProgress) *ParallelExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = task
	return e
}

// Execute runs jobs and waits for all of them
func (e *ParallelExecutor) Execute(ctx context.Context, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}

	e.mu.RLock()
	maxConcurrency := e.maxConcurrency
	timeout := e.timeout
	task := e.progress
	e.mu.RUnlock()
	if task == nil {
		task = &NoOpTaskProgress{}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(timeoutCtx)
	g.SetLimit(maxConcurrency)

	var errMu sync.Mutex
	var taskErrors []TaskError

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}

			err := job.Run(gCtx)
			task.Increment(1)

			if err != nil {
				errMu.Lock()
				taskErrors = append(taskErrors, TaskError{TaskName: job.Name, Err: err})
				errMu.Unlock()
			}
			// errors are collected so that every job runs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(taskErrors) > 0 {
		return &AggregatedError{Errors: taskErrors}
	}
	return nil
}

// SetMaxConcurrency sets the maximum number of concurrent jobs
func (e *ParallelExecutor) SetMaxConcurrency(max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if max > 0 {
		e.maxConcurrency = max
	}
}

// SetTimeout sets the timeout for all jobs
func (e *ParallelExecutor) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if timeout > 0 {
		e.timeout = timeout
	}
}
