package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the pool size used when Options.Concurrency is unset.
const DefaultConcurrency = 5

// ErrTimeout marks an attempt that ran past Options.Timeout.
var ErrTimeout = errors.New("task timed out")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the executor does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Hooks observe task progress. They are called from worker goroutines and
// must be safe for concurrent use. Any of them may be nil.
type Hooks struct {
	OnStart   func(key string, attempt int)
	OnRetry   func(key string, attempt int, err error)
	OnSuccess func(key string, attempts int, elapsed time.Duration)
	OnFailure func(key string, attempts int, err error)
}

// Options configures an Executor.
type Options struct {
	Concurrency int
	// Timeout bounds each attempt. Zero means attempts are bounded only by
	// the context passed to Run.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first failure.
	Retries int
	Backoff Backoff
	Hooks   Hooks
	Logger  *zap.Logger
}

// Task is one unit of work. Key identifies the task in its Result.
type Task[T any] struct {
	Key string
	Fn  func(ctx context.Context) (T, error)
}

// Result is the outcome of one task after its final attempt.
type Result[T any] struct {
	Key      string
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// OK reports whether the task succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Executor runs tasks with bounded concurrency. An Executor holds no state
// between calls to Run and may be reused.
type Executor[T any] struct {
	opts Options
	log  *zap.Logger
}

// New returns an Executor configured by opts.
func New[T any](opts Options) *Executor[T] {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor[T]{opts: opts, log: log}
}

// Run executes every task and returns one Result per task in completion
// order. A failing task never cancels its siblings; cancelling ctx stops
// retries and fails tasks that have not finished.
func (e *Executor[T]) Run(ctx context.Context, tasks []Task[T]) []Result[T] {
	var (
		mu      sync.Mutex
		results = make([]Result[T], 0, len(tasks))
		g       errgroup.Group
	)
	g.SetLimit(e.opts.Concurrency)

	for _, task := range tasks {
		g.Go(func() error {
			res := e.runTask(ctx, task)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()

			if res.Err != nil {
				if h := e.opts.Hooks.OnFailure; h != nil {
					h(res.Key, res.Attempts, res.Err)
				}
			} else if h := e.opts.Hooks.OnSuccess; h != nil {
				h(res.Key, res.Attempts, res.Duration)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor[T]) runTask(ctx context.Context, task Task[T]) Result[T] {
	start := time.Now()
	res := Result[T]{Key: task.Key}
	maxAttempts := 1 + e.opts.Retries

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt
		if h := e.opts.Hooks.OnStart; h != nil {
			h(task.Key, attempt)
		}

		v, err := e.attempt(ctx, task)
		if err == nil {
			res.Value = v
			res.Err = nil
			break
		}
		res.Err = err

		if IsPermanent(err) || ctx.Err() != nil || attempt == maxAttempts {
			break
		}

		e.log.Debug("retrying task",
			zap.String("key", task.Key),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if h := e.opts.Hooks.OnRetry; h != nil {
			h(task.Key, attempt, err)
		}
		if err := sleep(ctx, e.opts.Backoff.Delay(attempt)); err != nil {
			res.Err = err
			break
		}
	}
	res.Duration = time.Since(start)
	return res
}

// attempt runs task once under its own deadline. A task that ignores its
// context is abandoned when the deadline passes; its result is discarded.
func (e *Executor[T]) attempt(ctx context.Context, task Task[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	actx, cancel := ctx, context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := task.Fn(actx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s: %w", ErrTimeout, e.opts.Timeout, out.err)
		}
		return out.v, out.err
	case <-actx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, e.opts.Timeout)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Failures returns the failed results.
func Failures[T any](results []Result[T]) []Result[T] {
	var out []Result[T]
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// FailureSummary renders one line per failed task, sorted by key.
func FailureSummary[T any](results []Result[T]) []string {
	failed := Failures(results)
	sort.Slice(failed, func(a, b int) bool { return failed[a].Key < failed[b].Key })
	lines := make([]string, 0, len(failed))
	for _, r := range failed {
		lines = append(lines, fmt.Sprintf("%s: failed after %d attempt(s): %v", r.Key, r.Attempts, r.Err))
	}
	return lines
}
