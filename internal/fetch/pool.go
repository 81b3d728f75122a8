// Package fetch provides the bounded worker pool used to load batches
// of missing catalog entities in parallel.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tidewave/coda/internal/domain"
)

const (
	// DefaultThreshold is the batch size below which no workers are
	// spawned and the batch runs in the caller's own control flow.
	DefaultThreshold = 5

	// joinTimeout bounds the wait for each worker at shutdown. A worker
	// still running afterwards is logged and left to finish on its own;
	// shutdown is best-effort, not a leak-free guarantee.
	joinTimeout = 20 * time.Second

	// cancelGrace bounds the join wait once the context is cancelled.
	// Workers drain the queue on cancellation, so only an in-flight
	// fetch can still be running.
	cancelGrace = time.Second
)

// Job is one fetch request. Payload optionally carries an in-memory
// object the fetcher can use to avoid a redundant remote read (e.g. an
// already-fetched playlist whose item list is wanted).
type Job struct {
	Kind    domain.Kind
	ID      string
	Payload interface{}
}

// Result pairs a job with its fetched value.
type Result struct {
	Job   Job
	Value interface{}
}

// Func fetches one job. Returning domain.ErrRateLimited aborts the
// remainder of the batch; any other error drops only this job.
type Func func(ctx context.Context, job Job) (interface{}, error)

// Pool runs fetch batches with bounded parallelism. Workers live only
// for the duration of one Run call.
type Pool struct {
	maxWorkers int
	threshold  int
	logger     *slog.Logger
	spawned    atomic.Int64
}

// NewPool creates a pool with at most maxWorkers parallel fetches.
func NewPool(maxWorkers int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{maxWorkers: maxWorkers, threshold: DefaultThreshold, logger: logger}
}

// WorkersSpawned returns the total number of workers started over the
// pool's lifetime.
func (p *Pool) WorkersSpawned() int {
	return int(p.spawned.Load())
}

// Run fetches all jobs and returns the successful results plus the
// number of jobs that were never attempted (batch aborted by a rate
// limit or by ctx cancellation). Jobs that were attempted and failed
// are logged and absent from the results; the caller decides whether to
// fall back to per-id fetches.
func (p *Pool) Run(ctx context.Context, jobs []Job, fn Func) ([]Result, int) {
	if len(jobs) == 0 {
		return nil, 0
	}
	if p.maxWorkers <= 1 || len(jobs) < p.threshold {
		return p.runSequential(ctx, jobs, fn)
	}
	return p.runParallel(ctx, jobs, fn)
}

// runSequential executes the batch in the caller's control flow; no
// workers are spawned.
func (p *Pool) runSequential(ctx context.Context, jobs []Job, fn Func) ([]Result, int) {
	results := make([]Result, 0, len(jobs))
	for i, job := range jobs {
		if ctx.Err() != nil {
			return results, len(jobs) - i
		}
		value, err := fn(ctx, job)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				p.logger.Warn("rate limited, aborting batch", "attempted", i+1, "skipped", len(jobs)-i-1)
				return results, len(jobs) - i - 1
			}
			p.logger.Warn("fetch failed", "kind", string(job.Kind), "id", job.ID, "error", err)
			continue
		}
		results = append(results, Result{Job: job, Value: value})
	}
	return results, 0
}

func (p *Pool) runParallel(ctx context.Context, jobs []Job, fn Func) ([]Result, int) {
	queue := make(chan Job, len(jobs))
	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	resultCh := make(chan Result, len(jobs))
	var aborted atomic.Bool
	var skipped atomic.Int64

	workers := p.maxWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	p.logger.Debug("starting fetch workers", "workers", workers, "jobs", len(jobs))

	done := make([]chan struct{}, workers)
	for i := 0; i < workers; i++ {
		done[i] = make(chan struct{})
		p.spawned.Add(1)
		go func(finished chan<- struct{}) {
			defer close(finished)
			for job := range queue {
				if aborted.Load() || ctx.Err() != nil {
					// Drain the queue without fetching; these jobs
					// stay uncached and count as skipped.
					skipped.Add(1)
					continue
				}
				value, err := fn(ctx, job)
				if err != nil {
					if errors.Is(err, domain.ErrRateLimited) {
						if aborted.CompareAndSwap(false, true) {
							p.logger.Warn("rate limited, aborting workers")
						}
						continue
					}
					p.logger.Warn("fetch failed", "kind", string(job.Kind), "id", job.ID, "error", err)
					continue
				}
				resultCh <- Result{Job: job, Value: value}
			}
		}(done[i])
	}

	for i, finished := range done {
		select {
		case <-finished:
		case <-ctx.Done():
			select {
			case <-finished:
			case <-time.After(cancelGrace):
				p.logger.Warn("worker still running after cancellation", "worker", i)
			}
		case <-time.After(joinTimeout):
			p.logger.Warn("worker still running past join timeout", "worker", i)
		}
	}

	results := make([]Result, 0, len(jobs))
	for {
		select {
		case r := <-resultCh:
			results = append(results, r)
		default:
			if n := skipped.Load(); n > 0 {
				p.logger.Warn("batch aborted", "fetched", len(results), "skipped", n)
			}
			return results, int(skipped.Load())
		}
	}
}
