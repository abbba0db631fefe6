// Package tracenetutil provides a batch runner for executing many
// independent Processors, all rooted at the same read-only network, in
// parallel. It follows the shape of the teacher's Compiler/executor split
// in compiler.go: a fixed-size semaphore bounds concurrency, each job runs
// in its own goroutine, and results are collected through a slice of
// per-job ready channels rather than a single fan-in channel, so that
// results can be returned to the caller in the same order jobs were
// submitted.
//
// Unlike the teacher's executor, jobs here have no cross-job dependencies
// (no job ever needs another job's result to proceed), so there is no
// dependency-cycle detection and no need to release a permit early while
// waiting on peers.
package tracenetutil

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/tracenet/tracenet"
	"github.com/tracenet/tracenet/graph"
	"github.com/tracenet/tracenet/reporter"
)

// Job describes one traversal to run: the input, the range of it to
// consume, and the entry point into the shared network.
type Job[I any] struct {
	Entry *graph.Node[I]
	Input I
	Begin int
	End   int
}

// Result is the outcome of one Job.
type Result[I any] struct {
	// Traces holds every accepted path the job's Processor recorded. Each
	// job gets its own Processor, which the Batch never resets or reuses,
	// so these Trace handles stay valid after Run returns.
	Traces []tracenet.Trace[I]
	// Iterations is the number of inner-loop iterations (States pulled
	// from the queue) Run() took.
	Iterations int
	Err        error
}

// Batch runs a fixed pool of Jobs against a shared, read-only network. The
// zero value is not usable; construct with NewBatch.
type Batch[I any] struct {
	maxParallelism int
	poolCapacity   int
	observer       reporter.Observer
}

// NewBatch constructs a Batch. maxParallelism bounds the number of
// Processors running concurrently; if zero or negative,
// min(runtime.NumCPU(), runtime.GOMAXPROCS(-1)) is used, mirroring the
// teacher's Compiler.MaxParallelism default in compiler.go.
func NewBatch[I any](maxParallelism int) *Batch[I] {
	if maxParallelism <= 0 {
		maxParallelism = runtime.GOMAXPROCS(-1)
		if cpus := runtime.NumCPU(); cpus < maxParallelism {
			maxParallelism = cpus
		}
	}
	return &Batch[I]{maxParallelism: maxParallelism, observer: reporter.Nop}
}

// WithPoolCapacity overrides the state-arena capacity
// (Processor.StatePoolCapacity) every Processor in the batch is constructed
// with; zero leaves the Processor's own default. The context arena always
// keeps its default capacity.
func (b *Batch[I]) WithPoolCapacity(capacity int) *Batch[I] {
	b.poolCapacity = capacity
	return b
}

// WithObserver attaches an Observer every Processor in the batch notifies.
// A single Observer implementation may be called concurrently from many
// job goroutines and must be safe for that.
func (b *Batch[I]) WithObserver(o reporter.Observer) *Batch[I] {
	if o != nil {
		b.observer = o
	}
	return b
}

// Run executes every Job, at most maxParallelism at a time, and returns one
// Result per Job in the same order jobs were given. If ctx is canceled,
// jobs that have not yet started are skipped and their Results carry
// ctx.Err(); jobs already running finish normally. Run returns once every
// job has either finished or been skipped.
func (b *Batch[I]) Run(ctx context.Context, jobs []Job[I]) []Result[I] {
	results := make([]Result[I], len(jobs))
	if len(jobs) == 0 {
		return results
	}

	sem := semaphore.NewWeighted(int64(b.maxParallelism))
	done := make([]chan struct{}, len(jobs))
	for i := range jobs {
		done[i] = make(chan struct{})
		go b.runJob(ctx, sem, jobs[i], &results[i], done[i])
	}
	for i := range jobs {
		<-done[i]
	}
	return results
}

func (b *Batch[I]) runJob(ctx context.Context, sem *semaphore.Weighted, job Job[I], res *Result[I], done chan struct{}) {
	defer close(done)

	if err := sem.Acquire(ctx, 1); err != nil {
		res.Err = err
		return
	}
	defer sem.Release(1)

	if ctx.Err() != nil {
		res.Err = ctx.Err()
		return
	}

	p := tracenet.New[I](job.Entry)
	if b.poolCapacity > 0 {
		p.StatePoolCapacity = b.poolCapacity
	}
	p.Observer = b.observer

	if err := p.Init(job.Input, job.Begin, job.End); err != nil {
		res.Err = err
		return
	}
	iterations, err := p.Run()
	if err != nil {
		res.Err = err
		return
	}
	res.Iterations = iterations
	res.Traces = append([]tracenet.Trace[I](nil), p.Traced()...)
}
