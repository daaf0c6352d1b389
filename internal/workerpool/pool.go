// Package workerpool implements a fixed-size worker thread pool consuming
// opaque jobs, used by the encoder to run per-frame (and, for lookahead,
// per-picture) work items in parallel with the driver goroutine.
//
// The design follows the reference x264_threadpool_t: a run queue and a
// done queue guarded by one shared mutex, each with its own condition
// variable, with jobs matched to waiters by arg pointer identity. In place
// of an unused-job list, submission is bounded by a counting semaphore
// (golang.org/x/sync/semaphore, already part of this module's dependency
// set) sized to the worker count, so Submit blocks exactly when spec.md
// §4.3 says it should: once n jobs are in flight and no unused job slot
// remains.
package workerpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Job is a unit of work: Func is invoked with Arg by a worker goroutine;
// its return value is later delivered to the Wait call matching Arg.
//
// Arg must be a distinct value (by pointer identity where it is a pointer
// type, or by == comparability otherwise) per in-flight job — Wait matches
// completed jobs to callers by comparing Arg with ==, exactly as
// x264_threadpool_wait matches job->arg.
type Job struct {
	Func func(arg any) any
	Arg  any
	ret  any
}

// Pool is a fixed-size worker set draining a single FIFO run queue.
// Jobs are dispatched in submission order; completion order is
// unconstrained (spec.md §5).
type Pool struct {
	n   int
	sem *semaphore.Weighted

	mu      sync.Mutex
	runCond *sync.Cond
	doneCond *sync.Cond

	run  []*Job
	done []*Job

	exit bool
	wg   sync.WaitGroup
}

// New starts n worker goroutines. n must be positive.
func New(n int) *Pool {
	if n <= 0 {
		panic("workerpool: n must be positive")
	}
	p := &Pool{
		n:   n,
		sem: semaphore.NewWeighted(int64(n)),
	}
	p.runCond = sync.NewCond(&p.mu)
	p.doneCond = sync.NewCond(&p.mu)

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for !p.exit && len(p.run) == 0 {
			p.runCond.Wait()
		}
		if p.exit && len(p.run) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.run[0]
		p.run = p.run[1:]
		p.mu.Unlock()

		job.ret = job.Func(job.Arg)

		p.mu.Lock()
		p.done = append(p.done, job)
		p.doneCond.Broadcast()
		p.mu.Unlock()
	}
}

// Submit takes a job slot, queues {fn, arg} onto the run queue, and
// returns. It blocks only when all n job slots are already in flight
// (spec.md §4.3, §5). Callers must pass a distinct arg per in-flight job
// and eventually call Wait with that same arg.
func (p *Pool) Submit(ctx context.Context, fn func(arg any) any, arg any) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.mu.Lock()
	p.run = append(p.run, &Job{Func: fn, Arg: arg})
	p.runCond.Signal()
	p.mu.Unlock()
	return nil
}

// Wait blocks until a job submitted with this arg has completed, then
// returns its result and recycles the job slot (releasing the semaphore
// acquired by the matching Submit).
func (p *Pool) Wait(arg any) any {
	p.mu.Lock()
	for {
		for i, j := range p.done {
			if j.Arg == arg {
				p.done = append(p.done[:i], p.done[i+1:]...)
				p.mu.Unlock()
				ret := j.ret
				p.sem.Release(1)
				return ret
			}
		}
		p.doneCond.Wait()
	}
}

// Destroy sets the exit flag under the run-queue mutex, broadcasts so
// every worker wakes and observes it, and joins all workers. Destroy must
// only be called after all in-flight jobs have been waited on, or when it
// is safe to let workers finish their current job unobserved — there is
// no cancellation (spec.md §4.3, §5).
func (p *Pool) Destroy() {
	p.mu.Lock()
	p.exit = true
	p.runCond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
