package worker

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/anime-shed/image-gallery-go/internal/logger"

	"github.com/sirupsen/logrus"
)

// Stats is a snapshot of pool activity
type Stats struct {
	TotalJobs     int64
	CompletedJobs int64
	ActiveWorkers int64
	QueuedJobs    int
}

// Pool runs submitted jobs on a fixed set of goroutines
type Pool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup // outstanding jobs
	workerWG sync.WaitGroup // running workers
	once     sync.Once

	mu     sync.RWMutex
	closed bool

	totalJobs     atomic.Int64
	completedJobs atomic.Int64
	activeWorkers atomic.Int64
}

// NewPool creates a pool with the given number of workers and queue capacity.
// Non-positive values default to the CPU count and twice the worker count.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	return &Pool{
		workers:  workers,
		jobQueue: make(chan func(), queueSize),
	}
}

// Start initializes and starts all workers in the pool
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.workerWG.Add(1)
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	defer p.workerWG.Done()
	for job := range p.jobQueue {
		p.run(job)
	}
}

func (p *Pool) run(job func()) {
	p.activeWorkers.Add(1)
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{"panic": r}).Error("Worker job panicked")
		}
		p.activeWorkers.Add(-1)
		p.completedJobs.Add(1)
		p.wg.Done()
	}()
	job()
}

// Submit queues a job, blocking while the queue is full. It returns false
// once the pool is closed.
func (p *Pool) Submit(job func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	p.wg.Add(1)
	p.totalJobs.Add(1)
	p.jobQueue <- job
	return true
}

// TrySubmit queues a job without blocking. It returns false when the pool
// is closed or the queue is full.
func (p *Pool) TrySubmit(job func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	p.wg.Add(1)
	select {
	case p.jobQueue <- job:
		p.totalJobs.Add(1)
		return true
	default:
		p.wg.Done()
		return false
	}
}

// Wait waits for all submitted jobs to complete
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close stops accepting jobs and waits for queued ones to finish
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.Start()
	p.workerWG.Wait()
}

// GetStats returns current counters
func (p *Pool) GetStats() Stats {
	return Stats{
		TotalJobs:     p.totalJobs.Load(),
		CompletedJobs: p.completedJobs.Load(),
		ActiveWorkers: p.activeWorkers.Load(),
		QueuedJobs:    len(p.jobQueue),
	}
}
