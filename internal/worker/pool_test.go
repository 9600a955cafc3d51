package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	pool := NewPool(4, 8)
	if pool == nil {
		t.Fatal("Expected non-nil worker pool")
	}
	if pool.workers != 4 || cap(pool.jobQueue) != 8 {
		t.Errorf("Expected 4 workers and queue of 8, got %d and %d", pool.workers, cap(pool.jobQueue))
	}
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(0, 0)
	if pool.workers <= 0 {
		t.Errorf("Expected positive default worker count, got %d", pool.workers)
	}
	if cap(pool.jobQueue) != pool.workers*2 {
		t.Errorf("Expected queue of %d, got %d", pool.workers*2, cap(pool.jobQueue))
	}
}

func TestPool_Submit(t *testing.T) {
	pool := NewPool(2, 0)
	pool.Start()
	defer pool.Close()

	var counter int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		pool.Submit(func() {
			mu.Lock()
			counter++
			mu.Unlock()
		})
	}

	pool.Wait()

	if counter != 5 {
		t.Errorf("Expected counter to be 5, got %d", counter)
	}
}

func TestPool_StartOnce(t *testing.T) {
	pool := NewPool(2, 0)

	// Start should be idempotent
	pool.Start()
	pool.Start()
	defer pool.Close()

	var executed atomic.Bool
	pool.Submit(func() {
		executed.Store(true)
	})

	pool.Wait()

	if !executed.Load() {
		t.Error("Expected job to be executed")
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	pool := NewPool(2, 0)
	pool.Start()

	var executed atomic.Bool
	if !pool.Submit(func() { executed.Store(true) }) {
		t.Fatal("Expected submit to succeed before close")
	}

	pool.Close()

	if !executed.Load() {
		t.Error("Expected queued job to run before close returns")
	}
	if pool.Submit(func() {}) {
		t.Error("Expected submit to fail after close")
	}
	if pool.TrySubmit(func() {}) {
		t.Error("Expected try-submit to fail after close")
	}

	// Closing twice is a no-op
	pool.Close()
}

func TestPool_TrySubmitFullQueue(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Start()
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})

	if !pool.TrySubmit(func() {
		close(started)
		<-release
	}) {
		t.Fatal("Expected first job to be accepted")
	}
	<-started

	if !pool.TrySubmit(func() {}) {
		t.Fatal("Expected second job to fill the queue")
	}
	if pool.TrySubmit(func() {}) {
		t.Error("Expected third job to be rejected while the queue is full")
	}

	close(release)
	pool.Wait()

	stats := pool.GetStats()
	if stats.TotalJobs != 2 || stats.CompletedJobs != 2 {
		t.Errorf("Expected 2 total and 2 completed jobs, got %+v", stats)
	}
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	pool := NewPool(1, 0)
	pool.Start()
	defer pool.Close()

	pool.Submit(func() { panic("boom") })

	var executed atomic.Bool
	pool.Submit(func() { executed.Store(true) })
	pool.Wait()

	if !executed.Load() {
		t.Error("Expected job after a panic to run")
	}
	if stats := pool.GetStats(); stats.CompletedJobs != 2 {
		t.Errorf("Expected 2 completed jobs, got %d", stats.CompletedJobs)
	}
}

func TestPool_SubmissionConsistency(t *testing.T) {
	pool := NewPool(1, 0)
	pool.Start()
	defer pool.Close()

	const numJobs = 3
	successCount := 0

	for i := 0; i < numJobs; i++ {
		if pool.Submit(func() {}) {
			successCount++
		}
	}

	pool.Wait()

	stats := pool.GetStats()
	if stats.TotalJobs != int64(successCount) {
		t.Errorf("Expected TotalJobs=%d, got %d", successCount, stats.TotalJobs)
	}
	if stats.CompletedJobs != int64(successCount) {
		t.Errorf("Expected CompletedJobs=%d, got %d", successCount, stats.CompletedJobs)
	}
	if stats.ActiveWorkers != 0 {
		t.Errorf("Expected 0 active workers, got %d", stats.ActiveWorkers)
	}
}

func TestPool_ConcurrentStatsAccess(t *testing.T) {
	pool := NewPool(2, 0)
	pool.Start()
	defer pool.Close()

	const numJobs = 20
	const numStatsReads = 10

	var wg sync.WaitGroup

	for i := 0; i < numJobs; i++ {
		pool.Submit(func() {
			time.Sleep(time.Millisecond)
		})
	}

	for i := 0; i < numStatsReads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				stats := pool.GetStats()
				if stats.ActiveWorkers < 0 || stats.ActiveWorkers > 2 {
					t.Errorf("Active workers out of range: %d", stats.ActiveWorkers)
				}
			}
		}()
	}

	wg.Wait()
	pool.Wait()

	finalStats := pool.GetStats()
	if finalStats.TotalJobs != numJobs {
		t.Errorf("Expected %d total jobs, got %d", numJobs, finalStats.TotalJobs)
	}
	if finalStats.CompletedJobs != numJobs {
		t.Errorf("Expected %d completed jobs, got %d", numJobs, finalStats.CompletedJobs)
	}
}
