package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4, 0)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0, 0)
	defer pool.Close()

	if want := runtime.GOMAXPROCS(0); pool.Workers() != want {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), want)
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(4, 64)
	defer pool.Close()

	var counter atomic.Int64
	const numTasks = 40
	for range numTasks {
		if !pool.Submit(func() { counter.Add(1) }) {
			t.Fatal("Submit() = false with spare capacity")
		}
	}
	pool.Flush()

	if counter.Load() != numTasks {
		t.Errorf("counter = %d, want %d", counter.Load(), numTasks)
	}
}

func TestWorkerPool_SubmitNil(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Close()

	if pool.Submit(nil) {
		t.Error("Submit(nil) = true, want false")
	}
}

func TestWorkerPool_SubmitNeverBlocks(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(func() {
		close(started)
		<-release
	})
	<-started

	// One slot in the queue, the worker is busy: the second extra item drops.
	done := make(chan struct{})
	go func() {
		pool.Submit(func() {})
		pool.Submit(func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	close(release)
	pool.Flush()

	if pool.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", pool.Dropped())
	}
}

func TestWorkerPool_CloseRunsQueued(t *testing.T) {
	pool := NewWorkerPool(2, 16)

	var counter atomic.Int64
	for range 10 {
		pool.Submit(func() { counter.Add(1) })
	}
	pool.Close()

	if counter.Load() != 10 {
		t.Errorf("counter = %d after Close, want 10", counter.Load())
	}
	if pool.IsRunning() {
		t.Error("IsRunning() = true after Close")
	}
	if pool.Submit(func() {}) {
		t.Error("Submit() after Close = true, want false")
	}

	// Idempotent.
	pool.Close()
}

func TestWorkerPool_ConcurrentSubmit(t *testing.T) {
	pool := NewWorkerPool(4, 256)
	defer pool.Close()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				pool.Submit(func() { counter.Add(1) })
			}
		}()
	}
	wg.Wait()
	pool.Flush()

	if got := counter.Load() + int64(pool.Dropped()); got != 160 {
		t.Errorf("executed+dropped = %d, want 160", got)
	}
}
