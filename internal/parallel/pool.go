package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs fire-and-forget work on a fixed set of goroutines.
//
// Submission never blocks: when every queue is full the work item is
// dropped and counted. This makes the pool suitable for diagnostics that
// must not slow down the producer (render loop, cache maintenance).
//
// Each worker owns a queue. Submit places work on the shortest queue and
// idle workers steal from their neighbours, so a slow item does not stall
// the items queued behind it on other workers.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup

	// pending counts submitted items that have not finished yet.
	pending sync.WaitGroup

	running atomic.Bool
	dropped atomic.Uint64

	// closeMu orders Submit against Close so no item is queued after the
	// workers have drained and exited.
	closeMu sync.RWMutex
}

// NewWorkerPool creates a pool with the given number of workers, each with
// a queue of queueSize items. Non-positive workers selects GOMAXPROCS;
// non-positive queueSize selects 4 items per worker (minimum 8).
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = max(workers*4, 8)
	}

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(own)
			return
		case work := <-own:
			p.run(work)
			continue
		default:
		}

		if stolen := p.steal(id); stolen != nil {
			p.run(stolen)
			continue
		}

		select {
		case <-p.done:
			p.drainQueue(own)
			return
		case work := <-own:
			p.run(work)
		}
	}
}

func (p *WorkerPool) run(work func()) {
	defer p.pending.Done()
	work()
}

func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			p.run(work)
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// Submit queues fn without blocking. It reports false when the pool is
// closed or every queue is full; in the latter case the drop is counted.
func (p *WorkerPool) Submit(fn func()) bool {
	if fn == nil {
		return false
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if !p.running.Load() {
		return false
	}

	start := 0
	shortest := len(p.workQueues[0])
	for i := 1; i < p.workers; i++ {
		if n := len(p.workQueues[i]); n < shortest {
			shortest, start = n, i
		}
	}

	p.pending.Add(1)
	for k := range p.workers {
		select {
		case p.workQueues[(start+k)%p.workers] <- fn:
			return true
		default:
		}
	}
	p.pending.Done()
	p.dropped.Add(1)
	return false
}

// Flush blocks until every item submitted so far has run.
func (p *WorkerPool) Flush() {
	p.pending.Wait()
}

// Close stops accepting work, runs everything already queued and stops the
// workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.closeMu.Unlock()
		return
	}
	close(p.done)
	p.closeMu.Unlock()

	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// Dropped returns how many items were rejected because the queues were full.
func (p *WorkerPool) Dropped() uint64 {
	return p.dropped.Load()
}

// QueuedWork returns an approximate count of queued items.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
