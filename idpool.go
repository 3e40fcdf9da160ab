package perfz

import (
	"math/rand/v2"
	"sync"
)

// IDPool hands out random correlation IDs in [0, Range) from a buffer
// refilled in the background, so trace construction never waits on the
// random source.
type IDPool struct {
	source func(n int) int
	ids    chan int
	stopCh chan struct{}
	limit  int
	mu     sync.Mutex
	closed bool
}

// NewIDPool creates a pool of IDs in [0, limit) buffering up to capacity.
func NewIDPool(capacity, limit int) *IDPool {
	return newIDPoolWithSource(capacity, limit, rand.IntN)
}

func newIDPoolWithSource(capacity, limit int, source func(n int) int) *IDPool {
	pool := &IDPool{
		source: source,
		ids:    make(chan int, capacity),
		stopCh: make(chan struct{}),
		limit:  limit,
	}
	go pool.refill()
	return pool
}

// Range returns the exclusive upper bound of generated IDs.
func (p *IDPool) Range() int {
	return p.limit
}

// Get takes a buffered ID, drawing one directly when the buffer is empty.
func (p *IDPool) Get() int {
	select {
	case id := <-p.ids:
		return id
	default:
		return p.source(p.limit)
	}
}

func (p *IDPool) refill() {
	for {
		id := p.source(p.limit)
		select {
		case p.ids <- id:
		case <-p.stopCh:
			return
		}
	}
}

// Close stops the refill goroutine. Get keeps working afterwards.
func (p *IDPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}
