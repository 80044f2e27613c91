package runner

import (
	"context"
	"sync"
)

// Pool bounds how many jobs execute at once using a semaphore.
// Submit blocks while the pool is full, so enqueue order is admission
// order.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

func (p *Pool) Submit(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
		p.wg.Add(1)
		go func() {
			defer func() {
				<-p.sem
				p.wg.Done()
			}()
			fn()
		}()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Wait() {
	p.wg.Wait()
}
