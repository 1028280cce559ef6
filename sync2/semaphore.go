package sync2

import (
	"context"
	"sync"
)

// Semaphore bounds the number of concurrent holders.  A semaphore created
// with a non-positive size never blocks.
type Semaphore interface {
	// Blocks until a slot is free or ctx is done.  Returns ctx.Err() in
	// the latter case, without holding a slot.
	Acquire(ctx context.Context) error

	// Takes a slot if one is free right now.
	TryAcquire() bool

	// Frees a slot taken by Acquire or TryAcquire.
	Release()

	// Number of slots currently held.
	InUse() int
}

func NewSemaphore(size int) Semaphore {
	if size <= 0 {
		return &unboundedSemaphore{}
	}
	return &boundedSemaphore{slots: make(chan struct{}, size)}
}

type boundedSemaphore struct {
	slots chan struct{}
}

func (s *boundedSemaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *boundedSemaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *boundedSemaphore) Release() {
	select {
	case <-s.slots:
	default:
		panic("sync2: release of unacquired semaphore")
	}
}

func (s *boundedSemaphore) InUse() int {
	return len(s.slots)
}

type unboundedSemaphore struct {
	mu    sync.Mutex
	inUse int
}

func (s *unboundedSemaphore) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.TryAcquire()
	return nil
}

func (s *unboundedSemaphore) TryAcquire() bool {
	s.mu.Lock()
	s.inUse++
	s.mu.Unlock()
	return true
}

func (s *unboundedSemaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inUse == 0 {
		panic("sync2: release of unacquired semaphore")
	}
	s.inUse--
}

func (s *unboundedSemaphore) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inUse
}
