package sync2

import (
	"context"
	"testing"
	"time"

	. "gopkg.in/check.v1"

	. "github.com/nersc/instbench/gocheck2"
)

func Test(t *testing.T) {
	TestingT(t)
}

type SemaphoreSuite struct {
}

var _ = Suite(&SemaphoreSuite{})

func (suite *SemaphoreSuite) TestNonBlockedAcquire(c *C) {
	s := NewSemaphore(3)
	for i := 0; i < 3; i++ {
		c.Assert(s.Acquire(context.Background()), IsNil)
	}
	c.Assert(s.InUse(), Equals, 3)
	c.Assert(s.TryAcquire(), IsFalse)
	s.Release()
	c.Assert(s.TryAcquire(), IsTrue)
}

func (suite *SemaphoreSuite) TestBlockedAcquire(c *C) {
	s := NewSemaphore(1)
	c.Assert(s.TryAcquire(), IsTrue)

	done := make(chan error)
	go func() {
		done <- s.Acquire(context.Background())
	}()

	select {
	case <-done:
		c.Fatal("acquired a full semaphore")
	case <-time.After(10 * time.Millisecond):
	}

	s.Release()
	select {
	case err := <-done:
		c.Assert(err, IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("waiter was not woken")
	}
	c.Assert(s.InUse(), Equals, 1)
}

func (suite *SemaphoreSuite) TestAcquireCanceled(c *C) {
	s := NewSemaphore(1)
	c.Assert(s.TryAcquire(), IsTrue)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c.Assert(s.Acquire(ctx), Equals, context.DeadlineExceeded)
	c.Assert(s.InUse(), Equals, 1)
}

func (suite *SemaphoreSuite) TestUnbounded(c *C) {
	s := NewSemaphore(0)
	for i := 0; i < 100; i++ {
		c.Assert(s.TryAcquire(), IsTrue)
	}
	c.Assert(s.InUse(), Equals, 100)
	s.Release()
	c.Assert(s.InUse(), Equals, 99)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Assert(s.Acquire(ctx), Equals, context.Canceled)
}

func (suite *SemaphoreSuite) TestReleaseUnacquired(c *C) {
	c.Assert(func() { NewSemaphore(2).Release() }, PanicMatches, ".*unacquired.*")
	c.Assert(func() { NewSemaphore(0).Release() }, PanicMatches, ".*unacquired.*")
}
