package dlog

// Wrap a console writer to buffer writes, yet flush in a timely,
// deterministic fashion, either buffering up to n bytes, or for up to t
// milliseconds, whichever comes first.

import (
	"bufio"
	"io"
	"sync"
	"time"
)

type BufferedConsole struct {
	mu               sync.Mutex
	wr               io.Writer
	bufferSize       int
	maxFlushInterval time.Duration
	baseWr           io.Writer
	stop             chan struct{}
}

// A bufferSize of zero disables buffering and writes go straight to base.
// A maxFlushInterval of zero disables the periodic flush, so buffered data
// is only written when the buffer fills or Flush is called.
func NewBufferedConsole(
	base io.Writer,
	bufferSize int,
	maxFlushInterval time.Duration) *BufferedConsole {

	return &BufferedConsole{
		baseWr:           base,
		bufferSize:       bufferSize,
		maxFlushInterval: maxFlushInterval,
		stop:             make(chan struct{}),
	}
}

func (cb *BufferedConsole) Flush() error {
	type flusher interface {
		Flush() error
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if fwr, ok := cb.wr.(flusher); ok {
		return fwr.Flush()
	}
	return nil
}

func (cb *BufferedConsole) Sync() error {
	type syncer interface {
		Sync() error
	}
	if err := cb.Flush(); err != nil {
		return err
	}
	if swr, ok := cb.baseWr.(syncer); ok {
		return swr.Sync()
	}
	return nil
}

// Flushes and stops the flush daemon.  Writes after Close still work but
// are only flushed explicitly.
func (cb *BufferedConsole) Close() error {
	cb.mu.Lock()
	select {
	case <-cb.stop:
	default:
		close(cb.stop)
	}
	cb.mu.Unlock()
	return cb.Flush()
}

func (cb *BufferedConsole) flushDaemon() {
	// Try to guarantee that we flush at least every maxFlushInterval.
	// This can result in a single extra queued flush if the underlying
	// writer takes longer than maxFlushInterval.
	ticker := time.NewTicker(cb.maxFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = cb.Flush() // Ignore error.
		case <-cb.stop:
			return
		}
	}
}

func (cb *BufferedConsole) Write(b []byte) (n int, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.wr == nil {
		if cb.bufferSize <= 0 {
			return cb.baseWr.Write(b)
		}
		cb.wr = bufio.NewWriterSize(cb.baseWr, cb.bufferSize)
		if cb.maxFlushInterval > 0 {
			go cb.flushDaemon()
		}
	}
	return cb.wr.Write(b)
}
