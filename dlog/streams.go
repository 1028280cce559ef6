package dlog

import (
	"bytes"
	"io"
	"os"
	"sync"
)

// Process-wide output streams.  Benchmark kernels and the dispatcher never
// hold os.Stdout / os.Stderr directly; they write through Stdout() and
// Stderr() so that a host embedding the library (see cinterop) can capture
// what they print.

type streamID int

const (
	stdoutStream streamID = iota
	stderrStream
)

var (
	streamsMu sync.RWMutex
	targets   = [2]io.Writer{os.Stdout, os.Stderr}

	// Serializes Capture so that concurrent captures cannot observe each
	// other's output.
	captureMu sync.Mutex
)

type streamWriter streamID

func (s streamWriter) Write(p []byte) (int, error) {
	streamsMu.RLock()
	w := targets[s]
	streamsMu.RUnlock()
	return w.Write(p)
}

// Returns a writer which always forwards to the current stdout target, even
// after later redirects.
func Stdout() io.Writer {
	return streamWriter(stdoutStream)
}

// Same as Stdout, for the diagnostic stream.
func Stderr() io.Writer {
	return streamWriter(stderrStream)
}

// Replaces the base diagnostic stream, e.g. with a BufferedConsole.  Returns
// the previous target.
func SetStderr(w io.Writer) io.Writer {
	streamsMu.Lock()
	defer streamsMu.Unlock()
	prev := targets[stderrStream]
	targets[stderrStream] = w
	return prev
}

// Redirect temporarily points the process streams at other writers.  A nil
// writer leaves that stream alone.  Redirects nest: Exit restores whatever
// was active at Enter.
type Redirect struct {
	stdout io.Writer
	stderr io.Writer

	prev    [2]io.Writer
	entered bool
}

func NewRedirect(stdout, stderr io.Writer) *Redirect {
	return &Redirect{stdout: stdout, stderr: stderr}
}

func (r *Redirect) Enter() {
	streamsMu.Lock()
	defer streamsMu.Unlock()
	if r.entered {
		return
	}
	r.prev = targets
	if r.stdout != nil {
		targets[stdoutStream] = r.stdout
	}
	if r.stderr != nil {
		targets[stderrStream] = r.stderr
	}
	r.entered = true
}

func (r *Redirect) Exit() {
	streamsMu.Lock()
	defer streamsMu.Unlock()
	if !r.entered {
		return
	}
	targets = r.prev
	r.entered = false
}

// Runs fn with both streams captured and returns what was written to each.
func Capture(fn func()) (stdout string, stderr string) {
	captureMu.Lock()
	defer captureMu.Unlock()

	var outBuf, errBuf bytes.Buffer
	r := NewRedirect(&outBuf, &errBuf)
	r.Enter()
	defer func() {
		r.Exit()
		stdout, stderr = outBuf.String(), errBuf.String()
	}()
	fn()
	return
}
