package cinterop

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nersc/instbench/benchmark"
	"github.com/nersc/instbench/dlog"
	"github.com/nersc/instbench/wire"
)

func pipeClient(t *testing.T, d *benchmark.Dispatcher) (*Client, *errgroup.Group) {
	serverConn, clientConn := net.Pipe()
	var g errgroup.Group
	g.Go(func() error {
		defer serverConn.Close()
		return ServeMatmul(serverConn, serverConn, d)
	})
	return NewClient(clientConn, clientConn), &g
}

func TestServeMatmul(t *testing.T) {
	client, g := pipeClient(t, benchmark.NewDispatcher(benchmark.DispatcherParams{}))

	resp, err := client.Matmul(wire.Request{Language: "CXX", Size: 4, IEntry: 16, NItr: 2})
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	require.Empty(t, resp.Diagnostic)
	require.NoError(t, resp.Data.Validate())
	require.Equal(t, []int64{2, 8, 32}, resp.Data.InstCount())

	resp, err = client.Matmul(wire.Request{Language: "c", Size: 4, IEntry: 1, NItr: 1})
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	require.Equal(t, []int64{1}, resp.Data.InstCount())

	require.NoError(t, client.Close())
	require.NoError(t, g.Wait())
}

func TestServeMatmulInvalidLanguage(t *testing.T) {
	client, g := pipeClient(t, benchmark.NewDispatcher(benchmark.DispatcherParams{}))

	resp, err := client.Matmul(wire.Request{Language: "Fortran", Size: 4, IEntry: 16, NItr: 1})
	require.NoError(t, err)
	require.Nil(t, resp.Data)
	require.Equal(t, "Invalid language: Fortran. Valid options: c, cxx\n", resp.Diagnostic)

	// The connection survives a rejected request.
	resp, err = client.Matmul(wire.Request{Language: "c", Size: 2, IEntry: 0, NItr: 1})
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	require.EqualValues(t, 0, resp.Data.Entries())

	require.NoError(t, client.Close())
	require.NoError(t, g.Wait())
}

func TestServeMatmulMalformedRequest(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	var g errgroup.Group
	g.Go(func() error {
		defer serverConn.Close()
		return ServeMatmul(serverConn, serverConn, benchmark.NewDispatcher(benchmark.DispatcherParams{}))
	})

	g.Go(func() error {
		return wire.WriteFrame(clientConn, []byte{0xff})
	})
	msg, err := wire.ReadFrame(bufio.NewReader(clientConn))
	require.NoError(t, err)

	var resp wire.Response
	require.NoError(t, resp.Unmarshal(msg))
	require.Nil(t, resp.Data)
	require.True(t, strings.HasPrefix(resp.Diagnostic, "malformed request: "), resp.Diagnostic)

	require.NoError(t, clientConn.Close())
	require.NoError(t, g.Wait())
}

func TestReadAnnouncement(t *testing.T) {
	token := strings.Repeat("ab", tokenSize)
	r := bufio.NewReader(strings.NewReader(Header + "\n/tmp/x.sock\n" + token + "\n"))
	path, tok, err := ReadAnnouncement(r)
	require.NoError(t, err)
	require.Equal(t, "/tmp/x.sock", path)
	require.Equal(t, token, string(tok))

	_, _, err = ReadAnnouncement(bufio.NewReader(strings.NewReader("other-v2\n/tmp/x.sock\n" + token + "\n")))
	require.Error(t, err)

	_, _, err = ReadAnnouncement(bufio.NewReader(strings.NewReader(Header + "\n/tmp/x.sock\nabc\n")))
	require.Error(t, err)

	_, _, err = ReadAnnouncement(bufio.NewReader(strings.NewReader(Header + "\n")))
	require.Error(t, err)
}

func TestStartServer(t *testing.T) {
	dir, err := os.MkdirTemp("", "ib")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	announceR, announceW := io.Pipe()
	d := benchmark.NewDispatcher(benchmark.DispatcherParams{})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer announceW.Close()
		return StartServer(ctx, ServerParams{
			SocketDir: dir,
			Announce:  announceW,
		}, MatmulProcessor(d, zerolog.Nop()))
	})

	path, token, err := ReadAnnouncement(bufio.NewReader(announceR))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, dir))

	client, err := Dial(path, token)
	require.NoError(t, err)
	resp, err := client.Matmul(wire.Request{Language: "cxx", Size: 3, IEntry: 3, NItr: 1})
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	require.Equal(t, []int64{1, 3}, resp.Data.InstCount())
	require.NoError(t, client.Close())

	// A client with the wrong token is dropped without a response.
	bad, err := Dial(path, []byte(strings.Repeat("0", 2*tokenSize)))
	require.NoError(t, err)
	_, err = bad.Matmul(wire.Request{Language: "c", Size: 2, IEntry: 1, NItr: 1})
	require.Error(t, err)
	require.NoError(t, bad.Close())

	cancel()
	require.NoError(t, g.Wait())

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestStartServerStdin(t *testing.T) {
	dir, err := os.MkdirTemp("", "ib")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	d := benchmark.NewDispatcher(benchmark.DispatcherParams{})

	var g errgroup.Group
	g.Go(func() error {
		defer stdoutW.Close()
		return StartServer(context.Background(), ServerParams{
			SocketDir: dir,
			Announce:  io.Discard,
			Stdin:     stdinR,
			Stdout:    stdoutW,
		}, MatmulProcessor(d, zerolog.Nop()))
	})

	client := NewClient(stdoutR, stdinW)
	resp, err := client.Matmul(wire.Request{Language: "c", Size: 2, IEntry: 2, NItr: 1})
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	require.Equal(t, []int64{1, 2}, resp.Data.InstCount())

	// Closing stdin shuts the server down.
	require.NoError(t, client.Close())
	require.NoError(t, g.Wait())
}

func TestServeMaxConnections(t *testing.T) {
	dir, err := os.MkdirTemp("", "ib")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := dir + "/s.sock"
	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	token := []byte(strings.Repeat("7", 2*tokenSize))

	ctx, cancel := context.WithCancel(context.Background())
	d := benchmark.NewDispatcher(benchmark.DispatcherParams{})
	var g errgroup.Group
	g.Go(func() error {
		return Serve(ctx, l, token, 1, MatmulProcessor(d, zerolog.Nop()), zerolog.Nop())
	})

	req := wire.Request{Language: "c", Size: 2, IEntry: 1, NItr: 1}
	first, err := Dial(path, token)
	require.NoError(t, err)
	_, err = first.Matmul(req)
	require.NoError(t, err)

	second, err := Dial(path, token)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, err := second.Matmul(req)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("second connection served while the first is open")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("second connection never served")
	}
	require.NoError(t, second.Close())

	cancel()
	require.NoError(t, g.Wait())
}

func TestStreamErrorsStayOutOfCaptures(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)
	process := MatmulProcessor(
		benchmark.NewDispatcher(benchmark.DispatcherParams{}), logger)

	// A frame announcing 1 byte but carrying none: the stream fails while
	// some other request holds the capture.
	stdout, stderr := dlog.Capture(func() {
		process(bytes.NewReader([]byte{10, 1, 2}), io.Discard)
	})
	require.Empty(t, stdout)
	require.Empty(t, stderr)
	require.Contains(t, logBuf.String(), "reading frame body")
	require.Contains(t, logBuf.String(), "cinterop stream failed")
}

func TestServeWaitsForHandlers(t *testing.T) {
	dir, err := os.MkdirTemp("", "ib")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := dir + "/s.sock"
	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	token := []byte(strings.Repeat("5", 2*tokenSize))

	started := make(chan struct{})
	release := make(chan struct{})
	process := func(r io.Reader, w io.Writer) {
		close(started)
		<-release
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- Serve(ctx, l, token, 0, process, zerolog.Nop())
	}()

	client, err := Dial(path, token)
	require.NoError(t, err)
	defer client.Close()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}

	cancel()
	select {
	case <-served:
		t.Fatal("Serve returned while a handler was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the handler finished")
	}
}
