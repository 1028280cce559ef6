package cinterop

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/sync2"
)

// First line of the announcement.
const Header = "instbench-cinterop-v1"

const tokenSize = 16

type ServerParams struct {
	// Directory for the unix socket.  Defaults to os.TempDir().
	SocketDir string

	// Receives the announcement.  Defaults to os.Stdout.
	Announce io.Writer

	// When Stdin is set, process also runs on (Stdin, Stdout) and the server
	// exits once that stream is done, like a child process whose parent
	// closed its pipe.
	Stdin  io.Reader
	Stdout io.Writer

	// Most connections served at once; further clients wait in the
	// listen backlog.  Zero means no limit.
	MaxConnections int

	// Defaults to a disabled logger.
	Logger *zerolog.Logger
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	return hex.EncodeToString(b), nil
}

func validateAndRun(
	token []byte,
	conn net.Conn,
	process func(io.Reader, io.Writer),
	logger zerolog.Logger) {

	defer conn.Close()
	test := make([]byte, len(token))
	_, err := io.ReadFull(conn, test)
	if err != nil || !bytes.Equal(token, test) {
		logger.Warn().Msg("token mismatch from new client")
		return
	}
	process(conn, conn)
}

// Runs process for every authenticated connection on l until ctx is done
// or l fails.  At most maxConns connections are served at once (zero means
// no limit).  On shutdown open connections are closed, and Serve returns
// only after every process call has returned.
func Serve(
	ctx context.Context,
	l net.Listener,
	token []byte,
	maxConns int,
	process func(io.Reader, io.Writer),
	logger zerolog.Logger) error {

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		conns = make(map[net.Conn]struct{})
	)
	defer wg.Wait()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		l.Close()
		mu.Lock()
		for conn := range conns {
			conn.Close()
		}
		conns = nil
		mu.Unlock()
	}()

	sem := sync2.NewSemaphore(maxConns)
	for {
		if err := sem.Acquire(ctx); err != nil {
			return nil
		}
		conn, err := l.Accept()
		if err != nil {
			sem.Release()
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accept")
		}

		mu.Lock()
		if conns == nil {
			// Shutting down.
			mu.Unlock()
			conn.Close()
			sem.Release()
			return nil
		}
		conns[conn] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release()
			defer func() {
				mu.Lock()
				delete(conns, conn)
				mu.Unlock()
			}()
			validateAndRun(token, conn, process, logger)
		}()
	}
}

// Listens on a fresh unix socket, announces it, and serves until ctx is
// done or the stdin stream (if any) is exhausted.
func StartServer(
	ctx context.Context,
	params ServerParams,
	process func(io.Reader, io.Writer)) error {

	logger := zerolog.Nop()
	if params.Logger != nil {
		logger = *params.Logger
	}
	dir := params.SocketDir
	if dir == "" {
		dir = os.TempDir()
	}
	announce := params.Announce
	if announce == nil {
		announce = os.Stdout
	}

	name, err := randomHex(8)
	if err != nil {
		return err
	}
	token, err := randomHex(tokenSize)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "instbench-"+name+".sock")

	l, err := net.Listen("unix", path)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", path)
	}
	defer os.Remove(path)

	_, err = fmt.Fprintf(announce, "%s\n%s\n%s\n", Header, path, token)
	if err != nil {
		l.Close()
		return errors.Wrap(err, "writing announcement")
	}
	logger.Info().Str("socket", path).Msg("cinterop server listening")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if params.Stdin != nil {
		stdout := params.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		go func() {
			process(params.Stdin, stdout)
			cancel()
		}()
	}
	return Serve(ctx, l, []byte(token), params.MaxConnections, process, logger)
}

// Parses the announcement written by StartServer.
func ReadAnnouncement(r *bufio.Reader) (path string, token []byte, err error) {
	var lines [3]string
	for i := range lines {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", nil, errors.Wrap(err, "reading announcement")
		}
		lines[i] = strings.TrimSuffix(line, "\n")
	}
	if lines[0] != Header {
		return "", nil, errors.Newf("cinterop header mismatch: %q", lines[0])
	}
	if len(lines[2]) != 2*tokenSize {
		return "", nil, errors.Newf("malformed token of length %d", len(lines[2]))
	}
	return lines[1], []byte(lines[2]), nil
}
