package cinterop

import (
	"bufio"
	"io"

	"github.com/rs/zerolog"

	"github.com/nersc/instbench/benchmark"
	"github.com/nersc/instbench/dlog"
	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/instrument"
	"github.com/nersc/instbench/wire"
)

// Answers framed matmul requests from r on w until r is exhausted.  Each
// request runs with the process streams captured, so whatever the
// benchmark prints travels back in the response.  Captures are serialized
// process wide, so concurrent connections take turns.
func ServeMatmul(r io.Reader, w io.Writer, d *benchmark.Dispatcher) error {
	br := bufio.NewReader(r)
	for {
		msg, err := wire.ReadFrame(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var resp wire.Response
		var req wire.Request
		if err := req.Unmarshal(msg); err != nil {
			resp.Diagnostic = "malformed request: " + errors.GetMessage(err) + "\n"
		} else {
			var data *instrument.RuntimeData
			resp.Output, resp.Diagnostic = dlog.Capture(func() {
				data = d.Do(benchmark.Request{
					Language: req.Language,
					Size:     req.Size,
					IEntry:   req.IEntry,
					NItr:     req.NItr,
				})
			})
			resp.Data = data
		}

		if err := wire.WriteFrame(w, resp.Marshal()); err != nil {
			return err
		}
	}
}

// Adapts ServeMatmul to the process callback taken by StartServer and
// Serve.  Errors end the stream and go to logger; they never touch
// dlog.Stderr(), which may be captured by another connection's request.
func MatmulProcessor(
	d *benchmark.Dispatcher,
	logger zerolog.Logger) func(io.Reader, io.Writer) {

	return func(r io.Reader, w io.Writer) {
		if err := ServeMatmul(r, w, d); err != nil {
			logger.Warn().Str("error", errors.GetMessage(err)).Msg("cinterop stream failed")
		}
	}
}
