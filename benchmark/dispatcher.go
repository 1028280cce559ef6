// Package benchmark dispatches matmul requests to the "c" or "cxx"
// benchmark and normalizes the result into an instrument.RuntimeData.
package benchmark

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/nersc/instbench/dlog"
	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/instrument"
	"github.com/nersc/instbench/matmul"
	"github.com/nersc/instbench/stats"
)

type CBackend func(size, max, nitr int64) (matmul.CRuntimeData, error)

type CXXBackend func(size, max, nitr int64) (*instrument.RuntimeData, error)

type DispatcherParams struct {
	// Default to matmul.ExecuteC / matmul.ExecuteCXX.
	C   CBackend
	CXX CXXBackend

	// Where Matmul reports rejected requests.  Defaults to dlog.Stderr().
	Diagnostics io.Writer

	// Defaults to a disabled logger.
	Logger *zerolog.Logger

	// Defaults to stats.NoOpStatsFactory.
	Stats stats.StatsFactory
}

// Dispatcher is stateless apart from its configuration; every call runs one
// benchmark synchronously and hands the caller a fresh RuntimeData.
type Dispatcher struct {
	c           CBackend
	cxx         CXXBackend
	diagnostics io.Writer
	logger      zerolog.Logger
	stats       stats.StatsFactory
}

func NewDispatcher(params DispatcherParams) *Dispatcher {
	d := &Dispatcher{
		c:           params.C,
		cxx:         params.CXX,
		diagnostics: params.Diagnostics,
		logger:      zerolog.Nop(),
		stats:       params.Stats,
	}
	if d.c == nil {
		d.c = matmul.ExecuteC
	}
	if d.cxx == nil {
		d.cxx = matmul.ExecuteCXX
	}
	if d.diagnostics == nil {
		d.diagnostics = dlog.Stderr()
	}
	if params.Logger != nil {
		d.logger = *params.Logger
	}
	if d.stats == nil {
		d.stats = stats.NoOpStatsFactory
	}
	return d
}

var defaultDispatcher = NewDispatcher(DispatcherParams{})

// Runs the matmul benchmark for language with the default dispatcher.
// Returns nil, after writing a diagnostic to dlog.Stderr(), if the request
// is rejected or the benchmark fails.
func Matmul(language string, opts ...Option) *instrument.RuntimeData {
	return defaultDispatcher.Matmul(language, opts...)
}

// Re-expresses a "c" result as a RuntimeData by appending its samples in
// index order.
func FromC(res matmul.CRuntimeData) (*instrument.RuntimeData, error) {
	if res.Entries < 0 || res.Entries > matmul.MaxEntries {
		return nil, errors.Newf(
			"c result has %d entries, capacity is %d", res.Entries, matmul.MaxEntries)
	}
	data := instrument.NewRuntimeData(res.Entries)
	for i := int64(0); i < res.Entries; i++ {
		err := data.Append(instrument.Sample{
			Index:      i,
			InstCount:  res.InstCount[i],
			Timing:     res.Timing[i],
			InstPerSec: res.InstPerSec[i],
			Overhead:   res.Overhead[i],
		})
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (d *Dispatcher) count(language, result string) {
	d.stats.NewCounter("benchmark.dispatch", map[string]string{
		"language": language,
		"result":   result,
	}).Inc()
}

// Runs req.  The language is matched case-insensitively.  Errors wrap
// ErrInvalidLanguage or ErrInvalidParameter for rejected requests; any
// other error comes from the benchmark itself.
func (d *Dispatcher) Run(req Request) (*instrument.RuntimeData, error) {
	lang, err := ParseLanguage(req.Language)
	if err != nil {
		d.count("invalid", "rejected")
		return nil, err
	}
	if err := req.validate(); err != nil {
		d.count(string(lang), "rejected")
		return nil, err
	}

	d.logger.Debug().
		Str("language", string(lang)).
		Int64("size", req.Size).
		Int64("ientry", req.IEntry).
		Int64("nitr", req.NItr).
		Msg("dispatching matmul")

	var data *instrument.RuntimeData
	switch lang {
	case LanguageC:
		var res matmul.CRuntimeData
		res, err = d.c(req.Size, req.IEntry, req.NItr)
		if err == nil {
			data, err = FromC(res)
		}
	case LanguageCXX:
		data, err = d.cxx(req.Size, req.IEntry, req.NItr)
		if err == nil && data == nil {
			err = errors.New("cxx benchmark returned no result")
		}
	}
	if err != nil {
		d.count(string(lang), "error")
		return nil, errors.Wrapf(err, "matmul %s failed", lang)
	}

	d.count(string(lang), "ok")
	d.logger.Debug().
		Str("language", string(lang)).
		Int64("entries", data.Entries()).
		Msg("matmul finished")
	return data, nil
}

// Same as Run, except that failures are reported on the diagnostic stream
// and yield a nil result instead of an error.
func (d *Dispatcher) Do(req Request) *instrument.RuntimeData {
	data, err := d.Run(req)
	if err != nil {
		// Rejections print only their own line; benchmark failures carry
		// their cause on the following lines.
		msg := errors.GetMessage(err)
		traced, ok := err.(errors.TracedError)
		if ok && (errors.IsError(err, ErrInvalidLanguage) ||
			errors.IsError(err, ErrInvalidParameter)) {
			msg = traced.GetMessage()
		}
		fmt.Fprintln(d.diagnostics, msg)
		d.logger.Warn().Str("language", req.Language).Msg(msg)
		return nil
	}
	return data
}

// Runs the benchmark for language, size 100, ientry 10000 and nitr 1
// unless overridden by opts.  Returns nil after writing a diagnostic if the
// language is not one of c, cxx (case-insensitive).
func (d *Dispatcher) Matmul(language string, opts ...Option) *instrument.RuntimeData {
	return d.Do(NewRequest(language, opts...))
}
