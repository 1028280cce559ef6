package benchmark

import (
	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/matmul"
)

const (
	DefaultSize   int64 = 100
	DefaultIEntry int64 = 10000
	DefaultNItr   int64 = 1
)

// Arguments of one matmul invocation.
type Request struct {
	Language string
	Size     int64
	// Upper bound on instrumentation marks per multiply; see package
	// matmul.
	IEntry int64
	NItr   int64
}

type Option func(*Request)

func WithSize(size int64) Option {
	return func(r *Request) { r.Size = size }
}

func WithIEntry(ientry int64) Option {
	return func(r *Request) { r.IEntry = ientry }
}

func WithNItr(nitr int64) Option {
	return func(r *Request) { r.NItr = nitr }
}

func DefaultRequest(language string) Request {
	return Request{
		Language: language,
		Size:     DefaultSize,
		IEntry:   DefaultIEntry,
		NItr:     DefaultNItr,
	}
}

func NewRequest(language string, opts ...Option) Request {
	req := DefaultRequest(language)
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

func (r Request) validate() error {
	switch {
	case r.Size <= 0 || r.Size > matmul.MaxSize:
		return errors.Wrapf(ErrInvalidParameter,
			"Invalid size: %d. Valid range: 1-%d", r.Size, matmul.MaxSize)
	case r.IEntry < 0:
		return errors.Wrapf(ErrInvalidParameter,
			"Invalid ientry: %d. Must not be negative", r.IEntry)
	case r.NItr <= 0:
		return errors.Wrapf(ErrInvalidParameter,
			"Invalid nitr: %d. Must be positive", r.NItr)
	}
	return nil
}
