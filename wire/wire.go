// Package wire encodes matmul requests and responses in the protobuf wire
// format, for hosts that drive the benchmarks from another process.
//
//	message Request {
//	  string language = 1;
//	  optional int64 size   = 2;  // default 100
//	  optional int64 ientry = 3;  // default 10000
//	  optional int64 nitr   = 4;  // default 1
//	}
//
//	message Sample {
//	  int64  index        = 1;
//	  int64  inst_count   = 2;
//	  double timing       = 3;
//	  double inst_per_sec = 4;
//	  double overhead     = 5;
//	}
//
//	message Response {
//	  bool   present    = 1;  // false when the request was rejected
//	  string diagnostic = 2;  // text the benchmark wrote to stderr
//	  string output     = 3;  // text the benchmark wrote to stdout
//	  repeated Sample samples = 4;
//	}
package wire

import (
	"math"

	"github.com/gogo/protobuf/proto"

	"github.com/nersc/instbench/benchmark"
	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/instrument"
)

const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

type Request struct {
	Language string
	Size     int64
	IEntry   int64
	NItr     int64
}

type Response struct {
	// Nil when the request was rejected.
	Data       *instrument.RuntimeData
	Diagnostic string
	Output     string
}

func key(field int, wireType int) uint64 {
	return uint64(field)<<3 | uint64(wireType)
}

func encodeInt(buf *proto.Buffer, field int, v int64) {
	if v == 0 {
		return
	}
	_ = buf.EncodeVarint(key(field, wireVarint))
	_ = buf.EncodeVarint(uint64(v))
}

func encodeDouble(buf *proto.Buffer, field int, v float64) {
	if v == 0 {
		return
	}
	_ = buf.EncodeVarint(key(field, wireFixed64))
	_ = buf.EncodeFixed64(math.Float64bits(v))
}

func encodeString(buf *proto.Buffer, field int, v string) {
	if v == "" {
		return
	}
	_ = buf.EncodeVarint(key(field, wireBytes))
	_ = buf.EncodeStringBytes(v)
}

// Numeric fields are always written so that an explicit zero is not
// mistaken for a missing field.
func (r *Request) Marshal() []byte {
	buf := proto.NewBuffer(nil)
	encodeString(buf, 1, r.Language)
	for i, v := range []int64{r.Size, r.IEntry, r.NItr} {
		_ = buf.EncodeVarint(key(2+i, wireVarint))
		_ = buf.EncodeVarint(uint64(v))
	}
	return buf.Bytes()
}

func marshalSample(s instrument.Sample) []byte {
	buf := proto.NewBuffer(nil)
	encodeInt(buf, 1, s.Index)
	encodeInt(buf, 2, s.InstCount)
	encodeDouble(buf, 3, s.Timing)
	encodeDouble(buf, 4, s.InstPerSec)
	encodeDouble(buf, 5, s.Overhead)
	return buf.Bytes()
}

func (r *Response) Marshal() []byte {
	buf := proto.NewBuffer(nil)
	if r.Data != nil {
		encodeInt(buf, 1, 1)
	}
	encodeString(buf, 2, r.Diagnostic)
	encodeString(buf, 3, r.Output)
	if r.Data != nil {
		for _, s := range r.Data.Samples() {
			_ = buf.EncodeVarint(key(4, wireBytes))
			_ = buf.EncodeRawBytes(marshalSample(s))
		}
	}
	return buf.Bytes()
}

// A field as read off the wire.  For varints and fixed64 values u holds
// the raw bits; for length delimited values b holds the payload.
type field struct {
	num      int
	wireType int
	u        uint64
	b        []byte
}

// Calls fn for every field in msg, in order.
func walk(msg []byte, fn func(f field) error) error {
	for off := 0; off < len(msg); {
		k, n := proto.DecodeVarint(msg[off:])
		if n == 0 {
			return errors.Newf("truncated field key at offset %d", off)
		}
		off += n
		f := field{num: int(k >> 3), wireType: int(k & 7)}
		if f.num <= 0 {
			return errors.Newf("invalid field number %d at offset %d", f.num, off)
		}

		switch f.wireType {
		case wireVarint:
			f.u, n = proto.DecodeVarint(msg[off:])
			if n == 0 {
				return errors.Newf("truncated varint in field %d", f.num)
			}
			off += n
		case wireFixed64:
			if len(msg)-off < 8 {
				return errors.Newf("truncated fixed64 in field %d", f.num)
			}
			var err error
			f.u, err = proto.NewBuffer(msg[off : off+8]).DecodeFixed64()
			if err != nil {
				return errors.Wrapf(err, "field %d", f.num)
			}
			off += 8
		case wireBytes:
			length, n := proto.DecodeVarint(msg[off:])
			if n == 0 {
				return errors.Newf("truncated length in field %d", f.num)
			}
			off += n
			if length > uint64(len(msg)-off) {
				return errors.Newf("field %d overruns message: %d bytes", f.num, length)
			}
			f.b = msg[off : off+int(length)]
			off += int(length)
		case wireFixed32:
			if len(msg)-off < 4 {
				return errors.Newf("truncated fixed32 in field %d", f.num)
			}
			var err error
			f.u, err = proto.NewBuffer(msg[off : off+4]).DecodeFixed32()
			if err != nil {
				return errors.Wrapf(err, "field %d", f.num)
			}
			off += 4
		default:
			// Groups (types 3 and 4) are deprecated and never sent.
			return errors.Newf("unsupported wire type %d in field %d", f.wireType, f.num)
		}

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) int64Value() (int64, error) {
	if f.wireType != wireVarint {
		return 0, errors.Newf("field %d: expected varint, got wire type %d", f.num, f.wireType)
	}
	return int64(f.u), nil
}

func (f field) doubleValue() (float64, error) {
	if f.wireType != wireFixed64 {
		return 0, errors.Newf("field %d: expected fixed64, got wire type %d", f.num, f.wireType)
	}
	return math.Float64frombits(f.u), nil
}

func (f field) bytesValue() ([]byte, error) {
	if f.wireType != wireBytes {
		return nil, errors.Newf("field %d: expected bytes, got wire type %d", f.num, f.wireType)
	}
	return f.b, nil
}

// Missing numeric fields take the matmul defaults (size 100, ientry 10000,
// nitr 1).  Unknown varint, fixed64, fixed32 and length-delimited fields
// are skipped; groups are rejected.
func (r *Request) Unmarshal(msg []byte) error {
	*r = Request{
		Size:   benchmark.DefaultSize,
		IEntry: benchmark.DefaultIEntry,
		NItr:   benchmark.DefaultNItr,
	}
	return walk(msg, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var b []byte
			b, err = f.bytesValue()
			r.Language = string(b)
		case 2:
			r.Size, err = f.int64Value()
		case 3:
			r.IEntry, err = f.int64Value()
		case 4:
			r.NItr, err = f.int64Value()
		}
		return err
	})
}

func unmarshalSample(msg []byte) (instrument.Sample, error) {
	var s instrument.Sample
	err := walk(msg, func(f field) error {
		var err error
		switch f.num {
		case 1:
			s.Index, err = f.int64Value()
		case 2:
			s.InstCount, err = f.int64Value()
		case 3:
			s.Timing, err = f.doubleValue()
		case 4:
			s.InstPerSec, err = f.doubleValue()
		case 5:
			s.Overhead, err = f.doubleValue()
		}
		return err
	})
	return s, err
}

// Samples must arrive in index order.
func (r *Response) Unmarshal(msg []byte) error {
	*r = Response{}
	present := false
	data := instrument.NewRuntimeData(0)
	err := walk(msg, func(f field) error {
		switch f.num {
		case 1:
			v, err := f.int64Value()
			present = v != 0
			return err
		case 2:
			b, err := f.bytesValue()
			r.Diagnostic = string(b)
			return err
		case 3:
			b, err := f.bytesValue()
			r.Output = string(b)
			return err
		case 4:
			b, err := f.bytesValue()
			if err != nil {
				return err
			}
			s, err := unmarshalSample(b)
			if err != nil {
				return errors.Wrap(err, "decoding sample")
			}
			return data.Append(s)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if present {
		r.Data = data
	} else if data.Entries() > 0 {
		return errors.Newf("absent response carries %d samples", data.Entries())
	}
	return nil
}
