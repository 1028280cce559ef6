package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/gogo/protobuf/proto"

	"github.com/nersc/instbench/errors"
)

// Largest frame ReadFrame accepts.
const MaxFrameSize = 16 << 20

// Writes msg prefixed with its varint length.
func WriteFrame(w io.Writer, msg []byte) error {
	if len(msg) > MaxFrameSize {
		return errors.Newf("frame of %d bytes exceeds limit %d", len(msg), MaxFrameSize)
	}
	if _, err := w.Write(append(proto.EncodeVarint(uint64(len(msg))), msg...)); err != nil {
		return errors.Wrap(err, "writing frame")
	}
	return nil
}

// Reads one length prefixed frame.  Returns io.EOF, unwrapped, if the
// stream ends cleanly between frames.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	length, err := binary.ReadUvarint(r)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading frame length")
	}
	if length > MaxFrameSize {
		return nil, errors.Newf("frame of %d bytes exceeds limit %d", length, MaxFrameSize)
	}
	msg := make([]byte, length)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, errors.Wrap(err, "reading frame body")
	}
	return msg, nil
}
