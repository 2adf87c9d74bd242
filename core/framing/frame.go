// Package framing implements the wire-level frame codec: a 4-byte
// little-endian length prefix followed by that many opaque bytes.
package framing

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrTooLarge is returned by ReadFrame when a frame's declared length
// exceeds the configured maximum package size. WriteFrame never returns it.
var ErrTooLarge = errors.New("framing: frame exceeds max package size")

// WriteFrame writes len32(data) || data to w. The caller is responsible for
// checking len(data) against the max package size before calling (see
// datagram.go); WriteFrame itself never rejects on size.
func WriteFrame(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

// ReadFrame reads one length-prefixed frame from r. If the declared length
// exceeds maxSize, no body bytes are consumed and ErrTooLarge is returned —
// the caller must close the connection on an inbound read like this one.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length > maxSize {
		return nil, ErrTooLarge
	}
	if length == 0 {
		return []byte{}, nil
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
