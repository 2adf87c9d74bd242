package secchan

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/duskwire/secchan/core/framing"
)

// WriteStream sends the contents of source as a sequence of chunk datagrams
// over the datagram layer, stopping after maxBytes bytes (maxBytes <= 0
// means "until EOF") and using bufSize-sized reads (bufSize == 0 means
// Config.ReadBufferSize). One chunk is in flight at a time; each is
// acknowledged before the next is sent.
func (e *Endpoint) WriteStream(source io.Reader, maxBytes int64, bufSize uint32) (int64, error) {
	if bufSize == 0 {
		bufSize = e.cfg.ReadBufferSize
	}
	limited := maxBytes > 0
	buf := make([]byte, bufSize)
	var total int64

	for {
		want := len(buf)
		if limited {
			remaining := maxBytes - total
			if remaining <= 0 {
				return e.sendTerminator(total)
			}
			if remaining < int64(want) {
				want = int(remaining)
			}
		}

		n, rerr := source.Read(buf[:want])
		if n == 0 {
			if rerr != nil && rerr != io.EOF {
				return total, fmt.Errorf("%w: read stream source: %w", ErrConnection, rerr)
			}
			return e.sendTerminator(total)
		}

		chunk := buf[:n]
		envelope := framing.EncodeChunk(chunk)
		ok, werr := e.Write(envelope)
		if werr != nil {
			return total, werr
		}
		if !ok {
			return total, ErrFrameTooLarge
		}

		resp, rerr2 := e.ReadString()
		if rerr2 != nil {
			return total, rerr2
		}
		if resp != "" {
			return total, fmt.Errorf("%w: Remote error: %s", ErrRemoteStream, resp)
		}

		total += int64(n)
		if rerr == io.EOF {
			return e.sendTerminator(total)
		}
	}
}

func (e *Endpoint) sendTerminator(total int64) (int64, error) {
	ok, err := e.Write(framing.EncodeTerminator())
	if err != nil {
		return total, err
	}
	if !ok {
		return total, ErrFrameTooLarge
	}
	return total, nil
}

// ReadStream receives chunks sent by WriteStream and writes them to sink in
// order, acknowledging each with an empty-string datagram and returning the
// total byte count once the terminator chunk arrives.
func (e *Endpoint) ReadStream(sink io.Writer) (int64, error) {
	var total int64

	for {
		envelope, err := e.Read()
		if err != nil {
			return total, err
		}

		chunkLen, err := framing.PeekChunkLen(envelope)
		if err != nil {
			return total, fmt.Errorf("%w: %w", ErrConnection, err)
		}
		if chunkLen == 0 {
			return total, nil
		}
		if chunkLen > e.cfg.MaxPackageSize {
			e.WriteString("Chunk is too big!")
			return total, fmt.Errorf("%w: declared chunk length %d exceeds max package size", ErrConnection, chunkLen)
		}

		dc, err := framing.DecodeChunk(envelope)
		if err != nil {
			e.WriteString(fmt.Sprintf("Malformed chunk: %v", err))
			return total, fmt.Errorf("%w: %w", ErrConnection, err)
		}

		sum := sha256.Sum256(dc.Chunk)
		if sum != dc.Hash {
			msg := fmt.Sprintf("Invalid chunk hash: %x", sum)
			e.WriteString(msg)
			return total, fmt.Errorf("%w: %s", ErrHashMismatch, msg)
		}

		if _, err := sink.Write(dc.Chunk); err != nil {
			return total, fmt.Errorf("%w: write stream sink: %w", ErrConnection, err)
		}

		if _, err := e.WriteString(""); err != nil {
			return total, err
		}
		total += int64(len(dc.Chunk))
	}
}
