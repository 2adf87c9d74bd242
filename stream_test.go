package secchan

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func TestStreamRoundTrip(t *testing.T) {
	server, client := clientToServer(t, nil)

	data := make([]byte, 10000)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	var sink bytes.Buffer
	var writerTotal, readerTotal int64

	runPaired(t,
		func() error {
			var err error
			writerTotal, err = client.WriteStream(bytes.NewReader(data), 0, 4096)
			return err
		},
		func() error {
			var err error
			readerTotal, err = server.ReadStream(&sink)
			return err
		},
	)

	if writerTotal != int64(len(data)) {
		t.Fatalf("WriteStream returned %d, want %d", writerTotal, len(data))
	}
	if readerTotal != int64(len(data)) {
		t.Fatalf("ReadStream returned %d, want %d", readerTotal, len(data))
	}
	if !bytes.Equal(sink.Bytes(), data) {
		t.Fatalf("streamed content does not match source")
	}
}

func TestStreamChunkExactlyBufSize(t *testing.T) {
	server, client := clientToServer(t, nil)

	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}

	var sink bytes.Buffer
	runPaired(t,
		func() error {
			_, err := client.WriteStream(bytes.NewReader(data), 0, 4096)
			return err
		},
		func() error {
			_, err := server.ReadStream(&sink)
			return err
		},
	)

	if !bytes.Equal(sink.Bytes(), data) {
		t.Fatalf("exact-buf-size chunk did not round-trip")
	}
}

// TestStreamHashMismatchReportsRemoteError covers in-flight corruption of a
// single byte of one chunk (here, via a data transformer attached only to
// the client's outbound path, which corrupts the chunk envelope after its
// hash was computed but before it is sent).
// The receiver must detect the mismatch and the sender must see it echoed
// back as "Remote error: Invalid chunk hash: ...".
func TestStreamHashMismatchReportsRemoteError(t *testing.T) {
	corrupt := TransformerFunc(func(data []byte, dir Direction) ([]byte, error) {
		// Only outbound chunk envelopes are longer than the 4-byte
		// terminator; leave the terminator and any ACK traffic alone.
		if dir == Transform && len(data) > 4 {
			out := append([]byte(nil), data...)
			out[len(out)-1] ^= 0xFF
			return out, nil
		}
		return data, nil
	})

	server, client := clientToServer(t, func(role Role, cfg *Config) {
		if role == RoleClient {
			cfg.DataTransformer = corrupt
		}
	})

	data := []byte("a single chunk, corrupted in flight by the harness")

	var writeErr, readErr error
	runPaired(t,
		func() error {
			_, writeErr = client.WriteStream(bytes.NewReader(data), 0, 4096)
			return nil
		},
		func() error {
			var sink bytes.Buffer
			_, readErr = server.ReadStream(&sink)
			return nil
		},
	)

	if !errors.Is(readErr, ErrHashMismatch) {
		t.Fatalf("server.ReadStream error = %v, want ErrHashMismatch", readErr)
	}
	if !errors.Is(writeErr, ErrRemoteStream) {
		t.Fatalf("client.WriteStream error = %v, want ErrRemoteStream", writeErr)
	}
}
