package secchan

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// maybeCompress applies the endpoint's compression policy, returning the
// payload to place in the frame and whether the compression bit should be
// set. On a gzip failure it falls back to the uncompressed input.
func (e *Endpoint) maybeCompress(data []byte) (payload []byte, compressed bool) {
	switch e.cfg.Compress {
	case CompressNever:
		return data, false
	case CompressAlways:
		gz, err := gzipBytes(data)
		if err != nil {
			e.logger.Error().Err(err).Msg("[secchan] gzip failed, sending uncompressed")
			return data, false
		}
		return gz, true
	default: // CompressAuto
		gz, err := gzipBytes(data)
		if err != nil {
			e.logger.Error().Err(err).Msg("[secchan] gzip failed, sending uncompressed")
			return data, false
		}
		if len(gz) < len(data) {
			return gz, true
		}
		return data, false
	}
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	return out, nil
}
