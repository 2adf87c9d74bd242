package secchan

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/duskwire/secchan/core/cipherops"
	"github.com/duskwire/secchan/core/framing"
)

const flagCompressedBit = 0x80

// Write sends one datagram. It returns (true, nil) on success. If the
// ciphertext would exceed MaxPackageSize it is not sent at all; Write
// returns (false, nil) — a soft signal, not an error — and the endpoint
// remains usable. Any other returned error is fatal.
func (e *Endpoint) Write(data []byte) (bool, error) {
	if e.isBroken() {
		return false, ErrBroken
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	transformed, err := e.applyDataTransform(data, Transform)
	if err != nil {
		return false, err
	}

	payload, compressed := e.maybeCompress(transformed)

	if err := e.ensureKeyed(); err != nil {
		return false, err
	}

	flag, err := randomFlag(compressed)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	combined := make([]byte, 1+len(payload))
	combined[0] = flag
	copy(combined[1:], payload)

	e.passwordMu.Lock()
	password := e.password
	e.passwordMu.Unlock()

	ciphertext, err := cipherops.Encrypt(password, combined)
	if err != nil {
		e.markBroken()
		return false, fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	if uint32(len(ciphertext)) > e.cfg.MaxPackageSize {
		return false, nil
	}

	if err := framing.WriteFrame(e.conn, ciphertext); err != nil {
		e.markBroken()
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return true, nil
}

// Read receives one datagram. An inbound frame whose declared length
// exceeds MaxPackageSize is fatal: the endpoint closes and returns
// ErrFrameTooLarge. An empty datagram returns a non-nil, zero-length slice.
func (e *Endpoint) Read() ([]byte, error) {
	if e.isBroken() {
		return nil, ErrBroken
	}

	e.readMu.Lock()
	defer e.readMu.Unlock()

	if err := e.ensureKeyed(); err != nil {
		return nil, err
	}

	ciphertext, err := framing.ReadFrame(e.conn, e.cfg.MaxPackageSize)
	if err != nil {
		e.markBroken()
		if err == framing.ErrTooLarge {
			e.conn.Close()
			return nil, ErrFrameTooLarge
		}
		return nil, wrapFrameErr(err)
	}

	if len(ciphertext) == 0 {
		return []byte{}, nil
	}

	e.passwordMu.Lock()
	password := e.password
	e.passwordMu.Unlock()

	combined, err := cipherops.Decrypt(password, ciphertext)
	if err != nil {
		e.markBroken()
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	if len(combined) == 0 {
		e.markBroken()
		return nil, fmt.Errorf("%w: empty decrypted payload missing flag byte", ErrCrypto)
	}

	flag := combined[0]
	body := combined[1:]

	if flag&flagCompressedBit != 0 {
		body, err = gunzipBytes(body)
		if err != nil {
			e.markBroken()
			return nil, err
		}
	}

	return e.applyDataTransform(body, Restore)
}

// WriteString is a convenience wrapper over Write for UTF-8 strings.
func (e *Endpoint) WriteString(s string) (bool, error) {
	return e.Write([]byte(s))
}

// ReadString is a convenience wrapper over Read for UTF-8 strings.
func (e *Endpoint) ReadString() (string, error) {
	data, err := e.Read()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteJSON marshals v to JSON and sends it as one datagram.
func (e *Endpoint) WriteJSON(v any) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("secchan: marshal JSON: %w", err)
	}
	return e.Write(data)
}

// ReadJSON receives one datagram and unmarshals it into v.
func (e *Endpoint) ReadJSON(v any) error {
	data, err := e.Read()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("secchan: unmarshal JSON: %w", err)
	}
	return nil
}

func (e *Endpoint) applyDataTransform(data []byte, dir Direction) ([]byte, error) {
	if e.cfg.DataTransformer == nil {
		return data, nil
	}
	out, err := e.cfg.DataTransformer.Apply(data, dir)
	if err != nil {
		return nil, fmt.Errorf("secchan: data transformer: %w", err)
	}
	return out, nil
}

func randomFlag(compressed bool) (byte, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	flag := b[0] &^ flagCompressedBit
	if compressed {
		flag |= flagCompressedBit
	}
	return flag, nil
}
