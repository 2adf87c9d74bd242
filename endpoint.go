// Package secchan implements a secure length-framed message channel over a
// reliable ordered byte stream: a handshake bootstraps a shared symmetric
// session key, a datagram layer carries encrypted, optionally compressed
// frames up to a configured maximum size, and a stream layer built on top
// of it chunks arbitrary byte streams with per-chunk integrity and
// per-chunk acknowledgement.
package secchan

import (
	"crypto/rsa"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type endpointState int32

const (
	stateFresh endpointState = iota
	stateKeyed
	stateBroken
)

// Endpoint is one side of a secure channel. An Endpoint is created around
// an already-connected stream, transitions to "keyed" lazily on first Read
// or Write, and operates until the underlying stream is closed or a fatal
// error puts it into Broken.
type Endpoint struct {
	conn   io.ReadWriteCloser
	cfg    Config
	logger zerolog.Logger

	writeMu sync.Mutex
	readMu  sync.Mutex

	handshakeOnce sync.Once
	handshakeErr  error

	state endpointState

	passwordMu sync.Mutex
	password   []byte

	// clientRSAKey is generated fresh per handshake by a client Endpoint
	// and discarded once the handshake completes.
	clientRSAKey *rsa.PrivateKey
}

// NewEndpoint wraps conn in an Endpoint. cfg.Role is required; every other
// field falls back to a documented default when left zero.
func NewEndpoint(conn io.ReadWriteCloser, cfg Config) (*Endpoint, error) {
	if cfg.Role != RoleServer && cfg.Role != RoleClient {
		return nil, ErrUnknownRole
	}
	if cfg.Encoding != "" && cfg.Encoding != "utf8" {
		return nil, ErrUnsupportedEncoding
	}
	cfg = cfg.normalize()

	ep := &Endpoint{
		conn:   conn,
		cfg:    cfg,
		logger: log.Logger,
	}

	if cfg.RSAKeySize < minSecureRSAKeySize {
		ep.logger.Warn().
			Int("rsa_key_size", cfg.RSAKeySize).
			Msg("[secchan] RSA key size below 2048 bits is wire-compatible but cryptographically weak")
	}

	return ep, nil
}

// WithLogger attaches a zerolog.Logger to the endpoint, replacing the
// package-global logger used by default. Returns the endpoint for chaining.
func (e *Endpoint) WithLogger(logger zerolog.Logger) *Endpoint {
	e.logger = logger
	return e
}

// Role reports which handshake half this endpoint runs.
func (e *Endpoint) Role() Role { return e.cfg.Role }

// Close closes the underlying stream and zeroes the session password.
func (e *Endpoint) Close() error {
	atomic.StoreInt32((*int32)(&e.state), int32(stateBroken))
	e.passwordMu.Lock()
	wipe(e.password)
	e.password = nil
	e.passwordMu.Unlock()
	return e.conn.Close()
}

func (e *Endpoint) markBroken() {
	atomic.StoreInt32((*int32)(&e.state), int32(stateBroken))
}

func (e *Endpoint) isBroken() bool {
	return endpointState(atomic.LoadInt32((*int32)(&e.state))) == stateBroken
}

// wipe zeroes a byte slice in place.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
