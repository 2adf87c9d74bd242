package secchan

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/duskwire/secchan/core/cipherops"
	"github.com/duskwire/secchan/core/framing"
)

const maxPasswordLen = 1<<16 - 1 // fits the 2-byte LE length field ahead of it on the wire

// ensureKeyed runs the role-appropriate handshake exactly once per endpoint.
// Concurrent callers from Read and Write both block on the same result.
func (e *Endpoint) ensureKeyed() error {
	if e.isBroken() {
		return ErrBroken
	}
	e.handshakeOnce.Do(func() {
		if err := e.runHandshake(); err != nil {
			e.markBroken()
			e.handshakeErr = err
		}
	})
	if e.handshakeErr != nil {
		return e.handshakeErr
	}
	return nil
}

func (e *Endpoint) runHandshake() error {
	e.logger.Debug().Str("role", e.cfg.Role.String()).Msg("[secchan] starting handshake")

	var password []byte
	var err error
	switch e.cfg.Role {
	case RoleClient:
		password, err = e.clientHandshake()
	case RoleServer:
		password, err = e.serverHandshake()
	default:
		return ErrUnknownRole
	}
	if err != nil {
		return err
	}

	e.passwordMu.Lock()
	e.password = password
	e.passwordMu.Unlock()

	e.logger.Debug().Str("role", e.cfg.Role.String()).Msg("[secchan] handshake complete")
	return nil
}

// clientHandshake sends an ephemeral RSA public key and reads back the
// session password the server issues.
func (e *Endpoint) clientHandshake() ([]byte, error) {
	key, err := cipherops.GenerateKeypair(e.cfg.RSAKeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: generate RSA keypair: %w", ErrCrypto, err)
	}
	e.clientRSAKey = key
	defer func() { e.clientRSAKey = nil }()

	pubPEM, err := cipherops.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encode public key: %w", ErrCrypto, err)
	}

	pubPEM, err = e.applyHandshakeTransform(pubPEM, Transform)
	if err != nil {
		return nil, err
	}

	if err := framing.WriteFrame(e.conn, pubPEM); err != nil {
		return nil, fmt.Errorf("%w: send public key: %w", ErrConnection, err)
	}

	passwordLen, err := readUint16LE(e.conn)
	if err != nil {
		return nil, err
	}
	if int(passwordLen) > int(e.cfg.MaxPackageSize) {
		e.conn.Close()
		return nil, ErrFrameTooLarge
	}

	raw := make([]byte, passwordLen)
	if _, err := io.ReadFull(e.conn, raw); err != nil {
		return nil, wrapReadErr(err)
	}

	if e.cfg.ProtocolVersion == ProtocolV3 {
		password, err := cipherops.DecryptPasswordOAEP(key, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt password: %w", ErrCrypto, err)
		}
		return password, nil
	}
	return raw, nil
}

// serverHandshake reads the client's ephemeral RSA public key, generates a
// session password, and sends it back to the client.
func (e *Endpoint) serverHandshake() ([]byte, error) {
	pubPEM, err := framing.ReadFrame(e.conn, e.cfg.MaxPackageSize)
	if err != nil {
		if err == framing.ErrTooLarge {
			e.conn.Close()
		}
		return nil, wrapFrameErr(err)
	}

	pubPEM, err = e.applyHandshakeTransform(pubPEM, Restore)
	if err != nil {
		return nil, err
	}

	clientPub, err := cipherops.DecodePublicKeyPEM(pubPEM)
	if err != nil {
		e.conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	password, err := e.generatePassword()
	if err != nil {
		return nil, fmt.Errorf("%w: generate password: %w", ErrCrypto, err)
	}

	wireBytes := password
	if e.cfg.ProtocolVersion == ProtocolV3 {
		wireBytes, err = cipherops.EncryptPasswordOAEP(clientPub, password)
		if err != nil {
			return nil, fmt.Errorf("%w: encrypt password: %w", ErrCrypto, err)
		}
	}
	if len(wireBytes) > maxPasswordLen {
		return nil, fmt.Errorf("%w: encrypted password exceeds wire length limit", ErrCrypto)
	}

	if err := writeUint16LE(e.conn, uint16(len(wireBytes))); err != nil {
		return nil, fmt.Errorf("%w: send password length: %w", ErrConnection, err)
	}
	if _, err := e.conn.Write(wireBytes); err != nil {
		return nil, fmt.Errorf("%w: send password: %w", ErrConnection, err)
	}

	return password, nil
}

func (e *Endpoint) generatePassword() ([]byte, error) {
	if e.cfg.PasswordGenerator != nil {
		return e.cfg.PasswordGenerator.GeneratePassword()
	}
	password := make([]byte, 48)
	if _, err := rand.Read(password); err != nil {
		return nil, err
	}
	return password, nil
}

func (e *Endpoint) applyHandshakeTransform(data []byte, dir Direction) ([]byte, error) {
	if e.cfg.HandshakeTransformer == nil {
		return data, nil
	}
	out, err := e.cfg.HandshakeTransformer.Apply(data, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: handshake transformer: %w", ErrCrypto, err)
	}
	return out, nil
}

func readUint16LE(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapReadErr(err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func writeUint16LE(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func wrapReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %w", ErrUnexpectedEOF, err)
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

// wrapFrameErr translates a framing.ReadFrame error into a secchan sentinel.
func wrapFrameErr(err error) error {
	switch {
	case err == framing.ErrTooLarge:
		return ErrFrameTooLarge
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return fmt.Errorf("%w: %w", ErrUnexpectedEOF, err)
	default:
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
}
