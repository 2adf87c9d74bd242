package secchan

import "errors"

// Error kinds raised by the core channel.
var (
	// ErrConnection wraps an underlying stream read/write failure. Fatal for the endpoint.
	ErrConnection = errors.New("secchan: connection error")
	// ErrUnexpectedEOF means the stream closed mid-frame. Fatal.
	ErrUnexpectedEOF = errors.New("secchan: unexpected EOF")
	// ErrFrameTooLarge means a declared frame length exceeded MaxPackageSize.
	// Inbound, this is fatal and the endpoint is closed, and Read returns
	// this error; outbound, Write silently returns (false, nil) and the
	// endpoint stays usable, so this error never surfaces from Write
	// itself — WriteStream returns it when a chunk envelope it built
	// triggers that same (false, nil) outcome.
	ErrFrameTooLarge = errors.New("secchan: frame too large")
	// ErrCrypto covers key generation, encryption, or decryption failure.
	ErrCrypto = errors.New("secchan: crypto error")
	// ErrDecompression covers a gunzip failure on an inbound payload.
	ErrDecompression = errors.New("secchan: decompression error")
	// ErrHashMismatch is the stream layer's per-chunk integrity failure.
	ErrHashMismatch = errors.New("secchan: chunk hash mismatch")
	// ErrRemoteStream wraps a non-empty ACK received by a stream sender.
	ErrRemoteStream = errors.New("secchan: remote stream error")
	// ErrUnknownRole means an endpoint was constructed with a role that is
	// neither RoleServer nor RoleClient.
	ErrUnknownRole = errors.New("secchan: unknown role")
	// ErrBroken is returned by any operation on an endpoint whose handshake
	// or a prior I/O failed; endpoints never retry or reset out of Broken.
	ErrBroken = errors.New("secchan: endpoint is broken")
	// ErrUnsupportedEncoding is returned by NewEndpoint when Config.Encoding
	// names anything other than "utf8".
	ErrUnsupportedEncoding = errors.New("secchan: unsupported encoding")
)
