package cipherops

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrInvalidPEM is returned when a handshake public-key frame does not decode
// to a PKIX RSA public key.
var ErrInvalidPEM = errors.New("cipherops: invalid RSA public key PEM")

// GenerateKeypair generates a fresh RSA keypair of the given bit size. The
// client does this once per handshake and may discard the private key
// immediately after.
func GenerateKeypair(bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.Join(ErrCrypto, err)
	}
	return key, nil
}

// EncodePublicKeyPEM serializes an RSA public key as ASCII PEM, the shape
// sent as the handshake public-key frame.
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %w", ErrCrypto, err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// DecodePublicKeyPEM parses the PEM bytes produced by EncodePublicKeyPEM back
// into an RSA public key.
func DecodePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPEM, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidPEM
	}
	return rsaPub, nil
}

// EncryptPasswordOAEP RSA-OAEP-encrypts the session password with the peer's
// public key. Used only in ProtocolV3: ProtocolV2 never does this and sends
// the password in the clear.
func EncryptPasswordOAEP(pub *rsa.PublicKey, password []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, password, nil)
	if err != nil {
		return nil, errors.Join(ErrCrypto, err)
	}
	return ct, nil
}

// DecryptPasswordOAEP reverses EncryptPasswordOAEP using the client's
// ephemeral private key.
func DecryptPasswordOAEP(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, errors.Join(ErrCrypto, err)
	}
	return pt, nil
}
