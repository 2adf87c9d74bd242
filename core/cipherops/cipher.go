package cipherops

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// ErrCrypto is returned for key setup or stream-cipher construction failures.
var ErrCrypto = errors.New("cipherops: crypto failure")

// Encrypt symmetric-encrypts data under AES-256-CTR, deriving key and IV from
// password via deriveKeyIV. Every call re-derives the same key/IV from the
// same password and starts the keystream at counter zero — this mirrors the
// upstream source's crypto.createCipher(algorithm, password) behavior, which
// reuses the same keystream prefix for every message on a session. That is a
// known weakness (see design notes), not a bug in this port: ciphertext and
// plaintext are always the same length.
func Encrypt(password, plaintext []byte) ([]byte, error) {
	return xorCTR(password, plaintext)
}

// Decrypt reverses Encrypt. AES-CTR decryption is identical to encryption;
// tampering with the ciphertext is never detected here (no authentication
// tag exists at this layer — see Open Question 2).
func Decrypt(password, ciphertext []byte) ([]byte, error) {
	return xorCTR(password, ciphertext)
}

func xorCTR(password, input []byte) ([]byte, error) {
	key, iv := deriveKeyIV(password)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Join(ErrCrypto, err)
	}
	stream := cipher.NewCTR(block, iv[:])
	out := make([]byte, len(input))
	stream.XORKeyStream(out, input)
	return out, nil
}
