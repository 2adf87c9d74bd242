// Package cipherops implements the symmetric cipher and key-material
// primitives used by secchan's handshake and datagram layers.
package cipherops

import "crypto/md5"

// KeySize and IVSize are the AES-256-CTR key and IV lengths produced by deriveKeyIV.
const (
	KeySize = 32
	IVSize  = 16
)

// deriveKeyIV reproduces OpenSSL's legacy EVP_BytesToKey(EVP_md5(), NULL, password, 1, ...)
// construction: repeated unsalted MD5 over (previous digest || password) until enough
// bytes are produced. This is what the original Node implementation gets for free from
// crypto.createCipher(algorithm, password), and secchan must match it bit-for-bit to stay
// wire-compatible with that source — see design notes on Open Question 3. It is not a
// secure KDF (no salt, one MD5 round) and secchan does not offer a "fixed" mode.
func deriveKeyIV(password []byte) (key [KeySize]byte, iv [IVSize]byte) {
	var out []byte
	var prev []byte
	for len(out) < KeySize+IVSize {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	copy(key[:], out[:KeySize])
	copy(iv[:], out[KeySize:KeySize+IVSize])
	return key, iv
}
