package framing

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// HashSize is the length of the sha256 digest carried in a non-terminator
// chunk envelope.
const HashSize = sha256.Size

// ErrShortChunkEnvelope is returned when a chunk envelope is too short to
// contain its declared length field, or its hash and chunkLen body bytes
// when chunkLen != 0.
var ErrShortChunkEnvelope = errors.New("framing: truncated chunk envelope")

// EncodeChunk builds the stream-layer envelope for one non-empty chunk:
// chunkLen(4 LE) || sha256(chunk) || chunk.
func EncodeChunk(chunk []byte) []byte {
	sum := sha256.Sum256(chunk)
	out := make([]byte, 4+HashSize+len(chunk))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(chunk)))
	copy(out[4:4+HashSize], sum[:])
	copy(out[4+HashSize:], chunk)
	return out
}

// EncodeTerminator builds the terminator envelope: chunkLen = 0, no hash, no body.
func EncodeTerminator() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, 0)
	return out
}

// PeekChunkLen reads just the chunkLen field of a chunk envelope without
// validating that the rest of the envelope is present. Used by receivers
// that need to reject an oversized declared length before trusting the
// envelope enough to slice it.
func PeekChunkLen(envelope []byte) (uint32, error) {
	if len(envelope) < 4 {
		return 0, ErrShortChunkEnvelope
	}
	return binary.LittleEndian.Uint32(envelope[:4]), nil
}

// DecodedChunk is the result of parsing one stream chunk envelope.
type DecodedChunk struct {
	Terminator bool
	Chunk      []byte
	Hash       [HashSize]byte
}

// DecodeChunk parses a stream chunk envelope produced by EncodeChunk or
// EncodeTerminator. It does not verify the hash; callers compare it against
// sha256.Sum256(Chunk) themselves.
func DecodeChunk(envelope []byte) (DecodedChunk, error) {
	if len(envelope) < 4 {
		return DecodedChunk{}, ErrShortChunkEnvelope
	}
	chunkLen := binary.LittleEndian.Uint32(envelope[:4])
	if chunkLen == 0 {
		return DecodedChunk{Terminator: true}, nil
	}
	if len(envelope) < 4+HashSize+int(chunkLen) {
		return DecodedChunk{}, ErrShortChunkEnvelope
	}
	var dc DecodedChunk
	copy(dc.Hash[:], envelope[4:4+HashSize])
	dc.Chunk = envelope[4+HashSize : 4+HashSize+int(chunkLen)]
	return dc, nil
}
