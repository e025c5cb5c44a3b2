package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
)

// separator splits the type tag from the content in the stored envelope.
const separator = 0x00

// Envelope returns the canonical stored form of an object:
// "type\0content".
func Envelope(objType ObjectType, data []byte) []byte {
	raw := make([]byte, 0, len(objType)+1+len(data))
	raw = append(raw, objType...)
	raw = append(raw, separator)
	return append(raw, data...)
}

// HashObject computes the SHA-1 of the envelope "type\0content".
func HashObject(objType ObjectType, data []byte) Hash {
	h := sha1.New()
	h.Write([]byte(objType))
	h.Write([]byte{separator})
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashRaw computes the SHA-1 of an already-enveloped object.
func HashRaw(raw []byte) Hash {
	sum := sha1.Sum(raw)
	return Hash(hex.EncodeToString(sum[:]))
}

// splitEnvelope parses "type\0content". The type is everything before the
// first separator byte.
func splitEnvelope(raw []byte) (ObjectType, []byte, bool) {
	i := bytes.IndexByte(raw, separator)
	if i < 0 {
		return "", nil, false
	}
	return ObjectType(raw[:i]), raw[i+1:], true
}
