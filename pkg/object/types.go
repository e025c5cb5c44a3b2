package object

import "encoding/hex"

// Hash is a 40-character lowercase hex-encoded SHA-1 digest.
type Hash string

// HashLen is the length of a hex-encoded Hash.
const HashLen = 40

// Valid reports whether h is a well-formed hex digest.
func (h Hash) Valid() bool {
	if len(h) != HashLen {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Short returns the first seven characters of h, or h itself if shorter.
func (h Hash) Short() string {
	if len(h) <= 7 {
		return string(h)
	}
	return string(h[:7])
}

// ParseHash validates s as a Hash.
func ParseHash(s string) (Hash, error) {
	h := Hash(s)
	if !h.Valid() {
		if _, err := hex.DecodeString(s); err != nil {
			return "", &InvalidHashError{Value: s, Err: err}
		}
		return "", &InvalidHashError{Value: s}
	}
	return h, nil
}

// ObjectType is the type tag stored in front of an object's content.
// Callers may use any tag without a NUL byte; the constants below are the
// conventional ones.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

// AnyType disables the type check in Store.Get.
const AnyType ObjectType = ""
