// Package hash provides the SHA-1 value type shared by every artifact
// verification path in the launcher core, and the Maven-style artifact
// coordinate used to derive canonical on-disk paths.
package hash

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
)

// ErrInvalidLength is returned when decoding a hex string that does not
// encode exactly 20 bytes.
var ErrInvalidLength = errors.New("hash: sha1 value must be 20 bytes")

// SHA1 is a 20-byte SHA-1 digest.
type SHA1 [20]byte

// Zero reports whether h is the zero value, i.e. no hash was ever recorded.
func (h SHA1) Zero() bool {
	return h == SHA1{}
}

// String renders the digest as lowercase hex.
func (h SHA1) String() string {
	return hex.EncodeToString(h[:])
}

// Equal reports whether two digests are byte-identical.
func (h SHA1) Equal(other SHA1) bool {
	return h == other
}

// Parse decodes a lowercase (or uppercase) hex SHA-1 string.
func Parse(s string) (SHA1, error) {
	var out SHA1
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, ErrInvalidLength
	}
	copy(out[:], b)
	return out, nil
}

// FromReader streams r and returns its SHA-1 digest.
func FromReader(r io.Reader) (SHA1, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return SHA1{}, err
	}
	var out SHA1
	copy(out[:], h.Sum(nil))
	return out, nil
}

// FromBytes computes the SHA-1 digest of b.
func FromBytes(b []byte) SHA1 {
	sum := sha1.Sum(b)
	return SHA1(sum)
}

// MarshalJSON renders the digest as a lowercase hex JSON string, matching
// the manifest index and per-version document wire format. A zero-value
// digest (no sha1 known) marshals as an empty string rather than 40 zero
// digits, so an absent manifest sha1 field round-trips cleanly.
func (h SHA1) MarshalJSON() ([]byte, error) {
	if h.Zero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON accepts the hex string form Mojang's manifests use. An
// empty string decodes as the zero value (no sha1 known).
func (h *SHA1) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = SHA1{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
