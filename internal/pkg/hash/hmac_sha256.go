package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HMACSHA256 keys SHA-256 with a server secret, so a leaked digest table
// cannot be brute forced offline across the small 6-digit code space.
type HMACSHA256 struct {
	secret []byte
}

// NewHMACSHA256 creates a new hasher with a secret.
func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{secret: []byte(secret)}
}

// Hash returns the hex-encoded digest of str.
func (s *HMACSHA256) Hash(str string) ([]byte, error) {
	return s.digest(str), nil
}

// Verify reports whether str produces hashed. The comparison runs in
// constant time over the full digest.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	return subtle.ConstantTimeCompare([]byte(hashed), s.digest(str)) == 1
}

func (s *HMACSHA256) digest(str string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(str))
	sum := mac.Sum(nil)

	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}
