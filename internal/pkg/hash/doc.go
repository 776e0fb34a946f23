// Package hash provides keyed digests for short-lived secrets.
//
// One-time codes are never stored in clear. Callers keep only the digest and
// later verify a submitted value against it in constant time.
package hash

// Hash computes and verifies digests of secret strings.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}
