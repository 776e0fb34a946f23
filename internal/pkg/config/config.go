// Package config exposes typed, read-only access to runtime configuration.
//
// Keys are dotted paths (for example "modules.entry.otp.ttl_seconds"). Getters
// never fail: a missing or malformed key yields the zero value, so callers
// that need a default apply it themselves.
package config

import (
	"io"
	"time"
)

// Config is the configuration surface the application reads. Values may
// change between calls when the backing file is reloaded.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetInt(key string) int
	GetInt32(key string) int32
	GetFloat64(key string) float64
	GetString(key string) string

	// GetSecond and GetMinute read an integer key as a duration of that unit.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration

	// GetBinary decodes a base64 encoded value, e.g. a PEM signing key.
	GetBinary(key string) []byte

	// GetArray splits "a,b,c" into trimmed, non-empty elements.
	GetArray(key string) []string
}
