// Package uid generates identifiers: numeric snowflake ids for rows and
// string UUIDs for correlation ids and object keys.
package uid

import "github.com/google/uuid"

// NumberID generates unique, roughly time ordered int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}

// UUID hands out version 7 UUIDs. Their time prefix keeps export object keys
// and correlation ids sortable by creation.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

// Generate falls back to a random v4 when the clock source fails.
func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
