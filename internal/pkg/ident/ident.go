package ident

import "github.com/google/uuid"

// New returns a UUIDv7 string. V7 ids embed the creation time in the high
// bits, so primary keys sort in insertion order without a timestamp join.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4
		// rather than returning an empty primary key.
		return uuid.New().String()
	}
	return id.String()
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
