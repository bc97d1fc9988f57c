package utils

import "github.com/google/uuid"

// GenerateID returns a random RFC 4122 v4 identifier.
func GenerateID() string {
	return uuid.NewString()
}

// IsValidID reports whether s parses as a UUID.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
