package iteration

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh iteration id: a UUIDv7 (millisecond timestamp
// followed by random bits) as 32 lowercase hex characters. Ids sort by
// creation time and never repeat.
func NewID() string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return hex.EncodeToString(u[:])
}

// ValidID reports whether id is safe to use as a directory name.
func ValidID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && strings.TrimSpace(id) == id
}
