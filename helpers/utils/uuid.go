package utils

import (
	"github.com/google/uuid"
)

// GenerateUUID returns a random v4 uuid
func GenerateUUID() string {
	return uuid.NewString()
}

// NewCycleID identifies one resolution cycle in logs and snapshots
func NewCycleID() string {
	return "cycle-" + GenerateShortID()
}

// GenerateShortID returns the first 8 hex chars of a uuid
func GenerateShortID() string {
	return uuid.NewString()[:8]
}
