package common

import (
	"github.com/google/uuid"
)

// NewCorrelationID generates a unique id for tying request logs together.
func NewCorrelationID() string {
	return uuid.New().String()
}

// NewInstanceID generates a unique id for a daemon process lifetime.
func NewInstanceID() string {
	return uuid.New().String()
}
