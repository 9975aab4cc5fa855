package core

import "github.com/google/uuid"

// NewID generates a unique identifier for chain runs and correlation.
func NewID() string { return uuid.NewString() }
