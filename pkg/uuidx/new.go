// Package uuidx generates the identifiers used throughout bob. Version 7
// UUIDs are time-ordered, which keeps run and turn ids sortable by creation.
package uuidx

import "github.com/google/uuid"

// New returns a fresh version 7 UUID. It panics when the random source
// fails, which is not recoverable anyway.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a fresh version 7 UUID rendered as a string.
func NewString() string {
	return New().String()
}
