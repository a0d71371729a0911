// Package domain contains entities without I/O, just meta-data and the rules
// that can be checked without a store.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

const MaxParticipantNameLen = 64

// NewIdentity builds a connection identity from a display name. The random
// suffix keeps two tabs of the same person apart.
func NewIdentity(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return "", ErrNameEmpty
	}
	if len(name) > MaxParticipantNameLen {
		return "", ErrNameTooLong
	}
	return name + "__" + uuid.NewString()[:8], nil
}

func NewRequestID() string { return "req_" + uuid.NewString() }

func NewSessionID() SessionID { return SessionID(uuid.NewString()) }
