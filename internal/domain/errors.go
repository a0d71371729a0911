package domain

import "errors"

var (
	ErrNameEmpty          = errors.New("participant name empty")
	ErrNameTooLong        = errors.New("participant name too long")
	ErrInvalidRoomCode    = errors.New("room code must be 4-20 letters, digits or hyphens")
	ErrInvalidSessionKind = errors.New("room type must be meeting, classroom or speech")
	ErrUnsupportedLang    = errors.New("unsupported language")
	ErrRoomCodeTaken      = errors.New("room code already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidPIN         = errors.New("invalid room pin")
	ErrNotConfigured      = errors.New("media backend not configured")
	ErrForbidden          = errors.New("not allowed for this room")
	ErrInvalidAction      = errors.New("action must be grant or revoke")
	ErrRequestPending     = errors.New("a request is already pending")
	ErrRequestNotFound    = errors.New("request not found")
	ErrRequestInFlight    = errors.New("request action already in flight")
	ErrInvalidTransition  = errors.New("invalid request transition")
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidTimestamp   = errors.New("timestamp must not be negative")
)
