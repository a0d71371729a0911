package domain

import (
	"regexp"
	"strings"
	"time"
)

type (
	SessionID string
	RoomCode  string
	OrgID     string
)

type SessionKind string

const (
	KindMeeting   SessionKind = "meeting"
	KindClassroom SessionKind = "classroom"
	KindSpeech    SessionKind = "speech"
)

// ParseSessionKind maps a wire value onto the closed set of kinds.
func ParseSessionKind(s string) (SessionKind, error) {
	switch k := SessionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMeeting, KindClassroom, KindSpeech:
		return k, nil
	default:
		return "", ErrInvalidSessionKind
	}
}

// HasRoles reports whether teacher/student grants apply to the kind.
func (k SessionKind) HasRoles() bool {
	return k == KindClassroom || k == KindSpeech
}

var roomCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]{4,20}$`)

func ValidateRoomCode(code string) error {
	if !roomCodePattern.MatchString(code) {
		return ErrInvalidRoomCode
	}
	return nil
}

// Instant rooms are never registered, so their names only have to be safe as
// a media room name.
var adHocPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

func ValidateAdHocCode(code string) error {
	if !adHocPattern.MatchString(code) {
		return ErrInvalidRoomCode
	}
	return nil
}

// Session is the durable record behind a room code.
// ID never changes once assigned; only Language and PIN are mutable.
type Session struct {
	ID          SessionID   `json:"id"`
	RoomCode    RoomCode    `json:"roomCode"`
	OrgID       OrgID       `json:"orgId,omitempty"`
	Kind        SessionKind `json:"roomType"`
	Language    string      `json:"language"`
	PIN         string      `json:"-"`
	TeacherName string      `json:"teacherName,omitempty"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// AdHocSession describes a room code that has no durable record.
// The raw code doubles as the session id.
func AdHocSession(code RoomCode, kind SessionKind, language string) *Session {
	return &Session{
		ID:       SessionID(code),
		RoomCode: code,
		Kind:     kind,
		Language: language,
	}
}

func (s *Session) HasPIN() bool { return s.PIN != "" }

// SettingsUpdate carries the only mutable session fields. Nil means unchanged,
// an empty PIN clears it.
type SettingsUpdate struct {
	Language *string `json:"language,omitempty"`
	PIN      *string `json:"pin,omitempty"`
}

// Participation records that an identity joined a session.
type Participation struct {
	SessionID SessionID
	Identity  string
	Name      string
	Role      Role
	JoinedAt  time.Time
}
