package domain

import (
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleTeacher        Role = "teacher"
	RoleStudent        Role = "student"
	RoleStudentSpeaker Role = "student_speaker"
)

// ParseRole validates a role at the ingress boundary. Anything that is not a
// known role falls back to student, the least privileged one.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleTeacher, RoleStudent, RoleStudentSpeaker:
		return r
	default:
		return RoleStudent
	}
}

func (r Role) IsTeacher() bool { return r == RoleTeacher }

// Participant is one connection attempt. Identity is unique per attempt.
type Participant struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Language string `json:"language,omitempty"`
}

// Metadata is the freeform JSON the transport attaches to a participant.
type Metadata struct {
	Role Role `json:"role"`
}

func (p Participant) MetadataJSON() string {
	b, _ := json.Marshal(Metadata{Role: p.Role})
	return string(b)
}

// RoleFromMetadata decodes participant metadata and validates the role in it.
func RoleFromMetadata(raw string) Role {
	var m struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return RoleStudent
	}
	return ParseRole(m.Role)
}

// Attributes the transcription agent reads: the teacher's spoken language and
// each student's caption language.
const (
	AttrSpeakingLanguage = "speaking_language"
	AttrCaptionsLanguage = "captions_language"
)

func (p Participant) Attributes() map[string]string {
	if p.Language == "" {
		return nil
	}
	if p.Role.IsTeacher() {
		return map[string]string{AttrSpeakingLanguage: p.Language}
	}
	return map[string]string{AttrCaptionsLanguage: p.Language}
}
