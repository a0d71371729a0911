package domain

import "encoding/json"

// Broadcast message types.
const (
	MsgStudentRequest     = "student_request"
	MsgRequestUpdate      = "request_update"
	MsgRequestDisplay     = "request_display"
	MsgPermissionUpdate   = "permission_update"
	MsgTranscription      = "transcription"
	MsgPermissionsChanged = "permissions_changed"
	MsgSettingsChanged    = "settings_changed"
)

type PermissionAction string

const (
	ActionGrant  PermissionAction = "grant"
	ActionRevoke PermissionAction = "revoke"
)

func ParsePermissionAction(s string) (PermissionAction, error) {
	switch a := PermissionAction(s); a {
	case ActionGrant, ActionRevoke:
		return a, nil
	}
	return "", ErrInvalidAction
}

// Envelope is the one wire shape of the broadcast channel. permission_update
// keeps its fields at the top level, every other type uses Payload.
type Envelope struct {
	Type              string           `json:"type"`
	Payload           json.RawMessage  `json:"payload,omitempty"`
	Action            PermissionAction `json:"action,omitempty"`
	TargetParticipant string           `json:"targetParticipant,omitempty"`
	Timestamp         int64            `json:"timestamp,omitempty"`
}

type RequestUpdate struct {
	RequestID string        `json:"requestId"`
	Status    RequestStatus `json:"status"`
}

type RequestDisplay struct {
	RequestID   string `json:"requestId"`
	Question    string `json:"question"`
	StudentName string `json:"studentName"`
	Display     bool   `json:"display"`
}

type TranscriptionBatch struct {
	ParticipantIdentity string    `json:"participantIdentity"`
	Segments            []Segment `json:"segments"`
}

// SettingsChanged tells every connection the session's speaking language
// moved, so caption routing follows.
type SettingsChanged struct {
	Language string `json:"language"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Payload: raw})
}

func PermissionUpdate(action PermissionAction, target string, ts int64) ([]byte, error) {
	return json.Marshal(Envelope{Type: MsgPermissionUpdate, Action: action, TargetParticipant: target, Timestamp: ts})
}
