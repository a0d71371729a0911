package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateRoomCode(t *testing.T) {
	tests := []struct {
		code string
		ok   bool
	}{
		{"MATH101", true},
		{"ab-12", true},
		{"abc", false},
		{strings.Repeat("a", 20), true},
		{strings.Repeat("a", 21), false},
		{"room code", false},
		{"math_101", false},
		{"", false},
	}
	for _, tt := range tests {
		err := ValidateRoomCode(tt.code)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateRoomCode(%q) = %v, want ok=%v", tt.code, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidRoomCode) {
			t.Errorf("ValidateRoomCode(%q) err = %v, want ErrInvalidRoomCode", tt.code, err)
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"teacher":         RoleTeacher,
		" Teacher ":       RoleTeacher,
		"student":         RoleStudent,
		"student_speaker": RoleStudentSpeaker,
		"admin":           RoleStudent,
		"":                RoleStudent,
	}
	for in, want := range tests {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRoleFromMetadata(t *testing.T) {
	p := Participant{Identity: "t", Role: RoleTeacher}
	if got := RoleFromMetadata(p.MetadataJSON()); got != RoleTeacher {
		t.Errorf("round trip role = %s", got)
	}
	if got := RoleFromMetadata(`{"role":"superuser"}`); got != RoleStudent {
		t.Errorf("unknown role = %s, want student", got)
	}
	if got := RoleFromMetadata("not json"); got != RoleStudent {
		t.Errorf("bad metadata role = %s, want student", got)
	}
}

func TestAttributes(t *testing.T) {
	teacher := Participant{Role: RoleTeacher, Language: "en"}
	if got := teacher.Attributes()[AttrSpeakingLanguage]; got != "en" {
		t.Errorf("teacher speaking_language = %q", got)
	}
	student := Participant{Role: RoleStudent, Language: "es"}
	if got := student.Attributes()[AttrCaptionsLanguage]; got != "es" {
		t.Errorf("student captions_language = %q", got)
	}
	if (Participant{Role: RoleStudent}).Attributes() != nil {
		t.Error("no language should yield no attributes")
	}
}

func TestStudentNeverPublishesAtJoin(t *testing.T) {
	for _, kind := range []SessionKind{KindClassroom, KindSpeech} {
		for _, role := range []Role{RoleStudent, RoleStudentSpeaker} {
			g := GrantFor(kind, role, time.Hour)
			if g.CanPublish || g.RoomAdmin {
				t.Errorf("GrantFor(%s, %s) = %+v", kind, role, g)
			}
		}
	}
	if !GrantFor(KindMeeting, RoleStudent, time.Hour).CanPublish {
		t.Error("meeting participants publish")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		typ      RequestType
		from, to RequestStatus
		ok       bool
	}{
		{RequestVoice, StatusPending, StatusApproved, true},
		{RequestText, StatusPending, StatusApproved, false},
		{RequestText, StatusPending, StatusDisplayed, true},
		{RequestVoice, StatusPending, StatusDisplayed, false},
		{RequestVoice, StatusPending, StatusDeclined, true},
		{RequestText, StatusDisplayed, StatusAnswered, true},
		{RequestText, StatusPending, StatusAnswered, false},
		{RequestVoice, StatusDeclined, StatusPending, false},
		{RequestVoice, StatusApproved, StatusDeclined, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.typ, tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tt.typ, tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("  Ada ")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "Ada__") || len(id) != len("Ada__")+8 {
		t.Errorf("identity = %q", id)
	}
	if _, err := NewIdentity("   "); !errors.Is(err, ErrNameEmpty) {
		t.Errorf("err = %v, want ErrNameEmpty", err)
	}
	if _, err := NewIdentity(strings.Repeat("x", MaxParticipantNameLen+1)); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("err = %v, want ErrNameTooLong", err)
	}
}

func TestPermissionUpdateShape(t *testing.T) {
	b, err := PermissionUpdate(ActionGrant, "s__1", 1700000000000)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != MsgPermissionUpdate || m["action"] != "grant" || m["targetParticipant"] != "s__1" {
		t.Errorf("envelope = %s", b)
	}
	if _, ok := m["payload"]; ok {
		t.Errorf("permission_update carries no payload: %s", b)
	}
}
