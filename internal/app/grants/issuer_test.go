package grants

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

var testCreds = core.Credentials{
	URL:       "wss://media.example",
	APIKey:    "APIkey123",
	APISecret: "a-secret-that-is-long-enough-for-hs256",
}

func newTestIssuer(fc *clock.FakeClock) *Issuer {
	return NewIssuer(6*time.Hour, WithClock(fc), WithSkewHold(50*time.Millisecond))
}

func TestIssueGrantShapes(t *testing.T) {
	tests := []struct {
		name      string
		kind      domain.SessionKind
		role      domain.Role
		publish   bool
		roomAdmin bool
	}{
		{"meeting anyone", domain.KindMeeting, domain.RoleStudent, true, false},
		{"classroom teacher", domain.KindClassroom, domain.RoleTeacher, true, true},
		{"classroom student", domain.KindClassroom, domain.RoleStudent, false, false},
		{"speech student", domain.KindSpeech, domain.RoleStudent, false, false},
		{"speech speaker at join", domain.KindSpeech, domain.RoleStudentSpeaker, false, false},
		{"speech teacher", domain.KindSpeech, domain.RoleTeacher, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := clock.Fake(time.Now())
			iss := newTestIssuer(fc)
			s := &domain.Session{ID: "sess-1", Kind: tt.kind}
			p := domain.Participant{Identity: "p__1", Name: "P", Role: tt.role, Language: "en"}

			tok, err := iss.Issue(context.Background(), p, s, testCreds)
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}
			if tok.Grant.CanPublish != tt.publish || tok.Grant.RoomAdmin != tt.roomAdmin {
				t.Errorf("grant = %+v, want publish=%v admin=%v", tok.Grant, tt.publish, tt.roomAdmin)
			}
			if !tok.Grant.CanSubscribe || !tok.Grant.CanPublishData || !tok.Grant.CanUpdateOwnMetadata {
				t.Errorf("grant lost baseline rights: %+v", tok.Grant)
			}
			if tok.TTL != 6*time.Hour {
				t.Errorf("TTL = %v, want 6h", tok.TTL)
			}

			c, err := Verify(testCreds, tok.JWT, time.Minute)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if c.Identity != p.Identity || c.Room != "sess-1" {
				t.Errorf("claims = %+v", c)
			}
			if c.CanPublish != tt.publish || c.RoomAdmin != tt.roomAdmin {
				t.Errorf("claims publish=%v admin=%v, want %v %v", c.CanPublish, c.RoomAdmin, tt.publish, tt.roomAdmin)
			}
			if c.Role != tt.role {
				t.Errorf("claims role = %s, want %s", c.Role, tt.role)
			}
		})
	}
}

func TestIssueHoldsForSkew(t *testing.T) {
	fc := clock.Fake(time.Now())
	iss := newTestIssuer(fc)
	s := &domain.Session{ID: "sess-1", Kind: domain.KindClassroom}
	if _, err := iss.Issue(context.Background(), domain.Participant{Identity: "a", Name: "A"}, s, testCreds); err != nil {
		t.Fatal(err)
	}
	waits := fc.Waits()
	if len(waits) != 1 || waits[0] != 50*time.Millisecond {
		t.Errorf("waits = %v, want one 50ms hold", waits)
	}
}

func TestIssueRequiresCredentials(t *testing.T) {
	iss := newTestIssuer(clock.Fake(time.Now()))
	s := &domain.Session{ID: "x", Kind: domain.KindMeeting}
	_, err := iss.Issue(context.Background(), domain.Participant{Identity: "a"}, s, core.Credentials{URL: "wss://x"})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestIssueRespectsCancelledContext(t *testing.T) {
	iss := NewIssuer(time.Hour, WithSkewHold(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &domain.Session{ID: "x", Kind: domain.KindMeeting}
	if _, err := iss.Issue(ctx, domain.Participant{Identity: "a"}, s, testCreds); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestAdministers(t *testing.T) {
	teacher := domain.Participant{Identity: "t__1", Name: "T", Role: domain.RoleTeacher}
	student := domain.Participant{Identity: "s__1", Name: "S", Role: domain.RoleStudent}
	tt, _ := Mint(testCreds, "room-a", teacher, domain.GrantFor(domain.KindClassroom, domain.RoleTeacher, time.Hour))
	st, _ := Mint(testCreds, "room-a", student, domain.GrantFor(domain.KindClassroom, domain.RoleStudent, time.Hour))

	tc, err := Verify(testCreds, tt, time.Minute)
	if err != nil {
		t.Fatalf("teacher token rejected: %v", err)
	}
	if !tc.Administers("room-a") {
		t.Error("teacher does not administer its room")
	}
	if tc.Administers("room-b") {
		t.Error("teacher administers another room")
	}
	sc, err := Verify(testCreds, st, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Administers("room-a") {
		t.Error("student token administers the room")
	}

	other := testCreds
	other.APISecret = "some-other-secret-that-is-long-enough"
	if _, err := Verify(other, tt, time.Minute); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: err = %v, want ErrInvalidToken", err)
	}
	if _, _, err := VerifyAny([]core.Credentials{other, testCreds}, tt, time.Minute); err != nil {
		t.Errorf("VerifyAny missed the signing backend: %v", err)
	}
}
