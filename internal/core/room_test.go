package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Classroom/internal/domain"
)

var errFull = errors.New("full")

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	full   bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errFull
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func member(identity string, role domain.Role) (MemberSession, *fakeConn) {
	c := &fakeConn{}
	p := domain.Participant{Identity: identity, Name: identity, Role: role}
	return NewMemberSession(p, domain.GrantFor(domain.KindClassroom, role, time.Hour), c), c
}

func TestBroadcastSkipsSender(t *testing.T) {
	r := newRoom("room", time.Now())
	a, ca := member("a", domain.RoleTeacher)
	b, cb := member("b", domain.RoleStudent)
	c, cc := member("c", domain.RoleStudent)
	cc.full = true
	r.AddMember(a)
	r.AddMember(b)
	r.AddMember(c)

	res := r.Broadcast("a", Frame("hi"))
	if res.SendTo != 1 {
		t.Errorf("SendTo = %d, want 1", res.SendTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "c" {
		t.Errorf("Dropped = %v, want [c]", res.Dropped)
	}
	if ca.count() != 0 || cb.count() != 1 {
		t.Errorf("frames a=%d b=%d, want 0 1", ca.count(), cb.count())
	}

	res = r.Broadcast("", Frame("all"))
	if res.SendTo != 2 {
		t.Errorf("server broadcast SendTo = %d, want 2", res.SendTo)
	}
}

func TestRemoveIgnoresStaleSession(t *testing.T) {
	r := newRoom("room", time.Now())
	old, _ := member("a", domain.RoleStudent)
	fresh, _ := member("a", domain.RoleStudent)
	r.AddMember(old)
	r.AddMember(fresh)

	if r.RemoveMember("a", old) {
		t.Error("stale remove reported success")
	}
	if got, ok := r.Member("a"); !ok || got != fresh {
		t.Fatalf("stale remove evicted the live session")
	}
	if !r.RemoveMember("a", fresh) {
		t.Error("live remove reported failure")
	}
	if r.MemberCount() != 0 {
		t.Errorf("MemberCount = %d, want 0", r.MemberCount())
	}
}

func TestMembersSnapshotSorted(t *testing.T) {
	r := newRoom("room", time.Now())
	for _, id := range []string{"c", "a", "b"} {
		m, _ := member(id, domain.RoleStudent)
		r.AddMember(m)
	}
	snap := r.MembersSnapshot()
	if len(snap) != 3 || snap[0].Identity != "a" || snap[2].Identity != "c" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRoomsCreateAndReap(t *testing.T) {
	m := NewRooms()
	if _, err := m.Create("x", time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create("x", time.Minute); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("second Create err = %v, want ErrRoomExists", err)
	}
	busy, _ := m.Create("busy", time.Minute)
	ms, _ := member("a", domain.RoleStudent)
	busy.AddMember(ms)

	if got := m.Reap(time.Now()); len(got) != 0 {
		t.Errorf("Reap too early stopped %v", got)
	}
	got := m.Reap(time.Now().Add(2 * time.Minute))
	if len(got) != 1 || got[0] != "x" {
		t.Errorf("Reap = %v, want [x]", got)
	}
	if _, ok := m.Get("busy"); !ok {
		t.Error("occupied room was reaped")
	}
}
