package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/domain"
)

type update struct {
	room, identity string
	grant          domain.Grant
}

type recordingTransport struct {
	mu        sync.Mutex
	calls     []string
	updates   []update
	sent      [][]byte
	updateErr error
	sendErr   error
}

func (r *recordingTransport) RoomExists(context.Context, string) (bool, error) { return true, nil }

func (r *recordingTransport) CreateRoom(context.Context, string, time.Duration) error { return nil }

func (r *recordingTransport) UpdatePermission(_ context.Context, room, identity string, g domain.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "update")
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates = append(r.updates, update{room, identity, g})
	return nil
}

func (r *recordingTransport) SendData(_ context.Context, _ string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "send")
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, data)
	return nil
}

func TestGrantUpdatesThenBroadcasts(t *testing.T) {
	rt := &recordingTransport{}
	fc := clock.Fake(time.UnixMilli(1700000000000))
	c := NewCoordinator(time.Hour, fc)

	if err := c.Grant(context.Background(), rt, "sess-1", "s__1"); err != nil {
		t.Fatal(err)
	}
	if len(rt.calls) != 2 || rt.calls[0] != "update" || rt.calls[1] != "send" {
		t.Fatalf("calls = %v, want [update send]", rt.calls)
	}
	g := rt.updates[0].grant
	if !g.CanPublish || !g.CanPublishData || !g.CanSubscribe || !g.CanUpdateOwnMetadata || g.RoomAdmin {
		t.Errorf("grant = %+v", g)
	}
	var env domain.Envelope
	if err := json.Unmarshal(rt.sent[0], &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != domain.MsgPermissionUpdate || env.Action != domain.ActionGrant || env.TargetParticipant != "s__1" || env.Timestamp != 1700000000000 {
		t.Errorf("envelope = %+v", env)
	}
}

func TestRevokeKeepsBaseline(t *testing.T) {
	rt := &recordingTransport{}
	c := NewCoordinator(time.Hour, nil)
	if err := c.Revoke(context.Background(), rt, "sess-1", "s__1"); err != nil {
		t.Fatal(err)
	}
	g := rt.updates[0].grant
	if g.CanPublish || !g.CanPublishData || !g.CanSubscribe || !g.CanUpdateOwnMetadata {
		t.Errorf("revoke grant = %+v", g)
	}
}

func TestFailedUpdateDoesNotBroadcast(t *testing.T) {
	rt := &recordingTransport{updateErr: errors.New("transport down")}
	c := NewCoordinator(time.Hour, nil)
	if err := c.Grant(context.Background(), rt, "sess-1", "s__1"); err == nil {
		t.Fatal("want error")
	}
	if len(rt.sent) != 0 {
		t.Errorf("broadcast after failed update: %d messages", len(rt.sent))
	}
}

func TestFailedBroadcastIsAdvisory(t *testing.T) {
	rt := &recordingTransport{sendErr: errors.New("no peers")}
	c := NewCoordinator(time.Hour, nil)
	if err := c.Grant(context.Background(), rt, "sess-1", "s__1"); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if len(rt.updates) != 1 {
		t.Errorf("updates = %d, want 1", len(rt.updates))
	}
}

func TestInbox(t *testing.T) {
	fc := clock.Fake(time.Unix(0, 0))
	in := NewInbox("s__1", fc)

	grant := domain.Envelope{Type: domain.MsgPermissionUpdate, Action: domain.ActionGrant, TargetParticipant: "s__1", Timestamp: 1}
	n, ok := in.Handle(grant)
	if !ok || n.Kind != NoticeConfirm {
		t.Fatalf("grant notice = %+v, %v", n, ok)
	}
	if _, ok := in.Handle(grant); ok {
		t.Error("duplicate grant raised a second notice")
	}
	other := grant
	other.TargetParticipant = "s__2"
	other.Timestamp = 2
	if _, ok := in.Handle(other); ok {
		t.Error("notice raised for another participant")
	}
	in.Dismiss()
	if _, ok := in.Current(); ok {
		t.Error("notice still visible after dismiss")
	}

	revoke := domain.Envelope{Type: domain.MsgPermissionUpdate, Action: domain.ActionRevoke, TargetParticipant: "s__1", Timestamp: 3}
	n, ok = in.Handle(revoke)
	if !ok || n.Kind != NoticeInfo {
		t.Fatalf("revoke notice = %+v, %v", n, ok)
	}
	fc.Advance(4 * time.Second)
	if _, ok := in.Current(); !ok {
		t.Error("info notice dismissed early")
	}
	fc.Advance(time.Second)
	if _, ok := in.Current(); ok {
		t.Error("info notice still visible after 5s")
	}
}
