package livekit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/livekit/protocol/livekit"
	"github.com/twitchtv/twirp"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

type fakeRooms struct {
	rooms     []*livekit.Room
	created   []*livekit.CreateRoomRequest
	createErr error
	updated   []*livekit.UpdateParticipantRequest
	sent      []*livekit.SendDataRequest
}

func (f *fakeRooms) ListRooms(_ context.Context, req *livekit.ListRoomsRequest) (*livekit.ListRoomsResponse, error) {
	var out []*livekit.Room
	for _, r := range f.rooms {
		for _, n := range req.Names {
			if r.Name == n {
				out = append(out, r)
			}
		}
	}
	return &livekit.ListRoomsResponse{Rooms: out}, nil
}

func (f *fakeRooms) CreateRoom(_ context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	r := &livekit.Room{Name: req.Name}
	f.rooms = append(f.rooms, r)
	return r, nil
}

func (f *fakeRooms) UpdateParticipant(_ context.Context, req *livekit.UpdateParticipantRequest) (*livekit.ParticipantInfo, error) {
	f.updated = append(f.updated, req)
	return &livekit.ParticipantInfo{Identity: req.Identity}, nil
}

func (f *fakeRooms) SendData(_ context.Context, req *livekit.SendDataRequest) (*livekit.SendDataResponse, error) {
	f.sent = append(f.sent, req)
	return &livekit.SendDataResponse{}, nil
}

func TestCreateRoomUsesEmptyTimeout(t *testing.T) {
	fr := &fakeRooms{}
	tr := NewTransport(fr, "primary")
	ctx := context.Background()

	if ok, _ := tr.RoomExists(ctx, "sess-1"); ok {
		t.Fatal("room exists before create")
	}
	if err := tr.CreateRoom(ctx, "sess-1", 7*24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if got := fr.created[0].EmptyTimeout; got != 604800 {
		t.Errorf("EmptyTimeout = %d, want 604800", got)
	}
	if ok, _ := tr.RoomExists(ctx, "sess-1"); !ok {
		t.Error("room missing after create")
	}
}

func TestCreateRoomAlreadyExists(t *testing.T) {
	fr := &fakeRooms{createErr: twirp.NewError(twirp.AlreadyExists, "room exists")}
	tr := NewTransport(fr, "primary")
	if err := tr.CreateRoom(context.Background(), "sess-1", time.Hour); !errors.Is(err, core.ErrRoomExists) {
		t.Fatalf("err = %v, want ErrRoomExists", err)
	}
	fr.createErr = twirp.NewError(twirp.Unavailable, "down")
	if err := tr.CreateRoom(context.Background(), "sess-1", time.Hour); err == nil || errors.Is(err, core.ErrRoomExists) {
		t.Fatalf("err = %v, want a plain failure", err)
	}
}

func TestUpdatePermissionWritesWholeSet(t *testing.T) {
	fr := &fakeRooms{}
	tr := NewTransport(fr, "primary")
	if err := tr.UpdatePermission(context.Background(), "sess-1", "s__1", domain.StudentGrant(true, time.Hour)); err != nil {
		t.Fatal(err)
	}
	p := fr.updated[0].Permission
	if !p.CanPublish || !p.CanPublishData || !p.CanSubscribe || !p.CanUpdateMetadata {
		t.Errorf("permission = %+v", p)
	}
}

func TestSendDataIsReliable(t *testing.T) {
	fr := &fakeRooms{}
	tr := NewTransport(fr, "primary")
	if err := tr.SendData(context.Background(), "sess-1", []byte(`{"type":"x"}`)); err != nil {
		t.Fatal(err)
	}
	if fr.sent[0].Kind != livekit.DataPacket_RELIABLE || fr.sent[0].Room != "sess-1" {
		t.Errorf("request = %+v", fr.sent[0])
	}
}

func TestFactoryCachesPerBackend(t *testing.T) {
	f := NewFactory()
	calls := 0
	f.newClient = func(core.Credentials) RoomService { calls++; return &fakeRooms{} }
	a := core.Credentials{URL: "wss://a", APIKey: "k"}
	b := core.Credentials{URL: "wss://b", APIKey: "k"}
	if f.Transport(a) != f.Transport(a) {
		t.Error("same backend got two transports")
	}
	f.Transport(b)
	if calls != 2 {
		t.Errorf("clients = %d, want 2", calls)
	}
}
