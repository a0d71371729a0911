// Package livekit is the media transport backed by a LiveKit server.
package livekit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/twitchtv/twirp"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

// RoomService is the part of lksdk.RoomServiceClient the transport calls.
type RoomService interface {
	ListRooms(ctx context.Context, req *livekit.ListRoomsRequest) (*livekit.ListRoomsResponse, error)
	CreateRoom(ctx context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error)
	UpdateParticipant(ctx context.Context, req *livekit.UpdateParticipantRequest) (*livekit.ParticipantInfo, error)
	SendData(ctx context.Context, req *livekit.SendDataRequest) (*livekit.SendDataResponse, error)
}

type Transport struct {
	rooms  RoomService
	logger zerolog.Logger
}

func NewTransport(rooms RoomService, backend string) *Transport {
	return &Transport{
		rooms:  rooms,
		logger: log.With().Str("module", "adapters.livekit").Str("backend", backend).Logger(),
	}
}

func (t *Transport) RoomExists(ctx context.Context, room string) (bool, error) {
	res, err := t.rooms.ListRooms(ctx, &livekit.ListRoomsRequest{Names: []string{room}})
	if err != nil {
		return false, fmt.Errorf("list rooms: %w", err)
	}
	for _, r := range res.GetRooms() {
		if r.GetName() == room {
			return true, nil
		}
	}
	return false, nil
}

func (t *Transport) CreateRoom(ctx context.Context, room string, emptyTimeout time.Duration) error {
	_, err := t.rooms.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:         room,
		EmptyTimeout: uint32(emptyTimeout / time.Second),
	})
	var terr twirp.Error
	if errors.As(err, &terr) && terr.Code() == twirp.AlreadyExists {
		return core.ErrRoomExists
	}
	if err != nil {
		return fmt.Errorf("create room %s: %w", room, err)
	}
	t.logger.Info().Str("room", room).Msg("room created")
	return nil
}

// UpdatePermission writes the whole permission set; LiveKit replaces it.
func (t *Transport) UpdatePermission(ctx context.Context, room, identity string, g domain.Grant) error {
	_, err := t.rooms.UpdateParticipant(ctx, &livekit.UpdateParticipantRequest{
		Room:     room,
		Identity: identity,
		Permission: &livekit.ParticipantPermission{
			CanPublish:        g.CanPublish,
			CanPublishData:    g.CanPublishData,
			CanSubscribe:      g.CanSubscribe,
			CanUpdateMetadata: g.CanUpdateOwnMetadata,
		},
	})
	if err != nil {
		return fmt.Errorf("update participant %s: %w", identity, err)
	}
	return nil
}

func (t *Transport) SendData(ctx context.Context, room string, data []byte) error {
	_, err := t.rooms.SendData(ctx, &livekit.SendDataRequest{
		Room: room,
		Data: data,
		Kind: livekit.DataPacket_RELIABLE,
	})
	if err != nil {
		return fmt.Errorf("send data: %w", err)
	}
	return nil
}

// Factory hands out one transport per backend.
type Factory struct {
	mu         sync.RWMutex
	transports map[string]*Transport
	newClient  func(c core.Credentials) RoomService
}

func NewFactory() *Factory {
	return &Factory{
		transports: make(map[string]*Transport),
		newClient: func(c core.Credentials) RoomService {
			return lksdk.NewRoomServiceClient(c.URL, c.APIKey, c.APISecret)
		},
	}
}

func (f *Factory) Transport(c core.Credentials) core.MediaTransport {
	key := c.URL + "|" + c.APIKey
	f.mu.RLock()
	t, ok := f.transports[key]
	f.mu.RUnlock()
	if ok {
		return t
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.transports[key]; ok {
		return t
	}
	t = NewTransport(f.newClient(c), c.Name)
	f.transports[key] = t
	return t
}
