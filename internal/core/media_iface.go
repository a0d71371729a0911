package core

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Classroom/internal/domain"
)

// ErrRoomExists is what adapters return when a create races with another one.
var ErrRoomExists = errors.New("media room already exists")

// Credentials select one media backend.
type Credentials struct {
	Name      string
	URL       string
	APIKey    string
	APISecret string
	Regions   map[string]string
}

func (c Credentials) Configured() bool {
	return c.URL != "" && c.APIKey != "" && c.APISecret != ""
}

// URLFor returns the region specific URL when one is configured.
func (c Credentials) URLFor(region string) string {
	if u, ok := c.Regions[region]; ok && u != "" {
		return u
	}
	return c.URL
}

// MediaTransport is the server side of the external media layer.
// It never reads capability state back; it only writes it.
type MediaTransport interface {
	RoomExists(ctx context.Context, room string) (bool, error)
	// CreateRoom returns ErrRoomExists when the room was created concurrently.
	CreateRoom(ctx context.Context, room string, emptyTimeout time.Duration) error
	UpdatePermission(ctx context.Context, room, identity string, g domain.Grant) error
	// SendData broadcasts a reliable data packet to every participant.
	SendData(ctx context.Context, room string, data []byte) error
}

// TransportFactory returns the transport bound to a credential set.
type TransportFactory interface {
	Transport(c Credentials) MediaTransport
}
