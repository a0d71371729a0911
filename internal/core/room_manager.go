package core

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type managedRoom struct {
	room         *roomImpl
	emptyTimeout time.Duration
}

// Rooms owns every room of the local transport.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[string]*managedRoom
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]*managedRoom)}
}

func (m *Rooms) Get(name string) (RoomService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[name]
	if !ok {
		return nil, false
	}
	return r.room, true
}

func (m *Rooms) Create(name string, emptyTimeout time.Duration) (RoomService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[name]; ok {
		return nil, ErrRoomExists
	}
	r := newRoom(name, time.Now())
	m.rooms[name] = &managedRoom{room: r, emptyTimeout: emptyTimeout}
	log.Info().Str("module", "core.rooms").Str("room", name).Dur("empty_timeout", emptyTimeout).Msg("room created")
	return r, nil
}

func (m *Rooms) List() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for name, r := range m.rooms {
		out = append(out, RoomInfo{Name: name, MemberCount: r.room.MemberCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reap stops rooms that stayed empty longer than their timeout.
func (m *Rooms) Reap(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stopped []string
	for name, r := range m.rooms {
		since := r.room.idleSince()
		if since.IsZero() || r.emptyTimeout <= 0 {
			continue
		}
		if now.Sub(since) >= r.emptyTimeout {
			delete(m.rooms, name)
			stopped = append(stopped, name)
		}
	}
	if len(stopped) > 0 {
		log.Info().Str("module", "core.rooms").Strs("rooms", stopped).Msg("reaped empty rooms")
	}
	return stopped
}
