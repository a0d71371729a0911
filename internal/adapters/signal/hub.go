package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/app/grants"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

var ErrRoomNotFound = fmt.Errorf("room not found")

// Verifier turns an access token into the claims of its bearer.
type Verifier func(raw string) (*grants.Claims, error)

// Hub serves every credential set from one process. It implements both
// core.MediaTransport and core.TransportFactory.
type Hub struct {
	Rooms   *core.Rooms
	Policy  Policy
	Limiter *RateLimiter

	verify     Verifier
	readLimit  int64
	pingPeriod time.Duration
	queue      int

	policyMu sync.Mutex
}

type Option func(*Hub)

func WithReadLimit(n int64) Option         { return func(h *Hub) { h.readLimit = n } }
func WithPingPeriod(d time.Duration) Option { return func(h *Hub) { h.pingPeriod = d } }
func WithPolicy(p Policy) Option            { return func(h *Hub) { h.Policy = p } }
func WithRateLimit(limit int, per time.Duration) Option {
	return func(h *Hub) { h.Limiter = NewRateLimiter(limit, per) }
}

func NewHub(verify Verifier, opts ...Option) *Hub {
	h := &Hub{
		Rooms:      core.NewRooms(),
		Policy:     NewSimplePolicy(8),
		verify:     verify,
		readLimit:  32 << 10,
		pingPeriod: 54 * time.Second,
		queue:      64,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Hub) Transport(core.Credentials) core.MediaTransport { return h }

func (h *Hub) RoomExists(_ context.Context, room string) (bool, error) {
	_, ok := h.Rooms.Get(room)
	return ok, nil
}

func (h *Hub) CreateRoom(_ context.Context, room string, emptyTimeout time.Duration) error {
	_, err := h.Rooms.Create(room, emptyTimeout)
	return err
}

type permissionState struct {
	CanPublish        bool `json:"canPublish"`
	CanPublishData    bool `json:"canPublishData"`
	CanSubscribe      bool `json:"canSubscribe"`
	CanUpdateMetadata bool `json:"canUpdateMetadata"`
}

// UpdatePermission swaps the live grant and notifies its holder, the way a
// media server raises a permission changed event.
func (h *Hub) UpdatePermission(_ context.Context, room, identity string, g domain.Grant) error {
	r, ok := h.Rooms.Get(room)
	if !ok {
		return fmt.Errorf("%s: %w", room, ErrRoomNotFound)
	}
	ms, ok := r.Member(identity)
	if !ok {
		return fmt.Errorf("%s: %w", identity, ErrParticipantNotFound)
	}
	g.RoomAdmin = ms.Grant().RoomAdmin
	g.RoomRecord = ms.Grant().RoomRecord
	ms.SetGrant(g)

	msg, err := domain.NewEnvelope(domain.MsgPermissionsChanged, permissionState{
		CanPublish:        g.CanPublish,
		CanPublishData:    g.CanPublishData,
		CanSubscribe:      g.CanSubscribe,
		CanUpdateMetadata: g.CanUpdateOwnMetadata,
	})
	if err == nil {
		err = ms.Signal().TrySend(msg)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", room).Str("identity", identity).Msg("permissions_changed not delivered")
	}
	log.Info().Str("module", "signal").Str("room", room).Str("identity", identity).Bool("can_publish", g.CanPublish).Msg("permission updated")
	return nil
}

// SendData is a server originated broadcast to the whole room.
func (h *Hub) SendData(_ context.Context, room string, data []byte) error {
	r, ok := h.Rooms.Get(room)
	if !ok {
		return fmt.Errorf("%s: %w", room, ErrRoomNotFound)
	}
	h.publish(r, "", core.Frame(data))
	return nil
}

func (h *Hub) publish(room core.RoomService, from string, data core.Frame) {
	res := room.Broadcast(from, data)
	if h.Policy == nil || len(res.Dropped) == 0 {
		return
	}
	h.policyMu.Lock()
	defer h.policyMu.Unlock()
	for _, id := range res.Dropped {
		slow, ok := room.Member(id)
		if !ok {
			continue
		}
		switch h.Policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "signal").Str("room", room.Name()).Str("identity", id).Msg("kicking slow member")
			slow.Signal().Close()
		case DropFrame, NoAction:
		}
	}
}

func (h *Hub) forget(ms core.MemberSession) {
	if p, ok := h.Policy.(*SimplePolicy); ok {
		h.policyMu.Lock()
		p.Forget(ms)
		h.policyMu.Unlock()
	}
	h.Limiter.Forget(ms.Meta().Identity)
}

// Run stops rooms that outlived their empty timeout until ctx is done.
func (h *Hub) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			h.Rooms.Reap(now)
		}
	}
}
