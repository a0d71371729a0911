// Package resolver turns human room codes into durable session identities
// and provisions the matching media room on demand.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

// DefaultRoomExpiry keeps an empty media room around for a week.
const DefaultRoomExpiry = 7 * 24 * time.Hour

// Resolution is the outcome of a lookup. Found is false for ad-hoc sessions.
type Resolution struct {
	SessionID domain.SessionID
	Session   *domain.Session
	Found     bool
}

type Resolver struct {
	sessions       core.SessionStore
	participations core.ParticipationStore
	roomExpiry     time.Duration
	logger         zerolog.Logger

	mu       sync.Mutex
	inflight map[string]*ensureCall
}

type ensureCall struct {
	done chan struct{}
	err  error
}

func New(sessions core.SessionStore, participations core.ParticipationStore, roomExpiry time.Duration) *Resolver {
	if roomExpiry <= 0 {
		roomExpiry = DefaultRoomExpiry
	}
	return &Resolver{
		sessions:       sessions,
		participations: participations,
		roomExpiry:     roomExpiry,
		logger:         log.With().Str("module", "app.resolver").Logger(),
		inflight:       make(map[string]*ensureCall),
	}
}

// Resolve looks code up within org when org is known, unscoped otherwise.
// A miss is not an error: the raw code becomes an ad-hoc session id.
func (r *Resolver) Resolve(ctx context.Context, code domain.RoomCode, org domain.OrgID) (Resolution, error) {
	s, err := r.sessions.SessionByCode(ctx, code, org)
	switch {
	case err == nil:
		return Resolution{SessionID: s.ID, Session: s, Found: true}, nil
	case errors.Is(err, domain.ErrSessionNotFound):
		r.logger.Info().Str("code", string(code)).Str("org", string(org)).Msg("room code not registered, using ad-hoc session")
		return Resolution{SessionID: domain.SessionID(code)}, nil
	default:
		return Resolution{}, fmt.Errorf("resolve room code: %w", err)
	}
}

// EnsureMediaRoom creates the media room for id unless it already exists.
// Calls for the same id inside this process share one round trip; a create
// that loses a race with another process counts as success.
func (r *Resolver) EnsureMediaRoom(ctx context.Context, t core.MediaTransport, id domain.SessionID) error {
	key := string(id)
	r.mu.Lock()
	if c, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c := &ensureCall{done: make(chan struct{})}
	r.inflight[key] = c
	r.mu.Unlock()

	c.err = r.ensure(ctx, t, key)

	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
	close(c.done)
	return c.err
}

func (r *Resolver) ensure(ctx context.Context, t core.MediaTransport, room string) error {
	exists, err := t.RoomExists(ctx, room)
	if err != nil {
		return fmt.Errorf("list media rooms: %w", err)
	}
	if exists {
		return nil
	}
	err = t.CreateRoom(ctx, room, r.roomExpiry)
	if errors.Is(err, core.ErrRoomExists) {
		r.logger.Debug().Str("room", room).Msg("media room created concurrently")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create media room: %w", err)
	}
	r.logger.Info().Str("room", room).Dur("empty_timeout", r.roomExpiry).Msg("media room created")
	return nil
}

// RecordParticipation is best effort: it logs and never fails the join.
func (r *Resolver) RecordParticipation(ctx context.Context, id domain.SessionID, p domain.Participant, at time.Time) {
	if r.participations == nil {
		return
	}
	err := r.participations.RecordParticipation(ctx, domain.Participation{
		SessionID: id,
		Identity:  p.Identity,
		Name:      p.Name,
		Role:      p.Role,
		JoinedAt:  at,
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("session", string(id)).Str("identity", p.Identity).Msg("record participation failed")
	}
}
