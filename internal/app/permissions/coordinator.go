// Package permissions changes what an already connected participant may do
// and tells the room about it.
package permissions

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

// Coordinator is the single writer of live publish rights.
type Coordinator struct {
	ttl    time.Duration
	clock  clock.Clock
	logger zerolog.Logger
}

func NewCoordinator(ttl time.Duration, c clock.Clock) *Coordinator {
	if c == nil {
		c = clock.Real()
	}
	return &Coordinator{
		ttl:    ttl,
		clock:  c,
		logger: log.With().Str("module", "app.permissions").Logger(),
	}
}

func (c *Coordinator) Grant(ctx context.Context, t core.MediaTransport, room domain.SessionID, target string) error {
	return c.Apply(ctx, t, room, target, domain.ActionGrant)
}

func (c *Coordinator) Revoke(ctx context.Context, t core.MediaTransport, room domain.SessionID, target string) error {
	return c.Apply(ctx, t, room, target, domain.ActionRevoke)
}

// Apply writes the capability first and only then announces it. A failed
// write is returned as is and nothing is broadcast; a failed announcement is
// logged and swallowed.
func (c *Coordinator) Apply(ctx context.Context, t core.MediaTransport, room domain.SessionID, target string, action domain.PermissionAction) error {
	if target == "" {
		return fmt.Errorf("target identity: %w", domain.ErrMissingField)
	}
	g := domain.StudentGrant(action == domain.ActionGrant, c.ttl)
	if err := t.UpdatePermission(ctx, string(room), target, g); err != nil {
		c.logger.Error().Err(err).Str("room", string(room)).Str("target", target).Str("action", string(action)).Msg("update permission failed")
		return fmt.Errorf("update permission: %w", err)
	}

	msg, err := domain.PermissionUpdate(action, target, c.clock.Now().UnixMilli())
	if err != nil {
		c.logger.Error().Err(err).Msg("encode permission_update")
		return nil
	}
	if err := t.SendData(ctx, string(room), msg); err != nil {
		c.logger.Warn().Err(err).Str("room", string(room)).Str("target", target).Msg("permission_update broadcast failed")
		return nil
	}
	c.logger.Info().Str("room", string(room)).Str("target", target).Str("action", string(action)).Msg("permission applied")
	return nil
}
