// Package grants issues and verifies the signed capability tokens
// participants present to the media transport.
package grants

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

// Token is an issued capability grant.
type Token struct {
	JWT   string
	TTL   time.Duration
	Grant domain.Grant
}

// Issuer mints long-lived join tokens. Re-issuing mid-session forces a
// reconnect, so TTL is measured in hours.
type Issuer struct {
	ttl    time.Duration
	hold   time.Duration
	clock  clock.Clock
	logger zerolog.Logger
}

type Option func(*Issuer)

// WithSkewHold sets how long Issue waits before handing out a token so the
// verifying edge never sees it as not yet valid.
func WithSkewHold(d time.Duration) Option { return func(i *Issuer) { i.hold = d } }

func WithClock(c clock.Clock) Option { return func(i *Issuer) { i.clock = c } }

func NewIssuer(ttl time.Duration, opts ...Option) *Issuer {
	i := &Issuer{
		ttl:    ttl,
		hold:   50 * time.Millisecond,
		clock:  clock.Real(),
		logger: log.With().Str("module", "app.grants").Logger(),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Issue builds the grant for p in session s and signs it with creds.
func (i *Issuer) Issue(ctx context.Context, p domain.Participant, s *domain.Session, creds core.Credentials) (Token, error) {
	if !creds.Configured() {
		return Token{}, domain.ErrNotConfigured
	}
	g := domain.GrantFor(s.Kind, p.Role, i.ttl)
	jwt, err := Mint(creds, string(s.ID), p, g)
	if err != nil {
		return Token{}, err
	}

	select {
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case <-i.clock.After(i.hold):
	}

	i.logger.Info().
		Str("room", string(s.ID)).
		Str("identity", p.Identity).
		Str("role", string(p.Role)).
		Bool("can_publish", g.CanPublish).
		Msg("grant issued")
	return Token{JWT: jwt, TTL: i.ttl, Grant: g}, nil
}

// Mint signs g for p in room without any hold.
func Mint(creds core.Credentials, room string, p domain.Participant, g domain.Grant) (string, error) {
	vg := &auth.VideoGrant{
		RoomJoin:   true,
		Room:       room,
		RoomAdmin:  g.RoomAdmin,
		RoomRecord: g.RoomRecord,
	}
	vg.SetCanPublish(g.CanPublish)
	vg.SetCanPublishData(g.CanPublishData)
	vg.SetCanSubscribe(g.CanSubscribe)
	vg.SetCanUpdateOwnMetadata(g.CanUpdateOwnMetadata)

	at := auth.NewAccessToken(creds.APIKey, creds.APISecret).
		SetVideoGrant(vg).
		SetIdentity(p.Identity).
		SetName(p.Name).
		SetMetadata(p.MetadataJSON()).
		SetValidFor(g.TTL)
	if attrs := p.Attributes(); attrs != nil {
		at.SetAttributes(attrs)
	}
	jwt, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return jwt, nil
}
