package grants

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

var ErrInvalidToken = errors.New("invalid access token")

// videoClaim mirrors the transport's "video" claim, only the fields we check.
type videoClaim struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	RoomAdmin      bool   `json:"roomAdmin"`
	CanPublish     *bool  `json:"canPublish,omitempty"`
	CanPublishData *bool  `json:"canPublishData,omitempty"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Name     string      `json:"name"`
	Metadata   string            `json:"metadata"`
	Attributes map[string]string `json:"attributes"`
	Video      *videoClaim       `json:"video"`
}

// Claims is what a verified token says about its bearer.
type Claims struct {
	Identity       string
	Name           string
	Role           domain.Role
	Room           string
	RoomAdmin      bool
	CanPublish     bool
	CanPublishData bool
	Attributes     map[string]string
	ExpiresAt      time.Time
}

// Verify checks signature, issuer and expiry of a token minted with creds.
func Verify(creds core.Credentials, raw string, leeway time.Duration) (*Claims, error) {
	var c accessClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return []byte(creds.APISecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(creds.APIKey),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Video == nil || c.Subject == "" {
		return nil, fmt.Errorf("%w: missing grant", ErrInvalidToken)
	}
	out := &Claims{
		Identity:       c.Subject,
		Name:           c.Name,
		Role:           domain.RoleFromMetadata(c.Metadata),
		Room:           c.Video.Room,
		RoomAdmin:      c.Video.RoomAdmin,
		CanPublish:     c.Video.CanPublish == nil || *c.Video.CanPublish,
		CanPublishData: c.Video.CanPublishData == nil || *c.Video.CanPublishData,
		Attributes:     c.Attributes,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

// Administers reports whether the bearer is an admin of room.
func (c *Claims) Administers(room string) bool {
	return c.Room == room && c.RoomAdmin
}

// VerifyAny tries every backend and returns the one that signed raw.
func VerifyAny(all []core.Credentials, raw string, leeway time.Duration) (*Claims, core.Credentials, error) {
	if raw == "" {
		return nil, core.Credentials{}, ErrInvalidToken
	}
	if len(all) == 0 {
		return nil, core.Credentials{}, domain.ErrNotConfigured
	}
	var lastErr error
	for _, c := range all {
		claims, err := Verify(c, raw, leeway)
		if err == nil {
			return claims, c, nil
		}
		lastErr = err
	}
	return nil, core.Credentials{}, lastErr
}
