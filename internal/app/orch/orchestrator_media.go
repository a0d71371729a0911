package orch

import (
	"time"

	"github.com/dkeye/Classroom/internal/app/grants"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

const tokenLeeway = 10 * time.Second

// verify finds the backend that signed raw.
func (o *Orchestrator) verify(raw string) (*grants.Claims, core.Credentials, error) {
	return grants.VerifyAny(o.Credentials.All(), raw, tokenLeeway)
}

// verifyAdmin accepts a token only when it administers room.
func (o *Orchestrator) verifyAdmin(raw, room string) (*grants.Claims, core.MediaTransport, error) {
	claims, creds, err := o.verify(raw)
	if err != nil {
		return nil, nil, err
	}
	if !claims.Administers(room) {
		return nil, nil, domain.ErrForbidden
	}
	return claims, o.Transports.Transport(creds), nil
}

// verifyMember accepts any token for room.
func (o *Orchestrator) verifyMember(raw, room string) (*grants.Claims, error) {
	claims, _, err := o.verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Room != room {
		return nil, domain.ErrForbidden
	}
	return claims, nil
}
