// Package orch wires the coordination components into the operations the
// HTTP surface exposes.
package orch

import (
	"time"

	"github.com/dkeye/Classroom/internal/app/credentials"
	"github.com/dkeye/Classroom/internal/app/grants"
	"github.com/dkeye/Classroom/internal/app/permissions"
	"github.com/dkeye/Classroom/internal/app/resolver"
	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/core"
)

type Orchestrator struct {
	Sessions    core.SessionStore
	Transcripts core.TranscriptStore
	Ledger      core.RequestLedger
	Resolver    *resolver.Resolver
	Credentials *credentials.Router
	Issuer      *grants.Issuer
	Permissions *permissions.Coordinator
	Transports  core.TransportFactory
	Clock       clock.Clock
}

// Stores groups the persistence ports New needs.
type Stores struct {
	Sessions       core.SessionStore
	Participations core.ParticipationStore
	Transcripts    core.TranscriptStore
	Ledger         core.RequestLedger
}

type Options struct {
	TokenTTL   time.Duration
	SkewHold   time.Duration
	RoomExpiry time.Duration
	Clock      clock.Clock
}

func New(st Stores, router *credentials.Router, transports core.TransportFactory, opts Options) *Orchestrator {
	c := opts.Clock
	if c == nil {
		c = clock.Real()
	}
	return &Orchestrator{
		Sessions:    st.Sessions,
		Transcripts: st.Transcripts,
		Ledger:      st.Ledger,
		Resolver:    resolver.New(st.Sessions, st.Participations, opts.RoomExpiry),
		Credentials: router,
		Issuer:      grants.NewIssuer(opts.TokenTTL, grants.WithSkewHold(opts.SkewHold), grants.WithClock(c)),
		Permissions: permissions.NewCoordinator(opts.TokenTTL, c),
		Transports:  transports,
		Clock:       c,
	}
}
