package core

import (
	"context"

	"github.com/dkeye/Classroom/internal/domain"
)

// SessionStore is the durable keyed record store for sessions.
// Create returns domain.ErrRoomCodeTaken when (org, code) already exists;
// lookups return domain.ErrSessionNotFound on a miss.
type SessionStore interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	SessionByID(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	// SessionByCode restricts the lookup to org when it is non-empty.
	SessionByCode(ctx context.Context, code domain.RoomCode, org domain.OrgID) (*domain.Session, error)
	UpdateSettings(ctx context.Context, id domain.SessionID, upd domain.SettingsUpdate) (*domain.Session, error)
}

type ParticipationStore interface {
	RecordParticipation(ctx context.Context, p domain.Participation) error
}

// TranscriptStore keeps at most one row per domain.SegmentKey. SaveSegment
// reports false when the row already existed.
type TranscriptStore interface {
	SaveSegment(ctx context.Context, seg domain.Segment) (bool, error)
	Segments(ctx context.Context, id domain.SessionID, source domain.SourceKind) ([]domain.StoredSegment, error)
}

// RequestLedger enforces one pending request per requester on the server.
// Claim is idempotent for the same request id and returns false when another
// request of the requester is still pending.
type RequestLedger interface {
	Claim(ctx context.Context, id domain.SessionID, identity, requestID string) (bool, error)
	Release(ctx context.Context, id domain.SessionID, identity, requestID string) error
}
