package peer

import (
	"context"

	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/domain"
)

// slots backs the request engine with the server's pending ledger. A
// student claims and withdraws with its own token; a teacher approves and
// resolves with its admin token.
type slots struct {
	api     *API
	room    string
	token   string
	teacher bool
}

func (s *slots) slot(r domain.Request) orch.RequestSlot {
	out := orch.RequestSlot{RoomName: s.room, RequestID: r.ID, RequesterIdentity: r.RequesterIdentity}
	if s.teacher {
		out.TeacherToken = s.token
	} else {
		out.Token = s.token
	}
	return out
}

func (s *slots) Claim(ctx context.Context, r domain.Request) error {
	return s.api.ClaimRequest(ctx, s.slot(r))
}

func (s *slots) Release(ctx context.Context, r domain.Request) error {
	sl := s.slot(r)
	sl.Status = domain.StatusDeclined
	return s.api.ResolveRequest(ctx, sl)
}

func (s *slots) Approve(ctx context.Context, r domain.Request) error {
	return s.api.ApproveRequest(ctx, s.slot(r))
}

func (s *slots) Resolve(ctx context.Context, r domain.Request, st domain.RequestStatus) error {
	sl := s.slot(r)
	sl.Status = st
	return s.api.ResolveRequest(ctx, sl)
}

// segmentSink persists routed caption segments through the API.
type segmentSink struct {
	api *API
}

func (s segmentSink) Persist(ctx context.Context, seg domain.Segment) error {
	_, err := s.api.SaveSegment(ctx, seg.Source, orch.SegmentRequest{
		SessionID:           string(seg.SessionID),
		SegmentID:           seg.SegmentID,
		Text:                seg.Text,
		Language:            seg.Language,
		ParticipantIdentity: seg.ParticipantIdentity,
		ParticipantName:     seg.ParticipantName,
		TimestampMs:         seg.TimestampMs,
	})
	return err
}
