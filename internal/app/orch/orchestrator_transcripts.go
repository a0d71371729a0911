package orch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

type SegmentRequest struct {
	SessionID           string `json:"sessionId"`
	SegmentID           string `json:"segmentId"`
	Text                string `json:"text"`
	Language            string `json:"language"`
	ParticipantIdentity string `json:"participantIdentity"`
	ParticipantName     string `json:"participantName"`
	TimestampMs         int64  `json:"timestampMs"`
}

// SaveSegment stores one final segment. The speaker identity is required;
// its display name falls back to the identity. Ad-hoc sessions have no durable
// record and are refused with ErrSessionNotFound. Stored reports false for a
// duplicate, which is not an error.
func (o *Orchestrator) SaveSegment(ctx context.Context, source domain.SourceKind, req SegmentRequest) (stored bool, err error) {
	if req.SessionID == "" || strings.TrimSpace(req.Text) == "" || req.Language == "" || req.ParticipantIdentity == "" {
		return false, domain.ErrMissingField
	}
	if req.TimestampMs < 0 {
		return false, domain.ErrInvalidTimestamp
	}
	if req.ParticipantName == "" {
		req.ParticipantName = req.ParticipantIdentity
	}
	id := domain.SessionID(req.SessionID)
	if _, err := o.Sessions.SessionByID(ctx, id); err != nil {
		return false, err
	}
	seg := domain.Segment{
		SegmentID:           req.SegmentID,
		SessionID:           id,
		Text:                req.Text,
		Language:            strings.ToLower(req.Language),
		ParticipantIdentity: req.ParticipantIdentity,
		ParticipantName:     req.ParticipantName,
		TimestampMs:         req.TimestampMs,
		Final:               true,
		Source:              source,
	}
	if seg.SegmentID == "" {
		seg.SegmentID = uuid.NewString()
	}
	stored, err = o.Transcripts.SaveSegment(ctx, seg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("session", req.SessionID).Str("segment", seg.SegmentID).Msg("save segment")
		return false, fmt.Errorf("save segment: %w", err)
	}
	return stored, nil
}

func (o *Orchestrator) Segments(ctx context.Context, id domain.SessionID, source domain.SourceKind) ([]domain.StoredSegment, error) {
	if _, err := o.Sessions.SessionByID(ctx, id); err != nil {
		return nil, err
	}
	return o.Transcripts.Segments(ctx, id, source)
}
