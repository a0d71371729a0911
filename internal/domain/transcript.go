package domain

import "time"

type SourceKind string

const (
	SourceTranscription SourceKind = "transcription"
	SourceTranslation   SourceKind = "translation"
)

// Segment is one unit of recognized or translated speech. SegmentID comes from
// the upstream producer.
type Segment struct {
	SegmentID           string     `json:"id"`
	SessionID           SessionID  `json:"sessionId,omitempty"`
	Text                string     `json:"text"`
	Language            string     `json:"language"`
	ParticipantIdentity string     `json:"participantIdentity,omitempty"`
	ParticipantName     string     `json:"participantName,omitempty"`
	TimestampMs         int64      `json:"timestampMs"`
	Final               bool       `json:"final"`
	Source              SourceKind `json:"sourceKind,omitempty"`
}

// SegmentKey identifies a stored row; the store keeps at most one per key.
type SegmentKey struct {
	SessionID SessionID
	SegmentID string
	Language  string
	Source    SourceKind
}

func (s Segment) Key() SegmentKey {
	return SegmentKey{SessionID: s.SessionID, SegmentID: s.SegmentID, Language: s.Language, Source: s.Source}
}

// StoredSegment is a persisted segment row.
type StoredSegment struct {
	Segment
	CreatedAt time.Time `json:"createdAt"`
}
