package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dkeye/Classroom/internal/domain"
)

func (s *Store) SaveSegment(_ context.Context, seg domain.Segment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves != nil {
		return false, s.FailSaves
	}
	k := seg.Key()
	if _, ok := s.segments[k]; ok {
		return false, nil
	}
	s.segments[k] = domain.StoredSegment{Segment: seg, CreatedAt: time.Now().UTC()}
	return true, nil
}

func (s *Store) Segments(_ context.Context, id domain.SessionID, source domain.SourceKind) ([]domain.StoredSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.StoredSegment{}
	for k, seg := range s.segments {
		if k.SessionID == id && (source == "" || k.Source == source) {
			out = append(out, seg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TimestampMs != b.TimestampMs {
			return a.TimestampMs < b.TimestampMs
		}
		if a.SegmentID != b.SegmentID {
			return a.SegmentID < b.SegmentID
		}
		return a.Language < b.Language
	})
	return out, nil
}
