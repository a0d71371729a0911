// Package memory holds process-local stores used in dev mode and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Classroom/internal/domain"
)

type codeKey struct {
	org  domain.OrgID
	code domain.RoomCode
}

// Store implements the session, participation and transcript stores.
type Store struct {
	mu             sync.RWMutex
	sessions       map[domain.SessionID]*domain.Session
	byCode         map[codeKey]domain.SessionID
	participations []domain.Participation
	segments       map[domain.SegmentKey]domain.StoredSegment

	// FailSaves makes SaveSegment fail, for exercising retry paths.
	FailSaves error
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[domain.SessionID]*domain.Session),
		byCode:   make(map[codeKey]domain.SessionID),
		segments: make(map[domain.SegmentKey]domain.StoredSegment),
	}
}

func (s *Store) CreateSession(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := codeKey{org: sess.OrgID, code: sess.RoomCode}
	if _, ok := s.byCode[k]; ok {
		return domain.ErrRoomCodeTaken
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	s.byCode[k] = sess.ID
	return nil
}

func (s *Store) SessionByID(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) SessionByCode(_ context.Context, code domain.RoomCode, org domain.OrgID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if org != "" {
		id, ok := s.byCode[codeKey{org: org, code: code}]
		if !ok {
			return nil, domain.ErrSessionNotFound
		}
		cp := *s.sessions[id]
		return &cp, nil
	}
	// Unscoped: oldest session with the code wins, like the SQL store.
	var found *domain.Session
	for k, id := range s.byCode {
		if k.code != code {
			continue
		}
		cand := s.sessions[id]
		if found == nil || cand.CreatedAt.Before(found.CreatedAt) {
			found = cand
		}
	}
	if found == nil {
		return nil, domain.ErrSessionNotFound
	}
	cp := *found
	return &cp, nil
}

func (s *Store) UpdateSettings(_ context.Context, id domain.SessionID, upd domain.SettingsUpdate) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if upd.Language != nil {
		sess.Language = *upd.Language
	}
	if upd.PIN != nil {
		sess.PIN = *upd.PIN
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) RecordParticipation(_ context.Context, p domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participations = append(s.participations, p)
	return nil
}

func (s *Store) Participations(id domain.SessionID) []domain.Participation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Participation
	for _, p := range s.participations {
		if p.SessionID == id {
			out = append(out, p)
		}
	}
	return out
}
