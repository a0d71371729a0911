package core

import (
	"sync"

	"github.com/dkeye/Classroom/internal/domain"
)

// memberSession implements MemberSession by pairing meta + grant + transport.
type memberSession struct {
	meta domain.Participant
	conn SignalConnection

	mu    sync.RWMutex
	grant domain.Grant
}

func NewMemberSession(meta domain.Participant, grant domain.Grant, conn SignalConnection) MemberSession {
	return &memberSession{meta: meta, grant: grant, conn: conn}
}

func (m *memberSession) Meta() domain.Participant { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.conn }

func (m *memberSession) Grant() domain.Grant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grant
}

func (m *memberSession) SetGrant(g domain.Grant) {
	m.mu.Lock()
	m.grant = g
	m.mu.Unlock()
}
