package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Classroom/internal/domain"
)

type pendingKey struct {
	session  domain.SessionID
	identity string
}

type pendingClaim struct {
	requestID string
	expires   time.Time
}

// Ledger is the in-process RequestLedger. Claims expire after ttl so a
// student whose request was never resolved is not locked out forever.
type Ledger struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	claims map[pendingKey]pendingClaim
}

func NewLedger(ttl time.Duration) *Ledger {
	return &Ledger{ttl: ttl, now: time.Now, claims: make(map[pendingKey]pendingClaim)}
}

func (l *Ledger) Claim(_ context.Context, id domain.SessionID, identity, requestID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := pendingKey{session: id, identity: identity}
	now := l.now()
	if c, ok := l.claims[k]; ok && now.Before(c.expires) {
		return c.requestID == requestID, nil
	}
	l.claims[k] = pendingClaim{requestID: requestID, expires: now.Add(l.ttl)}
	return true, nil
}

func (l *Ledger) Release(_ context.Context, id domain.SessionID, identity, requestID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := pendingKey{session: id, identity: identity}
	if c, ok := l.claims[k]; ok && c.requestID == requestID {
		delete(l.claims, k)
	}
	return nil
}
