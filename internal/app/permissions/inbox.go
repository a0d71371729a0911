package permissions

import (
	"sync"
	"time"

	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/domain"
)

// DefaultInfoTTL is how long a revoke notice stays up.
const DefaultInfoTTL = 5 * time.Second

type NoticeKind int

const (
	// NoticeConfirm asks the participant to accept or decline. Either answer
	// only dismisses the notice; the capability has already changed.
	NoticeConfirm NoticeKind = iota
	// NoticeInfo dismisses itself after the info TTL.
	NoticeInfo
)

type Notice struct {
	Kind       NoticeKind
	Action     domain.PermissionAction
	ReceivedAt time.Time
}

type noticeKey struct {
	action domain.PermissionAction
	ts     int64
}

// Inbox is the target side of permission_update for one connection.
type Inbox struct {
	identity string
	infoTTL  time.Duration
	clock    clock.Clock

	mu      sync.Mutex
	seen    map[noticeKey]struct{}
	current *Notice
}

func NewInbox(identity string, c clock.Clock) *Inbox {
	if c == nil {
		c = clock.Real()
	}
	return &Inbox{
		identity: identity,
		infoTTL:  DefaultInfoTTL,
		clock:    c,
		seen:     make(map[noticeKey]struct{}),
	}
}

// Handle consumes a permission_update envelope. It reports whether a new
// notice was raised for the local participant.
func (i *Inbox) Handle(env domain.Envelope) (Notice, bool) {
	if env.Type != domain.MsgPermissionUpdate || env.TargetParticipant != i.identity {
		return Notice{}, false
	}
	k := noticeKey{action: env.Action, ts: env.Timestamp}

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, dup := i.seen[k]; dup {
		return Notice{}, false
	}
	var n Notice
	switch env.Action {
	case domain.ActionGrant:
		n = Notice{Kind: NoticeConfirm, Action: env.Action}
	case domain.ActionRevoke:
		n = Notice{Kind: NoticeInfo, Action: env.Action}
	default:
		return Notice{}, false
	}
	i.seen[k] = struct{}{}
	n.ReceivedAt = i.clock.Now()
	i.current = &n
	return n, true
}

// Current returns the visible notice, if any.
func (i *Inbox) Current() (Notice, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.current == nil {
		return Notice{}, false
	}
	if i.current.Kind == NoticeInfo && i.clock.Now().Sub(i.current.ReceivedAt) >= i.infoTTL {
		i.current = nil
		return Notice{}, false
	}
	return *i.current, true
}

// Dismiss closes the visible notice. Accept and decline both land here.
func (i *Inbox) Dismiss() {
	i.mu.Lock()
	i.current = nil
	i.mu.Unlock()
}

// Reset forgets everything; called on reconnect.
func (i *Inbox) Reset() {
	i.mu.Lock()
	i.current = nil
	i.seen = make(map[noticeKey]struct{})
	i.mu.Unlock()
}
