// Package requests runs the raise-hand workflow over the room broadcast
// channel. Delivery is at-least-once and unordered across senders, so every
// merge here is idempotent by request id and never moves a status backwards.
package requests

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

// Board is one connection's view of the requests in its room.
type Board struct {
	logger zerolog.Logger

	mu         sync.RWMutex
	active     map[string]domain.Request
	tombstones map[string]domain.RequestStatus
	// updates for ids whose student_request has not arrived yet
	buffered map[string]domain.RequestStatus
	displays map[string]domain.RequestDisplay
}

func NewBoard() *Board {
	b := &Board{logger: log.With().Str("module", "app.requests").Logger()}
	b.reset()
	return b
}

func (b *Board) reset() {
	b.active = make(map[string]domain.Request)
	b.tombstones = make(map[string]domain.RequestStatus)
	b.buffered = make(map[string]domain.RequestStatus)
	b.displays = make(map[string]domain.RequestDisplay)
}

// Reset drops every view; called on reconnect.
func (b *Board) Reset() {
	b.mu.Lock()
	b.reset()
	b.mu.Unlock()
}

// Handle applies one broadcast envelope. Unknown types are ignored.
func (b *Board) Handle(env domain.Envelope) error {
	switch env.Type {
	case domain.MsgStudentRequest:
		var r domain.Request
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return fmt.Errorf("decode student_request: %w", err)
		}
		if r.ID == "" || r.RequesterIdentity == "" {
			return fmt.Errorf("student_request: %w", domain.ErrMissingField)
		}
		if r.Type != domain.RequestVoice && r.Type != domain.RequestText {
			return fmt.Errorf("student_request type %q: %w", r.Type, domain.ErrInvalidTransition)
		}
		if !r.Status.Valid() {
			r.Status = domain.StatusPending
		}
		b.AddRequest(r)
	case domain.MsgRequestUpdate:
		var u domain.RequestUpdate
		if err := json.Unmarshal(env.Payload, &u); err != nil {
			return fmt.Errorf("decode request_update: %w", err)
		}
		b.ApplyUpdate(u.RequestID, u.Status)
	case domain.MsgRequestDisplay:
		var d domain.RequestDisplay
		if err := json.Unmarshal(env.Payload, &d); err != nil {
			return fmt.Errorf("decode request_display: %w", err)
		}
		b.ApplyDisplay(d)
	}
	return nil
}

// AddRequest merges r by id. Redelivery of a resolved request is ignored.
func (b *Board) AddRequest(r domain.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dead := b.tombstones[r.ID]; dead {
		return false
	}
	if cur, ok := b.active[r.ID]; ok {
		if r.Status.Rank() <= cur.Status.Rank() {
			return false
		}
		cur.Status = r.Status
		b.store(cur)
		return true
	}
	if st, ok := b.buffered[r.ID]; ok {
		delete(b.buffered, r.ID)
		if st.Rank() >= r.Status.Rank() {
			r.Status = st
		}
	}
	b.store(r)
	return true
}

// ApplyUpdate sets the status of id unless that would move it backwards.
// Equal ranks are applied, so the later received of two racing decisions wins.
func (b *Board) ApplyUpdate(id string, st domain.RequestStatus) bool {
	if id == "" || !st.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dead := b.tombstones[id]; dead {
		return false
	}
	cur, ok := b.active[id]
	if !ok {
		if prev, ok := b.buffered[id]; !ok || st.Rank() >= prev.Rank() {
			b.buffered[id] = st
		}
		return false
	}
	if st.Rank() < cur.Status.Rank() {
		return false
	}
	cur.Status = st
	b.store(cur)
	return true
}

// ApplyDisplay toggles the shared bubble. Showing a pending text request
// also moves it to displayed.
func (b *Board) ApplyDisplay(d domain.RequestDisplay) {
	if d.RequestID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !d.Display {
		delete(b.displays, d.RequestID)
		return
	}
	if _, dead := b.tombstones[d.RequestID]; dead {
		return
	}
	b.displays[d.RequestID] = d
	if cur, ok := b.active[d.RequestID]; ok && cur.Status == domain.StatusPending {
		cur.Status = domain.StatusDisplayed
		b.active[d.RequestID] = cur
	}
}

// store must be called with mu held.
func (b *Board) store(r domain.Request) {
	if r.Status.Terminal() {
		delete(b.active, r.ID)
		delete(b.displays, r.ID)
		b.tombstones[r.ID] = r.Status
		b.logger.Debug().Str("request", r.ID).Str("status", string(r.Status)).Msg("request resolved")
		return
	}
	b.active[r.ID] = r
}

// restore overwrites the local copy without merging. Only the engine uses it
// to undo its own optimistic write.
func (b *Board) restore(r domain.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tombstones, r.ID)
	b.active[r.ID] = r
}

func (b *Board) forget(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, id)
	delete(b.displays, id)
}

func (b *Board) Get(id string) (domain.Request, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.active[id]
	return r, ok
}

// Status also answers for resolved requests.
func (b *Board) Status(id string) (domain.RequestStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r, ok := b.active[id]; ok {
		return r.Status, true
	}
	st, ok := b.tombstones[id]
	return st, ok
}

// Active lists unresolved requests, oldest first.
func (b *Board) Active() []domain.Request {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Request, 0, len(b.active))
	for _, r := range b.active {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (b *Board) Pending() []domain.Request {
	var out []domain.Request
	for _, r := range b.Active() {
		if r.Status == domain.StatusPending {
			out = append(out, r)
		}
	}
	return out
}

// PendingFor returns the pending request of identity, if any.
func (b *Board) PendingFor(identity string) (domain.Request, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.active {
		if r.RequesterIdentity == identity && r.Status == domain.StatusPending {
			return r, true
		}
	}
	return domain.Request{}, false
}

func (b *Board) Displays() []domain.RequestDisplay {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.RequestDisplay, 0, len(b.displays))
	for _, d := range b.displays {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestID < out[j].RequestID })
	return out
}
