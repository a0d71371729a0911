package core

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	name string

	mu         sync.RWMutex
	byIdentity map[string]MemberSession
	emptySince time.Time
}

func newRoom(name string, now time.Time) *roomImpl {
	return &roomImpl{
		name:       name,
		byIdentity: make(map[string]MemberSession),
		emptySince: now,
	}
}

func (r *roomImpl) Name() string { return r.name }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.byIdentity))
	for _, m := range r.byIdentity {
		meta := m.Meta()
		out = append(out, MemberDTO{Identity: meta.Identity, Name: meta.Name, Role: meta.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

func (r *roomImpl) Member(identity string) (MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.byIdentity[identity]
	return ms, ok
}

func (r *roomImpl) AddMember(ms MemberSession) {
	id := ms.Meta().Identity
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byIdentity[id] = ms
	r.emptySince = time.Time{}
	log.Info().Str("module", "core.room").Str("room", r.name).Str("identity", id).Msg("member added")
}

// RemoveMember only removes ms itself, so a stale connection closing late
// cannot evict the reconnected one.
func (r *roomImpl) RemoveMember(identity string, ms MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byIdentity[identity]
	if !ok || (ms != nil && cur != ms) {
		return false
	}
	delete(r.byIdentity, identity)
	if len(r.byIdentity) == 0 {
		r.emptySince = time.Now()
	}
	log.Info().Str("module", "core.room").Str("room", r.name).Str("identity", identity).Msg("member removed")
	return true
}

func (r *roomImpl) Broadcast(from string, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, m := range r.byIdentity {
		if from != "" && id == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", r.name).Str("from", from).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// idleSince returns when the room became empty, zero while occupied.
func (r *roomImpl) idleSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.emptySince
}
