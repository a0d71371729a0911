package signal

import "github.com/dkeye/Classroom/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send queue is full.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy drops frames for a slow member and kicks it once it stays
// slow for strikes consecutive frames.
type SimplePolicy struct {
	Strikes int
	strikes map[core.MemberSession]int
}

func NewSimplePolicy(strikes int) *SimplePolicy {
	return &SimplePolicy{Strikes: strikes, strikes: make(map[core.MemberSession]int)}
}

// OnBackPressure is only called from the hub with its policy lock held.
func (p *SimplePolicy) OnBackPressure(_ core.RoomService, m core.MemberSession) BackpressureAction {
	p.strikes[m]++
	if p.strikes[m] >= p.Strikes {
		delete(p.strikes, m)
		return KickMember
	}
	return DropFrame
}

// Forget clears the strikes of a member that left or caught up.
func (p *SimplePolicy) Forget(m core.MemberSession) {
	delete(p.strikes, m)
}
