package core

import "github.com/dkeye/Classroom/internal/domain"

// MemberSession binds a participant, its live grant and its data endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() domain.Participant
	Grant() domain.Grant
	SetGrant(domain.Grant)
	Signal() SignalConnection
}
