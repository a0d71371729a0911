package core

import "github.com/dkeye/Classroom/internal/domain"

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SendTo  int
	Dropped []string
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	Identity string      `json:"identity"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
}

// RoomService is the in-process room of the local transport.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Name() string
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Member(identity string) (MemberSession, bool)

	AddMember(ms MemberSession)
	// RemoveMember reports whether ms was the live session and got removed.
	RemoveMember(identity string, ms MemberSession) bool
	// Broadcast sends to every member except from; an empty from reaches all.
	Broadcast(from string, data Frame) PublishResult
}

type RoomInfo struct {
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}
