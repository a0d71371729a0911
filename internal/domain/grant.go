package domain

import "time"

// Grant is the live capability set attached to a connection.
type Grant struct {
	CanPublish           bool
	CanPublishData       bool
	CanSubscribe         bool
	CanUpdateOwnMetadata bool
	RoomAdmin            bool
	RoomRecord           bool
	TTL                  time.Duration
}

// GrantFor is the join-time grant for a role in a session kind. Students
// always start silent; only the permission coordinator promotes them.
func GrantFor(kind SessionKind, role Role, ttl time.Duration) Grant {
	full := Grant{
		CanPublish:           true,
		CanPublishData:       true,
		CanSubscribe:         true,
		CanUpdateOwnMetadata: true,
		TTL:                  ttl,
	}
	if !kind.HasRoles() {
		return full
	}
	if role.IsTeacher() {
		full.RoomAdmin = true
		full.RoomRecord = true
		return full
	}
	return StudentGrant(false, ttl)
}

// StudentGrant is the student baseline with publish toggled.
func StudentGrant(canPublish bool, ttl time.Duration) Grant {
	return Grant{
		CanPublish:           canPublish,
		CanPublishData:       true,
		CanSubscribe:         true,
		CanUpdateOwnMetadata: true,
		TTL:                  ttl,
	}
}
