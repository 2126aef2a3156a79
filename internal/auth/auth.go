// Package auth computes room-scoped authority. Every permission decision in
// the codebase goes through the predicates here so the rules live in one place.
package auth

import (
	"github.com/npezzotti/studychat/internal/database"
)

type RoomRole int

const (
	NonMember RoomRole = iota
	Member
	Admin
	Creator
)

func (r RoomRole) String() string {
	switch r {
	case Creator:
		return "creator"
	case Admin:
		return "admin"
	case Member:
		return "member"
	default:
		return "non-member"
	}
}

// RoleFor derives the caller's standing in a room from the room row and the
// caller's membership row, which may be nil. The creator outranks any
// membership role, and a banned or departed membership counts for nothing.
func RoleFor(accountId int, room database.Room, membership *database.Membership) RoomRole {
	if accountId == room.CreatorId {
		return Creator
	}
	if membership == nil || membership.Status != database.StatusActive {
		return NonMember
	}
	if membership.Role == database.RoleAdmin {
		return Admin
	}

	return Member
}

// CanManageRoom reports whether the caller may update or delete the room.
func CanManageRoom(role RoomRole, systemAdmin bool) bool {
	return systemAdmin || role == Creator
}

// CanViewRoom reports whether the caller may read room details, members and
// message history.
func CanViewRoom(role RoomRole, systemAdmin bool) bool {
	return systemAdmin || role != NonMember
}

// CanSendMessage reports whether the caller may post to the room. System
// admins can inspect rooms but do not get an implicit voice in them.
func CanSendMessage(role RoomRole) bool {
	return role != NonMember
}

// CanKick reports whether the actor may remove the target from the room.
// Kicking yourself is leaving, handled elsewhere. System admins may remove
// anyone, including the creator; inside the room the creator is untouchable.
func CanKick(actor, target RoomRole, actorSystemAdmin bool, self bool) bool {
	if self {
		return false
	}
	if actorSystemAdmin {
		return true
	}
	if target == Creator {
		return false
	}
	if actor == Creator {
		return true
	}

	// A room admin only outranks plain members.
	return actor == Admin && target == Member
}

// CanSetRole reports whether the actor may change a member's room role.
func CanSetRole(actor RoomRole) bool {
	return actor == Creator
}

// CanApproveJoinRequest reports whether the actor may process join requests
// for the room.
func CanApproveJoinRequest(actor RoomRole, systemAdmin bool) bool {
	return systemAdmin || actor == Creator || actor == Admin
}
