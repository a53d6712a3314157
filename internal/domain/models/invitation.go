// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses. Pending is the only non-terminal status; every
// transition out of pending is one-way and invitations are never deleted,
// so the collection doubles as an audit trail of solicitations.
const (
	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationDeclined  = "declined"
	InvitationCancelled = "cancelled"
)

// Invitation kinds. An invite is sent by the team leader to a candidate;
// a join request is sent by a candidate and addressed to the leader.
const (
	KindInvite      = "invite"
	KindJoinRequest = "join_request"
)

// Invitation is a solicitation to join a team. At most one pending
// invitation exists per (team, recipient) pair, enforced by a partial
// unique index.
// TeamName/FromName/ToName are denormalized for listings, stamped at
// creation time.
type Invitation struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TeamID   primitive.ObjectID `bson:"team_id" json:"team_id"`
	TeamName string             `bson:"team_name" json:"team_name"`
	FromID   primitive.ObjectID `bson:"from_id" json:"from_id"`
	FromName string             `bson:"from_name" json:"from_name"`
	ToID     primitive.ObjectID `bson:"to_id" json:"to_id"`
	ToName   string             `bson:"to_name" json:"to_name"`
	Kind     string             `bson:"kind" json:"kind"`
	Message string             `bson:"message,omitempty" json:"message,omitempty"`
	Status  string             `bson:"status" json:"status"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	RespondedAt *time.Time `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
}

// Terminal reports whether the invitation can no longer transition.
func (i Invitation) Terminal() bool {
	return i.Status != InvitationPending
}
