// internal/domain/models/team.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Team statuses. Disbanded teams are kept for history but excluded from
// listings and all roster operations.
const (
	TeamStatusActive    = "active"
	TeamStatusDisbanded = "disbanded"
)

// Team represents a hackathon team.
//
// NOTE:
//   - MemberIDs always includes the leader; len(MemberIDs) never exceeds
//     Capacity.
//   - LeaderName and MemberNames are denormalized projections refreshed by
//     the roster engine after every membership change (never by a storage
//     hook).
//   - IsEligible/EligibilityDetails are derived and cached; the stored
//     values are recomputed after every membership mutation and are not
//     independently authoritative.
//   - Version is an optimistic lock: membership writes are conditional on
//     the version read, so two interleaved mutations cannot both commit.
type Team struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`

	LeaderID    primitive.ObjectID   `bson:"leader_id" json:"leader_id"`
	LeaderName  string               `bson:"leader_name" json:"leader_name"`
	MemberIDs   []primitive.ObjectID `bson:"member_ids" json:"member_ids"`
	MemberNames []string             `bson:"member_names" json:"member_names"`

	Capacity int    `bson:"capacity" json:"capacity"`
	Status   string `bson:"status" json:"status"`

	IsEligible         bool                `bson:"is_eligible" json:"is_eligible"`
	EligibilityDetails *EligibilityDetails `bson:"eligibility_details,omitempty" json:"eligibility_details,omitempty"`

	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// EligibilityDetails is the per-cohort breakdown persisted with the cached
// eligibility verdict.
type EligibilityDetails struct {
	Foundation CohortStatus `bson:"foundation" json:"foundation"`
	Structural CohortStatus `bson:"structural" json:"structural"`
	Innovation CohortStatus `bson:"innovation" json:"innovation"`
}

// CohortStatus records how one cohort window was evaluated. Required is
// the window minimum.
type CohortStatus struct {
	Count     int  `bson:"count" json:"count"`
	Required  int  `bson:"required" json:"required"`
	Fulfilled bool `bson:"fulfilled" json:"fulfilled"`
}

// HasMember reports whether id is in the team's member set (the leader is
// always a member).
func (t Team) HasMember(id primitive.ObjectID) bool {
	for _, m := range t.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Full reports whether the team has reached its capacity bound.
func (t Team) Full() bool {
	return len(t.MemberIDs) >= t.Capacity
}
