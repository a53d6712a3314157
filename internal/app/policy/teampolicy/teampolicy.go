// internal/app/policy/teampolicy/teampolicy.go
package teampolicy

import (
	"github.com/dalemusser/teamforge/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsLeader reports whether userID leads the team.
func IsLeader(team models.Team, userID primitive.ObjectID) bool {
	return team.LeaderID == userID
}

// IsMember reports whether userID belongs to the team (the leader is a
// member).
func IsMember(team models.Team, userID primitive.ObjectID) bool {
	return team.HasMember(userID)
}

// CanManage reports whether userID may change the team's roster or
// metadata. Only the leader of an active team can.
func CanManage(team models.Team, userID primitive.ObjectID) bool {
	return team.Status == models.TeamStatusActive && IsLeader(team, userID)
}

// CanRespond reports whether userID may accept or decline the invitation.
// Only the addressee can; for join requests that is the team's leader.
func CanRespond(inv models.Invitation, userID primitive.ObjectID) bool {
	return inv.ToID == userID
}

// CanWithdraw reports whether userID may cancel the invitation. Only the
// sender can.
func CanWithdraw(inv models.Invitation, userID primitive.ObjectID) bool {
	return inv.FromID == userID
}

// CanEditSubmission reports whether a member of team may still edit the
// submission. Edits stop once review begins.
func CanEditSubmission(sub models.Submission, team models.Team, userID primitive.ObjectID) bool {
	return sub.Status == models.SubmissionSubmitted && IsMember(team, userID)
}
