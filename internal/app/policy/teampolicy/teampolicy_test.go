package teampolicy

import (
	"testing"

	"github.com/dalemusser/teamforge/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanManage(t *testing.T) {
	leader := primitive.NewObjectID()
	member := primitive.NewObjectID()
	team := models.Team{
		LeaderID:  leader,
		MemberIDs: []primitive.ObjectID{leader, member},
		Status:    models.TeamStatusActive,
	}

	if !CanManage(team, leader) {
		t.Error("leader should manage an active team")
	}
	if CanManage(team, member) {
		t.Error("non-leader must not manage")
	}

	team.Status = models.TeamStatusDisbanded
	if CanManage(team, leader) {
		t.Error("nobody manages a disbanded team")
	}
}

func TestInvitationAuthority(t *testing.T) {
	from := primitive.NewObjectID()
	to := primitive.NewObjectID()
	inv := models.Invitation{FromID: from, ToID: to}

	if !CanRespond(inv, to) || CanRespond(inv, from) {
		t.Error("only the recipient responds")
	}
	if !CanWithdraw(inv, from) || CanWithdraw(inv, to) {
		t.Error("only the sender withdraws")
	}
}

func TestCanEditSubmission(t *testing.T) {
	leader := primitive.NewObjectID()
	outsider := primitive.NewObjectID()
	team := models.Team{
		LeaderID:  leader,
		MemberIDs: []primitive.ObjectID{leader},
		Status:    models.TeamStatusActive,
	}
	sub := models.Submission{Status: models.SubmissionSubmitted}

	if !CanEditSubmission(sub, team, leader) {
		t.Error("member should edit a fresh submission")
	}
	if CanEditSubmission(sub, team, outsider) {
		t.Error("outsider must not edit")
	}

	sub.Status = models.SubmissionUnderReview
	if CanEditSubmission(sub, team, leader) {
		t.Error("edits stop once review begins")
	}
}
