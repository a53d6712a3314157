package roster

import (
	"errors"
	"testing"

	invitationstore "github.com/dalemusser/teamforge/internal/app/store/invitations"
	userstore "github.com/dalemusser/teamforge/internal/app/store/users"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"github.com/dalemusser/teamforge/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*Engine, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return New(db, 5, zap.NewNop()), testutil.NewFixtures(t, db)
}

func ids(users []models.User) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}

func TestCreateTeam(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)

	team, err := eng.CreateTeam(ctx, users[0].ID, "Quantum Leap", "we build things", ids(users[1:]))
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.LeaderID != users[0].ID {
		t.Errorf("leader = %s, want %s", team.LeaderID.Hex(), users[0].ID.Hex())
	}
	if len(team.MemberIDs) != 5 {
		t.Errorf("got %d members, want 5", len(team.MemberIDs))
	}
	if !team.IsEligible {
		t.Error("complete valid team should be eligible")
	}

	us := userstore.New(fx.DB())
	for _, u := range users {
		got, err := us.GetByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.TeamID == nil || *got.TeamID != team.ID {
			t.Errorf("user %s not stamped with team", u.Name)
		}
	}
}

func TestCreateTeamRejectsMemberAlreadyOnTeam(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	if _, err := eng.CreateTeam(ctx, users[0].ID, "First", "", ids(users[1:])); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	more := []models.User{
		fx.CreateUser(ctx, "Farid", "farid@example.edu", "Chemistry", models.GenderMale),
		fx.CreateUser(ctx, "Gita", "gita@example.edu", "Civil", models.GenderFemale),
		fx.CreateUser(ctx, "Hari", "hari@example.edu", "CSE", models.GenderMale),
		fx.CreateUser(ctx, "Indira", "indira@example.edu", "ISE", models.GenderFemale),
	}
	// users[1] already belongs to First.
	mixed := append(ids(more), users[1].ID)
	if _, err := eng.CreateTeam(ctx, more[0].ID, "Second", "", mixed); !errors.Is(err, ErrAlreadyOnTeam) {
		t.Fatalf("err = %v, want ErrAlreadyOnTeam", err)
	}
}

func TestCreateTeamRejectsBadComposition(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Two foundation departments exceeds the window.
	users := []models.User{
		fx.CreateUser(ctx, "Asha", "asha@example.edu", "Physics", models.GenderFemale),
		fx.CreateUser(ctx, "Bina", "bina@example.edu", "Chemistry", models.GenderFemale),
		fx.CreateUser(ctx, "Chand", "chand@example.edu", "ME", models.GenderMale),
		fx.CreateUser(ctx, "Deep", "deep@example.edu", "CSE", models.GenderMale),
		fx.CreateUser(ctx, "Esha", "esha@example.edu", "ISE", models.GenderFemale),
	}

	_, err := eng.CreateTeam(ctx, users[0].ID, "Lopsided", "", ids(users[1:]))
	var rv *RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}
	if len(rv.Violations) == 0 {
		t.Fatal("expected at least one violation")
	}
}

func TestInviteAndAccept(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Nearly There", users[:4])
	leader, candidate := users[0], users[4]

	inv, err := eng.Invite(ctx, leader.ID, team.ID, candidate.ID, "join us")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if inv.Kind != models.KindInvite || inv.Status != models.InvitationPending {
		t.Fatalf("unexpected invitation %+v", inv)
	}
	if inv.TeamName != team.Name || inv.ToName != candidate.Name {
		t.Error("denormalized names not stamped")
	}

	updated, resolved, err := eng.Accept(ctx, candidate.ID, inv.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if resolved.Status != models.InvitationAccepted {
		t.Errorf("invitation status = %q, want accepted", resolved.Status)
	}
	if len(updated.MemberIDs) != 5 {
		t.Errorf("got %d members, want 5", len(updated.MemberIDs))
	}
	if !updated.IsEligible {
		t.Error("full valid team should be eligible after accept")
	}
}

func TestAcceptCancelsOtherSolicitations(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	teamA := fx.CreateTeam(ctx, "Alpha", users[:4])

	otherLeader := fx.CreateUser(ctx, "Farid", "farid@example.edu", "Chemistry", models.GenderMale)
	teamB := fx.CreateTeam(ctx, "Beta", []models.User{otherLeader})

	candidate := users[4]
	invA, err := eng.Invite(ctx, users[0].ID, teamA.ID, candidate.ID, "")
	if err != nil {
		t.Fatalf("Invite A: %v", err)
	}
	invB, err := eng.Invite(ctx, otherLeader.ID, teamB.ID, candidate.ID, "")
	if err != nil {
		t.Fatalf("Invite B: %v", err)
	}

	if _, _, err := eng.Accept(ctx, candidate.ID, invA.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	is := invitationstore.New(fx.DB())
	gotB, err := is.GetByID(ctx, invB.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gotB.Status != models.InvitationCancelled {
		t.Errorf("rival invitation status = %q, want cancelled", gotB.Status)
	}
}

func TestAcceptOnFullTeamCancelsRemainingInvitations(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Filling Up", users[:4])
	leader := users[0]

	spare := fx.CreateUser(ctx, "Farid", "farid@example.edu", "EE", models.GenderMale)

	invLast, err := eng.Invite(ctx, leader.ID, team.ID, users[4].ID, "")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	invSpare, err := eng.Invite(ctx, leader.ID, team.ID, spare.ID, "")
	if err != nil {
		t.Fatalf("Invite spare: %v", err)
	}

	if _, _, err := eng.Accept(ctx, users[4].ID, invLast.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	is := invitationstore.New(fx.DB())
	got, err := is.GetByID(ctx, invSpare.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.InvitationCancelled {
		t.Errorf("leftover invitation status = %q, want cancelled", got.Status)
	}

	// The full team can no longer be solicited.
	if _, err := eng.Invite(ctx, leader.ID, team.ID, spare.ID, ""); !errors.Is(err, ErrTeamFull) {
		t.Fatalf("err = %v, want ErrTeamFull", err)
	}
}

func TestAcceptRejectsRosterThatBreaksRules(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	physicist := fx.CreateUser(ctx, "Asha", "asha@example.edu", "Physics", models.GenderFemale)
	team := fx.CreateTeam(ctx, "One Founder", []models.User{physicist})

	// A second foundation member would exceed the window of one.
	chemist := fx.CreateUser(ctx, "Bina", "bina@example.edu", "Chemistry", models.GenderFemale)
	inv, err := eng.Invite(ctx, physicist.ID, team.ID, chemist.ID, "")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	_, _, err = eng.Accept(ctx, chemist.ID, inv.ID)
	var rv *RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}

	// A rejected accept leaves the invitation pending for retry.
	is := invitationstore.New(fx.DB())
	got, err := is.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.InvitationPending {
		t.Errorf("invitation status = %q, want pending", got.Status)
	}
}

func TestJoinRequestFlow(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Open Door", users[:4])
	leader, requester := users[0], users[4]

	req, err := eng.RequestJoin(ctx, requester.ID, team.ID, "let me in")
	if err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if req.Kind != models.KindJoinRequest {
		t.Fatalf("kind = %q, want join_request", req.Kind)
	}
	if req.ToID != leader.ID {
		t.Error("join request should be addressed to the leader")
	}

	// The requester cannot approve their own request.
	if _, _, err := eng.Accept(ctx, requester.ID, req.ID); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("err = %v, want ErrNotRecipient", err)
	}

	updated, _, err := eng.Accept(ctx, leader.ID, req.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !updated.HasMember(requester.ID) {
		t.Error("requester not admitted")
	}
}

func TestAddMemberDirect(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Direct", users[:4])
	leader, candidate := users[0], users[4]

	if _, err := eng.AddMember(ctx, users[1].ID, team.ID, candidate.ID); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("add by non-leader: err = %v, want ErrNotLeader", err)
	}

	updated, err := eng.AddMember(ctx, leader.ID, team.ID, candidate.ID)
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if !updated.HasMember(candidate.ID) {
		t.Error("candidate not on team")
	}
	if !updated.IsEligible {
		t.Error("completed team should be eligible")
	}

	outsider := fx.CreateUser(ctx, "Farid", "farid@example.edu", "EE", models.GenderMale)
	if _, err := eng.AddMember(ctx, leader.ID, team.ID, outsider.ID); !errors.Is(err, ErrTeamFull) {
		t.Fatalf("add to full team: err = %v, want ErrTeamFull", err)
	}
}

func TestDeclineAndCancelAuthority(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Picky", users[:4])
	leader, candidate := users[0], users[4]

	inv, err := eng.Invite(ctx, leader.ID, team.ID, candidate.ID, "")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	if _, err := eng.Decline(ctx, leader.ID, inv.ID); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("decline by sender: err = %v, want ErrNotRecipient", err)
	}
	if _, err := eng.Cancel(ctx, candidate.ID, inv.ID); !errors.Is(err, ErrNotSender) {
		t.Fatalf("cancel by recipient: err = %v, want ErrNotSender", err)
	}

	declined, err := eng.Decline(ctx, candidate.ID, inv.ID)
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if declined.Status != models.InvitationDeclined {
		t.Errorf("status = %q, want declined", declined.Status)
	}

	// Terminal invitation cannot be cancelled afterwards.
	if _, err := eng.Cancel(ctx, leader.ID, inv.ID); !errors.Is(err, invitationstore.ErrNotPending) {
		t.Fatalf("err = %v, want ErrNotPending", err)
	}
}

func TestLeaveAndRemoveMember(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Churn", users)
	leader := users[0]

	if _, err := eng.Leave(ctx, leader.ID); !errors.Is(err, ErrLeaderCannotLeave) {
		t.Fatalf("leader leave: err = %v, want ErrLeaderCannotLeave", err)
	}

	updated, err := eng.Leave(ctx, users[4].ID)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if updated.HasMember(users[4].ID) {
		t.Error("member still on team after leave")
	}
	if updated.IsEligible {
		t.Error("innovation window is unmet after the leave; team must not stay eligible")
	}

	us := userstore.New(fx.DB())
	freed, err := us.GetByID(ctx, users[4].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if freed.TeamID != nil {
		t.Error("team_id not cleared after leave")
	}

	if _, err := eng.RemoveMember(ctx, users[1].ID, team.ID, users[2].ID); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("remove by non-leader: err = %v, want ErrNotLeader", err)
	}
	if _, err := eng.RemoveMember(ctx, leader.ID, team.ID, leader.ID); !errors.Is(err, ErrLeaderCannotLeave) {
		t.Fatalf("remove self: err = %v, want ErrLeaderCannotLeave", err)
	}

	updated, err = eng.RemoveMember(ctx, leader.ID, team.ID, users[1].ID)
	if err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if updated.HasMember(users[1].ID) {
		t.Error("member still on team after removal")
	}
	if len(updated.MemberNames) != len(updated.MemberIDs) {
		t.Errorf("projection desynced: %d names for %d ids", len(updated.MemberNames), len(updated.MemberIDs))
	}
}

func TestRemoveMemberKeepsNamesake(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fx.CreateUser(ctx, "Asha Rao", "asha@test.edu", "Physics", models.GenderFemale)
	twinA := fx.CreateUser(ctx, "Ravi Kumar", "ravi.a@test.edu", "CSE", models.GenderMale)
	twinB := fx.CreateUser(ctx, "Ravi Kumar", "ravi.b@test.edu", "ISE", models.GenderMale)
	team := fx.CreateTeam(ctx, "Namesakes", []models.User{leader, twinA, twinB})

	updated, err := eng.RemoveMember(ctx, leader.ID, team.ID, twinA.ID)
	if err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if updated.HasMember(twinA.ID) {
		t.Error("removed member still present")
	}
	if !updated.HasMember(twinB.ID) {
		t.Error("namesake lost their membership")
	}

	count := 0
	for _, n := range updated.MemberNames {
		if n == "Ravi Kumar" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("namesake appears %d times in MemberNames, want 1: %v", count, updated.MemberNames)
	}
	if len(updated.MemberNames) != len(updated.MemberIDs) {
		t.Errorf("projection desynced: %d names for %d ids", len(updated.MemberNames), len(updated.MemberIDs))
	}
}

func TestDisband(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Ephemeral", users[:4])
	leader := users[0]

	inv, err := eng.Invite(ctx, leader.ID, team.ID, users[4].ID, "")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	if _, err := eng.Disband(ctx, users[1].ID, team.ID); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("disband by member: err = %v, want ErrNotLeader", err)
	}

	disbanded, err := eng.Disband(ctx, leader.ID, team.ID)
	if err != nil {
		t.Fatalf("Disband: %v", err)
	}
	if disbanded.Status != models.TeamStatusDisbanded {
		t.Errorf("status = %q, want disbanded", disbanded.Status)
	}

	us := userstore.New(fx.DB())
	for _, u := range users[:4] {
		got, err := us.GetByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.TeamID != nil {
			t.Errorf("user %s still stamped after disband", u.Name)
		}
	}

	is := invitationstore.New(fx.DB())
	gotInv, err := is.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gotInv.Status != models.InvitationCancelled {
		t.Errorf("invitation status = %q, want cancelled", gotInv.Status)
	}

	// Roster operations on a disbanded team are refused.
	if _, err := eng.RequestJoin(ctx, users[4].ID, team.ID, ""); !errors.Is(err, ErrTeamInactive) {
		t.Fatalf("err = %v, want ErrTeamInactive", err)
	}
}

func TestConcurrentAcceptAndCancel(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Tug Of War", users[:4])
	leader, candidate := users[0], users[4]

	inv, err := eng.Invite(ctx, leader.ID, team.ID, candidate.ID, "")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	errs := make(chan error, 2)
	start := make(chan struct{})
	go func() {
		<-start
		_, _, err := eng.Accept(ctx, candidate.ID, inv.ID)
		errs <- err
	}()
	go func() {
		<-start
		_, err := eng.Cancel(ctx, leader.ID, inv.ID)
		errs <- err
	}()
	close(start)

	var won, lost int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			won++
		case errors.Is(err, invitationstore.ErrNotPending):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("won = %d, lost = %d, want exactly one of each", won, lost)
	}

	// Whoever won, membership and invitation status must agree: either
	// the candidate joined and the invitation reads accepted, or the
	// withdrawal landed and the candidate stayed team-free.
	got, err := eng.Teams().GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	resolved, err := eng.Invitations().GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	joined := got.HasMember(candidate.ID)

	us := userstore.New(fx.DB())
	u, err := us.GetByID(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	switch resolved.Status {
	case models.InvitationAccepted:
		if !joined || u.TeamID == nil {
			t.Errorf("accepted invitation but membership not applied: joined=%v team_id=%v", joined, u.TeamID)
		}
	case models.InvitationCancelled:
		if joined || u.TeamID != nil {
			t.Errorf("cancelled invitation but membership applied: joined=%v team_id=%v", joined, u.TeamID)
		}
	default:
		t.Errorf("invitation status = %q, want accepted or cancelled", resolved.Status)
	}
}

func TestConcurrentAcceptsForLastSlot(t *testing.T) {
	eng, fx := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fx.FiveEligibleUsers(ctx)
	team := fx.CreateTeam(ctx, "Last Slot", users[:4])
	leader := users[0]

	first := users[4]
	second := fx.CreateUser(ctx, "Farid", "farid@example.edu", "EE", models.GenderMale)

	invFirst, err := eng.Invite(ctx, leader.ID, team.ID, first.ID, "")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	invSecond, err := eng.Invite(ctx, leader.ID, team.ID, second.ID, "")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	type result struct {
		user primitive.ObjectID
		err  error
	}
	results := make(chan result, 2)
	start := make(chan struct{})
	for _, c := range []struct {
		user primitive.ObjectID
		inv  primitive.ObjectID
	}{{first.ID, invFirst.ID}, {second.ID, invSecond.ID}} {
		go func(userID, invID primitive.ObjectID) {
			<-start
			_, _, err := eng.Accept(ctx, userID, invID)
			results <- result{userID, err}
		}(c.user, c.inv)
	}
	close(start)

	var won, lost int
	for i := 0; i < 2; i++ {
		r := <-results
		switch {
		case r.err == nil:
			won++
		case errors.Is(r.err, ErrTeamFull), errors.Is(r.err, invitationstore.ErrNotPending):
			// The winner filled the team; the loser sees the full team
			// or its own invitation already cancelled by the winner.
			lost++
		default:
			t.Errorf("unexpected error for %s: %v", r.user.Hex(), r.err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("won = %d, lost = %d, want exactly one of each", won, lost)
	}

	got, err := eng.Teams().GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.MemberIDs) != 5 {
		t.Fatalf("got %d members, want 5", len(got.MemberIDs))
	}
}
