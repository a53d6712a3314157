// Package roster is the membership engine. Every mutation of a team's
// member set funnels through here: it validates the prospective roster
// against the composition rules before committing, keeps users' team_id
// and the team's denormalized projections in sync, resolves invitations,
// and recomputes the cached eligibility verdict after each change.
//
// Concurrency: mutations on one team are serialized by a per-team mutex,
// and every membership write is additionally conditional on the team
// document's version. If a conditional write still loses (a writer
// outside this process), the operation re-reads and re-validates, so a
// racing join that would overfill a cohort is rejected with a rule
// violation rather than committed.
package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/teamforge/internal/app/policy/teampolicy"
	invitationstore "github.com/dalemusser/teamforge/internal/app/store/invitations"
	teamstore "github.com/dalemusser/teamforge/internal/app/store/teams"
	userstore "github.com/dalemusser/teamforge/internal/app/store/users"
	"github.com/dalemusser/teamforge/internal/app/system/txn"
	"github.com/dalemusser/teamforge/internal/domain/composition"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyOnTeam is returned when a user who belongs to a team tries
	// to create or join another.
	ErrAlreadyOnTeam = errors.New("user already belongs to a team")
	// ErrNotOnTeam is returned by Leave when the user has no team.
	ErrNotOnTeam = errors.New("user does not belong to a team")
	// ErrNotLeader is returned when a leader-only operation is attempted
	// by someone else.
	ErrNotLeader = errors.New("only the team leader may do this")
	// ErrLeaderCannotLeave is returned when the leader tries to leave;
	// leaders disband instead.
	ErrLeaderCannotLeave = errors.New("the leader cannot leave the team; disband it instead")
	// ErrTeamInactive is returned for operations on a disbanded team.
	ErrTeamInactive = errors.New("team is not active")
	// ErrTeamFull is returned when the team is at capacity.
	ErrTeamFull = errors.New("team is already at capacity")
	// ErrNotRecipient is returned when someone other than the addressee
	// responds to an invitation.
	ErrNotRecipient = errors.New("invitation is not addressed to this user")
	// ErrNotSender is returned when someone other than the sender cancels.
	ErrNotSender = errors.New("invitation was not sent by this user")
	// ErrMemberNotFound is returned when a referenced user does not exist.
	ErrMemberNotFound = errors.New("one or more referenced users do not exist")
)

// RuleViolationError carries the full list of composition violations for
// a rejected roster.
type RuleViolationError struct {
	Violations []string
}

func (e *RuleViolationError) Error() string {
	return fmt.Sprintf("team composition rules violated: %d violation(s)", len(e.Violations))
}

// retries bounds version-conflict retries. The per-team lock makes
// conflicts rare; this guards against external writers.
const retries = 3

// Engine coordinates the stores behind every roster mutation.
type Engine struct {
	users    *userstore.Store
	teams    *teamstore.Store
	invites  *invitationstore.Store
	locks    *txn.KeyedMutex
	capacity int
	log      *zap.Logger
}

// New builds an Engine over db with the configured team capacity.
func New(db *mongo.Database, capacity int, logger *zap.Logger) *Engine {
	return &Engine{
		users:    userstore.New(db),
		teams:    teamstore.New(db),
		invites:  invitationstore.New(db),
		locks:    txn.NewKeyedMutex(),
		capacity: capacity,
		log:      logger,
	}
}

// Capacity returns the configured team size.
func (e *Engine) Capacity() int { return e.capacity }

// Users exposes the user store for read paths.
func (e *Engine) Users() *userstore.Store { return e.users }

// Teams exposes the team store for read paths.
func (e *Engine) Teams() *teamstore.Store { return e.teams }

// Invitations exposes the invitation store for read paths.
func (e *Engine) Invitations() *invitationstore.Store { return e.invites }

// CreateTeam forms a complete team in one shot: the leader plus the
// other members, validated against the strict creation rules. On success
// every member is stamped with the team and their pending invitations
// elsewhere are cancelled.
func (e *Engine) CreateTeam(ctx context.Context, leaderID primitive.ObjectID, name, description string, memberIDs []primitive.ObjectID) (models.Team, error) {
	ids := dedupe(append([]primitive.ObjectID{leaderID}, memberIDs...))

	users, err := e.users.GetMany(ctx, ids)
	if err != nil {
		return models.Team{}, err
	}
	if len(users) != len(ids) {
		return models.Team{}, ErrMemberNotFound
	}
	// Leader first, preserving the requested order for the rest.
	users = orderByIDs(users, ids)

	for _, u := range users {
		if u.OnTeam() {
			return models.Team{}, ErrAlreadyOnTeam
		}
	}

	verdict := composition.Validate(toMembers(users), composition.CreationRules(e.capacity))
	if !verdict.OK {
		return models.Team{}, &RuleViolationError{Violations: verdict.Violations}
	}

	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Name
	}

	team, err := e.teams.Create(ctx, models.Team{
		Name:        name,
		Description: description,
		LeaderID:    users[0].ID,
		LeaderName:  users[0].Name,
		MemberIDs:   ids,
		MemberNames: names,
		Capacity:    e.capacity,
	})
	if err != nil {
		return models.Team{}, err
	}

	if err := e.users.SetTeam(ctx, ids, team.ID); err != nil {
		return models.Team{}, err
	}
	for _, id := range ids {
		if _, err := e.invites.CancelAllPendingForUser(ctx, id); err != nil {
			e.log.Warn("cancel pending invitations failed",
				zap.String("user_id", id.Hex()), zap.Error(err))
		}
	}

	team = e.recompute(ctx, team)

	e.log.Info("team created",
		zap.String("team_id", team.ID.Hex()),
		zap.String("name", team.Name),
		zap.Int("members", len(ids)))
	return team, nil
}

// Invite creates a pending invitation from the team's leader to a user.
func (e *Engine) Invite(ctx context.Context, leaderID, teamID, toID primitive.ObjectID, message string) (models.Invitation, error) {
	team, err := e.teams.GetByID(ctx, teamID)
	if err != nil {
		return models.Invitation{}, err
	}
	if !teampolicy.IsLeader(team, leaderID) {
		return models.Invitation{}, ErrNotLeader
	}
	if team.Status != models.TeamStatusActive {
		return models.Invitation{}, ErrTeamInactive
	}
	if team.Full() {
		return models.Invitation{}, ErrTeamFull
	}

	leader, err := e.users.GetByID(ctx, leaderID)
	if err != nil {
		return models.Invitation{}, err
	}
	target, err := e.users.GetByID(ctx, toID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Invitation{}, ErrMemberNotFound
		}
		return models.Invitation{}, err
	}
	if target.OnTeam() {
		return models.Invitation{}, ErrAlreadyOnTeam
	}

	return e.invites.Create(ctx, models.Invitation{
		TeamID:   team.ID,
		TeamName: team.Name,
		FromID:   leader.ID,
		FromName: leader.Name,
		ToID:     target.ID,
		ToName:   target.Name,
		Kind:     models.KindInvite,
		Message:  message,
	})
}

// RequestJoin creates a pending join request from a user, addressed to
// the team's leader.
func (e *Engine) RequestJoin(ctx context.Context, userID, teamID primitive.ObjectID, message string) (models.Invitation, error) {
	team, err := e.teams.GetByID(ctx, teamID)
	if err != nil {
		return models.Invitation{}, err
	}
	if team.Status != models.TeamStatusActive {
		return models.Invitation{}, ErrTeamInactive
	}
	if team.Full() {
		return models.Invitation{}, ErrTeamFull
	}

	requester, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return models.Invitation{}, err
	}
	if requester.OnTeam() {
		return models.Invitation{}, ErrAlreadyOnTeam
	}

	return e.invites.Create(ctx, models.Invitation{
		TeamID:   team.ID,
		TeamName: team.Name,
		FromID:   requester.ID,
		FromName: requester.Name,
		ToID:     team.LeaderID,
		ToName:   team.LeaderName,
		Kind:     models.KindJoinRequest,
		Message:  message,
	})
}

// Accept resolves a pending invitation in the affirmative and admits the
// joining user, provided the enlarged roster passes the admission rules.
// A failed validation leaves the invitation pending so it can be accepted
// later, after the conflict clears.
func (e *Engine) Accept(ctx context.Context, userID, invitationID primitive.ObjectID) (models.Team, models.Invitation, error) {
	inv, err := e.invites.GetByID(ctx, invitationID)
	if err != nil {
		return models.Team{}, models.Invitation{}, err
	}
	if !teampolicy.CanRespond(inv, userID) {
		return models.Team{}, models.Invitation{}, ErrNotRecipient
	}
	if inv.Terminal() {
		return models.Team{}, models.Invitation{}, invitationstore.ErrNotPending
	}

	// The joiner is the recipient for invites, the requester for join
	// requests (whose recipient is the leader).
	joinerID := inv.ToID
	if inv.Kind == models.KindJoinRequest {
		joinerID = inv.FromID
	}

	unlock := e.locks.Lock(inv.TeamID.Hex())
	defer unlock()

	// Re-read under the lock: a decline or cancel may have landed between
	// the first read and lock acquisition. Every resolver takes this lock,
	// so a pending status observed here holds through the commit below.
	inv, err = e.invites.GetByID(ctx, inv.ID)
	if err != nil {
		return models.Team{}, models.Invitation{}, err
	}
	if inv.Terminal() {
		return models.Team{}, models.Invitation{}, invitationstore.ErrNotPending
	}

	joiner, err := e.users.GetByID(ctx, joinerID)
	if err != nil {
		return models.Team{}, models.Invitation{}, err
	}
	if joiner.OnTeam() {
		return models.Team{}, models.Invitation{}, ErrAlreadyOnTeam
	}

	var team models.Team
	for attempt := 0; ; attempt++ {
		team, err = e.teams.GetByID(ctx, inv.TeamID)
		if err != nil {
			return models.Team{}, models.Invitation{}, err
		}
		if team.Status != models.TeamStatusActive {
			return models.Team{}, models.Invitation{}, ErrTeamInactive
		}
		if team.Full() {
			return models.Team{}, models.Invitation{}, ErrTeamFull
		}

		members, err := e.users.GetMany(ctx, team.MemberIDs)
		if err != nil {
			return models.Team{}, models.Invitation{}, err
		}
		candidate := append(toMembers(members), toMember(*joiner))
		verdict := composition.Validate(candidate, composition.AdmissionRules(e.capacity))
		if !verdict.OK {
			return models.Team{}, models.Invitation{}, &RuleViolationError{Violations: verdict.Violations}
		}

		team, err = e.teams.AddMember(ctx, team.ID, team.Version, joiner.ID, joiner.Name)
		if err == nil {
			break
		}
		if err != teamstore.ErrVersionConflict || attempt >= retries {
			return models.Team{}, models.Invitation{}, err
		}
		// Lost a race: validate again against the fresh roster.
	}

	if err := e.users.SetTeam(ctx, []primitive.ObjectID{joiner.ID}, team.ID); err != nil {
		return models.Team{}, models.Invitation{}, err
	}

	resolved, err := e.invites.Resolve(ctx, inv.ID, models.InvitationAccepted)
	if err != nil {
		return models.Team{}, models.Invitation{}, err
	}

	// Joining moots the joiner's other solicitations; a full team's
	// remaining invitations are moot too.
	if _, err := e.invites.CancelAllPendingForUser(ctx, joiner.ID); err != nil {
		e.log.Warn("cancel pending invitations failed",
			zap.String("user_id", joiner.ID.Hex()), zap.Error(err))
	}
	if team.Full() {
		if _, err := e.invites.CancelAllPendingForTeam(ctx, team.ID); err != nil {
			e.log.Warn("cancel team invitations failed",
				zap.String("team_id", team.ID.Hex()), zap.Error(err))
		}
	}

	team = e.recompute(ctx, team)

	e.log.Info("member joined team",
		zap.String("team_id", team.ID.Hex()),
		zap.String("user_id", joiner.ID.Hex()),
		zap.String("via", inv.Kind))
	return team, resolved, nil
}

// AddMember lets the leader add a team-free user directly, bypassing the
// invitation flow. The enlarged roster must pass the admission rules.
func (e *Engine) AddMember(ctx context.Context, leaderID, teamID, userID primitive.ObjectID) (models.Team, error) {
	unlock := e.locks.Lock(teamID.Hex())
	defer unlock()

	joiner, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Team{}, ErrMemberNotFound
		}
		return models.Team{}, err
	}
	if joiner.OnTeam() {
		return models.Team{}, ErrAlreadyOnTeam
	}

	var team models.Team
	for attempt := 0; ; attempt++ {
		team, err = e.teams.GetByID(ctx, teamID)
		if err != nil {
			return models.Team{}, err
		}
		if !teampolicy.IsLeader(team, leaderID) {
			return models.Team{}, ErrNotLeader
		}
		if team.Status != models.TeamStatusActive {
			return models.Team{}, ErrTeamInactive
		}
		if team.Full() {
			return models.Team{}, ErrTeamFull
		}

		members, err := e.users.GetMany(ctx, team.MemberIDs)
		if err != nil {
			return models.Team{}, err
		}
		candidate := append(toMembers(members), toMember(*joiner))
		verdict := composition.Validate(candidate, composition.AdmissionRules(e.capacity))
		if !verdict.OK {
			return models.Team{}, &RuleViolationError{Violations: verdict.Violations}
		}

		team, err = e.teams.AddMember(ctx, team.ID, team.Version, joiner.ID, joiner.Name)
		if err == nil {
			break
		}
		if err != teamstore.ErrVersionConflict || attempt >= retries {
			return models.Team{}, err
		}
	}

	if err := e.users.SetTeam(ctx, []primitive.ObjectID{joiner.ID}, team.ID); err != nil {
		return models.Team{}, err
	}
	if _, err := e.invites.CancelAllPendingForUser(ctx, joiner.ID); err != nil {
		e.log.Warn("cancel pending invitations failed",
			zap.String("user_id", joiner.ID.Hex()), zap.Error(err))
	}
	if team.Full() {
		if _, err := e.invites.CancelAllPendingForTeam(ctx, team.ID); err != nil {
			e.log.Warn("cancel team invitations failed",
				zap.String("team_id", team.ID.Hex()), zap.Error(err))
		}
	}

	team = e.recompute(ctx, team)

	e.log.Info("member added to team",
		zap.String("team_id", team.ID.Hex()),
		zap.String("user_id", joiner.ID.Hex()))
	return team, nil
}

// Decline resolves a pending invitation in the negative. Only the
// recipient may decline. The team lock keeps the resolution from
// interleaving with an in-flight accept on the same team.
func (e *Engine) Decline(ctx context.Context, userID, invitationID primitive.ObjectID) (models.Invitation, error) {
	inv, err := e.invites.GetByID(ctx, invitationID)
	if err != nil {
		return models.Invitation{}, err
	}
	if !teampolicy.CanRespond(inv, userID) {
		return models.Invitation{}, ErrNotRecipient
	}

	unlock := e.locks.Lock(inv.TeamID.Hex())
	defer unlock()

	return e.invites.Resolve(ctx, inv.ID, models.InvitationDeclined)
}

// Cancel withdraws a pending invitation. Only the sender may cancel.
// Holds the team lock for the same reason Decline does.
func (e *Engine) Cancel(ctx context.Context, userID, invitationID primitive.ObjectID) (models.Invitation, error) {
	inv, err := e.invites.GetByID(ctx, invitationID)
	if err != nil {
		return models.Invitation{}, err
	}
	if !teampolicy.CanWithdraw(inv, userID) {
		return models.Invitation{}, ErrNotSender
	}

	unlock := e.locks.Lock(inv.TeamID.Hex())
	defer unlock()

	return e.invites.Resolve(ctx, inv.ID, models.InvitationCancelled)
}

// RemoveMember ejects a member. Leader only; the leader cannot remove
// themselves. Shrinking a team is always allowed; only the cached
// eligibility changes.
func (e *Engine) RemoveMember(ctx context.Context, leaderID, teamID, memberID primitive.ObjectID) (models.Team, error) {
	unlock := e.locks.Lock(teamID.Hex())
	defer unlock()

	team, err := e.teams.GetByID(ctx, teamID)
	if err != nil {
		return models.Team{}, err
	}
	if !teampolicy.IsLeader(team, leaderID) {
		return models.Team{}, ErrNotLeader
	}
	if memberID == leaderID {
		return models.Team{}, ErrLeaderCannotLeave
	}
	if !team.HasMember(memberID) {
		return models.Team{}, ErrNotOnTeam
	}

	return e.eject(ctx, team, memberID)
}

// Leave removes the calling user from their team. Leaders disband
// instead.
func (e *Engine) Leave(ctx context.Context, userID primitive.ObjectID) (models.Team, error) {
	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return models.Team{}, err
	}
	if !u.OnTeam() {
		return models.Team{}, ErrNotOnTeam
	}

	unlock := e.locks.Lock(u.TeamID.Hex())
	defer unlock()

	team, err := e.teams.GetByID(ctx, *u.TeamID)
	if err != nil {
		return models.Team{}, err
	}
	if teampolicy.IsLeader(team, userID) {
		return models.Team{}, ErrLeaderCannotLeave
	}
	return e.eject(ctx, team, userID)
}

func (e *Engine) eject(ctx context.Context, team models.Team, memberID primitive.ObjectID) (models.Team, error) {
	member, err := e.users.GetByID(ctx, memberID)
	if err != nil {
		return models.Team{}, err
	}

	updated, err := e.teams.RemoveMember(ctx, team.ID, team.Version, member.ID)
	if err != nil {
		return models.Team{}, err
	}
	if err := e.users.ClearTeam(ctx, []primitive.ObjectID{member.ID}); err != nil {
		return models.Team{}, err
	}

	// Rebuild the projected names from the surviving ids; two members may
	// share a display name, so the slice cannot be pulled by value.
	remaining, err := e.users.GetMany(ctx, updated.MemberIDs)
	if err != nil {
		e.log.Warn("member names rebuild: load failed",
			zap.String("team_id", team.ID.Hex()), zap.Error(err))
	} else {
		ordered := orderByIDs(remaining, updated.MemberIDs)
		names := make([]string, len(ordered))
		for i, u := range ordered {
			names[i] = u.Name
		}
		if err := e.teams.SetMemberNames(ctx, updated.ID, names); err != nil {
			e.log.Warn("member names rebuild: persist failed",
				zap.String("team_id", team.ID.Hex()), zap.Error(err))
		} else {
			updated.MemberNames = names
		}
	}

	updated = e.recompute(ctx, updated)

	e.log.Info("member left team",
		zap.String("team_id", team.ID.Hex()),
		zap.String("user_id", memberID.Hex()))
	return updated, nil
}

// Disband dissolves the team: members are freed, pending invitations are
// cancelled, and the team document is kept with disbanded status.
func (e *Engine) Disband(ctx context.Context, leaderID, teamID primitive.ObjectID) (models.Team, error) {
	unlock := e.locks.Lock(teamID.Hex())
	defer unlock()

	team, err := e.teams.GetByID(ctx, teamID)
	if err != nil {
		return models.Team{}, err
	}
	if !teampolicy.IsLeader(team, leaderID) {
		return models.Team{}, ErrNotLeader
	}
	if team.Status != models.TeamStatusActive {
		return models.Team{}, ErrTeamInactive
	}

	disbanded, err := e.teams.Disband(ctx, team.ID, team.Version)
	if err != nil {
		return models.Team{}, err
	}
	if err := e.users.ClearTeam(ctx, disbanded.MemberIDs); err != nil {
		return models.Team{}, err
	}
	if _, err := e.invites.CancelAllPendingForTeam(ctx, team.ID); err != nil {
		e.log.Warn("cancel team invitations failed",
			zap.String("team_id", team.ID.Hex()), zap.Error(err))
	}

	e.log.Info("team disbanded",
		zap.String("team_id", team.ID.Hex()),
		zap.String("name", team.Name))
	return disbanded, nil
}

// Recompute re-evaluates and re-caches a team's eligibility from its
// current members. Exposed for admin/backfill use; the engine calls it
// internally after every mutation.
func (e *Engine) Recompute(ctx context.Context, teamID primitive.ObjectID) (models.Team, error) {
	team, err := e.teams.GetByID(ctx, teamID)
	if err != nil {
		return models.Team{}, err
	}
	return e.recompute(ctx, team), nil
}

// recompute evaluates soft eligibility and persists it; failures are
// logged, not fatal, since the cache can be rebuilt on the next change.
func (e *Engine) recompute(ctx context.Context, team models.Team) models.Team {
	members, err := e.users.GetMany(ctx, team.MemberIDs)
	if err != nil {
		e.log.Warn("eligibility recompute: load members failed",
			zap.String("team_id", team.ID.Hex()), zap.Error(err))
		return team
	}

	ev := composition.Evaluate(toMembers(members), composition.AdmissionRules(e.capacity))
	details := models.EligibilityDetails{
		Foundation: cohort(ev.Foundation),
		Structural: cohort(ev.Structural),
		Innovation: cohort(ev.Innovation),
	}
	if err := e.teams.SetEligibility(ctx, team.ID, ev.Eligible, details); err != nil {
		e.log.Warn("eligibility recompute: persist failed",
			zap.String("team_id", team.ID.Hex()), zap.Error(err))
		return team
	}

	team.IsEligible = ev.Eligible
	team.EligibilityDetails = &details
	return team
}

func cohort(cs composition.CohortStatus) models.CohortStatus {
	return models.CohortStatus{Count: cs.Count, Required: cs.Required, Fulfilled: cs.Fulfilled}
}

func toMember(u models.User) composition.Member {
	return composition.Member{Name: u.Name, Department: u.Department, Gender: u.Gender}
}

func toMembers(users []models.User) []composition.Member {
	members := make([]composition.Member, len(users))
	for i, u := range users {
		members[i] = toMember(u)
	}
	return members
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func orderByIDs(users []models.User, ids []primitive.ObjectID) []models.User {
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out
}
