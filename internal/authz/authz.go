// Package authz is the single place where team roles are turned into
// permission decisions. Every mutating service call goes through Check or
// CheckDirectMutation before touching the store.
package authz

import (
	"context"
	"fmt"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
)

type Capability string

const (
	DeleteTeam        Capability = "team.delete"
	RenameTeam        Capability = "team.rename"
	SetBudget         Capability = "team.set_budget"
	SetIncomeGoal     Capability = "team.set_income_goal"
	SetCurrency       Capability = "team.set_currency"
	SetCategories     Capability = "team.set_categories"
	GrantReportView   Capability = "team.grant_report_view"
	ManageMembers     Capability = "team.manage_members"
	ChangeRoles       Capability = "team.change_roles"
	TransferOwnership Capability = "team.transfer_ownership"
	ViewTeam          Capability = "team.view"
	ViewReports       Capability = "team.view_reports"
	AddTransaction    Capability = "transaction.add"
	RequestChange     Capability = "transaction.request_change"
	ConfirmChange     Capability = "transaction.confirm_change"
)

var (
	ownerOnly    = []models.Role{models.RoleOwner}
	ownerOrAdmin = []models.Role{models.RoleOwner, models.RoleAdmin}
	anyMember    = []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleMember}
	allowedRoles = map[Capability][]models.Role{
		DeleteTeam:        ownerOnly,
		ChangeRoles:       ownerOnly,
		TransferOwnership: ownerOnly,
		RenameTeam:        ownerOrAdmin,
		SetBudget:         ownerOrAdmin,
		SetIncomeGoal:     ownerOrAdmin,
		SetCurrency:       ownerOrAdmin,
		SetCategories:     ownerOrAdmin,
		GrantReportView:   ownerOrAdmin,
		ManageMembers:     ownerOrAdmin,
		ConfirmChange:     ownerOrAdmin,
		ViewReports:       ownerOrAdmin,
		ViewTeam:          anyMember,
		AddTransaction:    anyMember,
		RequestChange:     anyMember,
	}
)

type Decision struct {
	Allow  bool
	Reason string
}

func allow() Decision { return Decision{Allow: true} }

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Decide evaluates a capability for a member holding role in team. It has
// no side effects.
func Decide(role models.Role, team models.Team, c Capability) Decision {
	roles, ok := allowedRoles[c]
	if !ok {
		return deny("unknown capability %q", c)
	}
	for _, r := range roles {
		if r == role {
			return allow()
		}
	}
	if c == ViewReports && team.MembersCanViewReports && role == models.RoleMember {
		return allow()
	}
	return deny("role %s may not %s", role, c)
}

// DecideDirectMutation decides whether a member may edit or delete txn
// without going through a change request: the team owner and the
// transaction's creator may.
func DecideDirectMutation(m models.Membership, txn models.Transaction) Decision {
	if m.TeamID != txn.TeamID {
		return deny("transaction %d belongs to another team", txn.ID)
	}
	if m.Role == models.RoleOwner || m.UserID == txn.CreatedBy {
		return allow()
	}
	return deny("only the team owner or the creator may change transaction %d directly; submit a change request", txn.ID)
}

// Reader is the slice of the store the gate consults.
type Reader interface {
	GetTeam(ctx context.Context, id uint64) (models.Team, error)
	GetMembership(ctx context.Context, teamID, userID uint64) (models.Membership, error)
}

type Subject struct {
	Team       models.Team
	Membership models.Membership
}

// Check loads the team and the caller's membership and evaluates c.
// A missing team and a non-member caller both yield NotFound, so team
// existence is not disclosed to outsiders; an insufficient role yields
// Forbidden.
func Check(ctx context.Context, r Reader, teamID, userID uint64, c Capability) (Subject, error) {
	team, err := r.GetTeam(ctx, teamID)
	if err != nil {
		return Subject{}, err
	}
	m, err := r.GetMembership(ctx, teamID, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return Subject{}, apperr.NotFound("team %d not found", teamID)
		}
		return Subject{}, err
	}
	if d := Decide(m.Role, team, c); !d.Allow {
		return Subject{}, apperr.Forbidden("%s", d.Reason)
	}
	return Subject{Team: team, Membership: m}, nil
}

// CheckDirectMutation verifies the caller is a member of txn's team and
// may mutate txn directly.
func CheckDirectMutation(ctx context.Context, r Reader, txn models.Transaction, userID uint64) (Subject, error) {
	sub, err := Check(ctx, r, txn.TeamID, userID, ViewTeam)
	if err != nil {
		return Subject{}, err
	}
	if d := DecideDirectMutation(sub.Membership, txn); !d.Allow {
		return Subject{}, apperr.Forbidden("%s", d.Reason)
	}
	return sub, nil
}
