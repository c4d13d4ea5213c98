package services

import (
	"context"
	"fmt"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/authz"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/notify"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

const invitationTTL = 7 * 24 * time.Hour

type TeamService struct {
	store  store.Store
	notify *notify.Dispatcher
	now    func() time.Time
}

type CreateTeamInput struct {
	Name       string           `json:"name"`
	Currency   string           `json:"currency"`
	Budget     *decimal.Decimal `json:"budget,omitempty"`
	IncomeGoal *decimal.Decimal `json:"income_goal,omitempty"`
	Categories []string         `json:"categories,omitempty"`
}

func (s *TeamService) Create(ctx context.Context, userID uint64, in CreateTeamInput) (models.Team, error) {
	name, err := normalizeTeamName(in.Name)
	if err != nil {
		return models.Team{}, err
	}
	code := in.Currency
	if code == "" {
		code = "USD"
	}
	cur, err := normalizeCurrency(code)
	if err != nil {
		return models.Team{}, err
	}
	budget, goal := decimal.Zero, decimal.Zero
	if in.Budget != nil {
		budget = *in.Budget
	}
	if in.IncomeGoal != nil {
		goal = *in.IncomeGoal
	}
	if err := validateMoney("budget", budget); err != nil {
		return models.Team{}, err
	}
	if err := validateMoney("income goal", goal); err != nil {
		return models.Team{}, err
	}
	categories := DefaultCategories
	if len(in.Categories) > 0 {
		if categories, err = normalizeCategories(in.Categories); err != nil {
			return models.Team{}, err
		}
	}

	team := models.Team{
		Name:       name,
		Slug:       slug.Make(name),
		OwnerID:    userID,
		Currency:   cur,
		Budget:     budget,
		IncomeGoal: goal,
		Categories: append([]string(nil), categories...),
	}
	err = s.store.Tx(ctx, func(tx store.Store) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.CreateTeam(ctx, &team); err != nil {
			return err
		}
		return tx.AddMembership(ctx, &models.Membership{
			TeamID:   team.ID,
			UserID:   userID,
			Role:     models.RoleOwner,
			JoinedAt: s.now(),
		})
	})
	if err != nil {
		return models.Team{}, err
	}
	return team, nil
}

func (s *TeamService) Get(ctx context.Context, userID, teamID uint64) (models.Team, error) {
	sub, err := authz.Check(ctx, s.store, teamID, userID, authz.ViewTeam)
	if err != nil {
		return models.Team{}, err
	}
	return sub.Team, nil
}

func (s *TeamService) ListForUser(ctx context.Context, userID uint64) ([]models.Team, error) {
	return s.store.ListTeamsForUser(ctx, userID)
}

func (s *TeamService) Delete(ctx context.Context, userID, teamID uint64) error {
	return s.store.Tx(ctx, func(tx store.Store) error {
		if _, err := authz.Check(ctx, tx, teamID, userID, authz.DeleteTeam); err != nil {
			return err
		}
		return tx.DeleteTeam(ctx, teamID)
	})
}

// update gates c, then lets mutate validate and change the team. Nothing is
// written when mutate fails.
func (s *TeamService) update(ctx context.Context, userID, teamID uint64, c authz.Capability, mutate func(*models.Team) error) (models.Team, error) {
	var team models.Team
	err := s.store.Tx(ctx, func(tx store.Store) error {
		sub, err := authz.Check(ctx, tx, teamID, userID, c)
		if err != nil {
			return err
		}
		team = sub.Team
		if err := mutate(&team); err != nil {
			return err
		}
		return tx.UpdateTeam(ctx, &team)
	})
	if err != nil {
		return models.Team{}, err
	}
	return team, nil
}

func (s *TeamService) Rename(ctx context.Context, userID, teamID uint64, name string) (models.Team, error) {
	return s.update(ctx, userID, teamID, authz.RenameTeam, func(t *models.Team) error {
		n, err := normalizeTeamName(name)
		if err != nil {
			return err
		}
		t.Name = n
		t.Slug = slug.Make(n)
		return nil
	})
}

func (s *TeamService) SetBudget(ctx context.Context, userID, teamID uint64, budget decimal.Decimal) (models.Team, error) {
	return s.update(ctx, userID, teamID, authz.SetBudget, func(t *models.Team) error {
		if err := validateMoney("budget", budget); err != nil {
			return err
		}
		t.Budget = budget
		return nil
	})
}

func (s *TeamService) SetIncomeGoal(ctx context.Context, userID, teamID uint64, goal decimal.Decimal) (models.Team, error) {
	return s.update(ctx, userID, teamID, authz.SetIncomeGoal, func(t *models.Team) error {
		if err := validateMoney("income goal", goal); err != nil {
			return err
		}
		t.IncomeGoal = goal
		return nil
	})
}

func (s *TeamService) SetCurrency(ctx context.Context, userID, teamID uint64, code string) (models.Team, error) {
	return s.update(ctx, userID, teamID, authz.SetCurrency, func(t *models.Team) error {
		cur, err := normalizeCurrency(code)
		if err != nil {
			return err
		}
		t.Currency = cur
		return nil
	})
}

func (s *TeamService) SetCategories(ctx context.Context, userID, teamID uint64, categories []string) (models.Team, error) {
	return s.update(ctx, userID, teamID, authz.SetCategories, func(t *models.Team) error {
		cs, err := normalizeCategories(categories)
		if err != nil {
			return err
		}
		t.Categories = cs
		return nil
	})
}

func (s *TeamService) SetReportPermission(ctx context.Context, userID, teamID uint64, membersCanView bool) (models.Team, error) {
	return s.update(ctx, userID, teamID, authz.GrantReportView, func(t *models.Team) error {
		t.MembersCanViewReports = membersCanView
		return nil
	})
}

func (s *TeamService) Members(ctx context.Context, userID, teamID uint64) ([]models.Membership, error) {
	if _, err := authz.Check(ctx, s.store, teamID, userID, authz.ViewTeam); err != nil {
		return nil, err
	}
	return s.store.ListMemberships(ctx, teamID)
}

func (s *TeamService) Invite(ctx context.Context, userID, teamID uint64, email string) (models.Invitation, error) {
	var inv models.Invitation
	err := s.store.Tx(ctx, func(tx store.Store) error {
		if _, err := authz.Check(ctx, tx, teamID, userID, authz.ManageMembers); err != nil {
			return err
		}
		addr, err := normalizeEmail(email)
		if err != nil {
			return err
		}
		if u, err := tx.GetUserByEmail(ctx, addr); err == nil {
			if _, err := tx.GetMembership(ctx, teamID, uint64(u.ID)); err == nil {
				return apperr.Conflict("%s is already a member of this team", addr)
			}
		}
		now := s.now()
		inv = models.Invitation{
			TeamID:    teamID,
			Email:     addr,
			InvitedBy: userID,
			Token:     uuid.NewString(),
			Status:    models.InvitationPending,
			ExpiresAt: now.Add(invitationTTL),
		}
		return tx.CreateInvitation(ctx, &inv)
	})
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

func (s *TeamService) AcceptInvitation(ctx context.Context, userID uint64, token string) (models.Membership, error) {
	var (
		m    models.Membership
		team models.Team
	)
	err := s.store.Tx(ctx, func(tx store.Store) error {
		inv, err := tx.GetInvitationByToken(ctx, token)
		if err != nil {
			return err
		}
		if inv.Status != models.InvitationPending {
			return apperr.Conflict("invitation has already been used")
		}
		if s.now().After(inv.ExpiresAt) {
			return apperr.Validation("invitation has expired")
		}
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Email != inv.Email {
			return apperr.Forbidden("invitation was issued to a different email")
		}
		if team, err = tx.GetTeam(ctx, inv.TeamID); err != nil {
			return err
		}
		m = models.Membership{TeamID: inv.TeamID, UserID: userID, Role: models.RoleMember, JoinedAt: s.now()}
		if err := tx.AddMembership(ctx, &m); err != nil {
			return err
		}
		return tx.SetInvitationStatus(ctx, inv.ID, models.InvitationPending, models.InvitationAccepted)
	})
	if err != nil {
		return models.Membership{}, err
	}
	s.notify.Send(notify.NewEvent(notify.MemberJoined, team.OwnerID, team.ID,
		fmt.Sprintf("user %d joined %s", userID, team.Name)))
	return m, nil
}

func (s *TeamService) ChangeRole(ctx context.Context, userID, teamID, targetID uint64, role models.Role) error {
	return s.store.Tx(ctx, func(tx store.Store) error {
		if _, err := authz.Check(ctx, tx, teamID, userID, authz.ChangeRoles); err != nil {
			return err
		}
		if role != models.RoleAdmin && role != models.RoleMember {
			return apperr.Validation("role must be %s or %s; use ownership transfer for %s",
				models.RoleAdmin, models.RoleMember, models.RoleOwner)
		}
		target, err := tx.GetMembership(ctx, teamID, targetID)
		if err != nil {
			return err
		}
		if target.Role == models.RoleOwner {
			return apperr.Conflict("the owner's role can only change through ownership transfer")
		}
		return tx.UpdateMembershipRole(ctx, teamID, targetID, role)
	})
}

// TransferOwnership hands the team to another member. The previous owner
// stays on as ADMIN.
func (s *TeamService) TransferOwnership(ctx context.Context, userID, teamID, newOwnerID uint64) (models.Team, error) {
	var team models.Team
	err := s.store.Tx(ctx, func(tx store.Store) error {
		sub, err := authz.Check(ctx, tx, teamID, userID, authz.TransferOwnership)
		if err != nil {
			return err
		}
		if newOwnerID == userID {
			return apperr.Validation("you already own this team")
		}
		if _, err := tx.GetMembership(ctx, teamID, newOwnerID); err != nil {
			return err
		}
		if err := tx.UpdateMembershipRole(ctx, teamID, userID, models.RoleAdmin); err != nil {
			return err
		}
		if err := tx.UpdateMembershipRole(ctx, teamID, newOwnerID, models.RoleOwner); err != nil {
			return err
		}
		team = sub.Team
		team.OwnerID = newOwnerID
		return tx.UpdateTeam(ctx, &team)
	})
	if err != nil {
		return models.Team{}, err
	}
	return team, nil
}

func (s *TeamService) RemoveMember(ctx context.Context, userID, teamID, targetID uint64) error {
	return s.store.Tx(ctx, func(tx store.Store) error {
		sub, err := authz.Check(ctx, tx, teamID, userID, authz.ManageMembers)
		if err != nil {
			return err
		}
		if targetID == userID {
			return apperr.Validation("use leave to remove yourself")
		}
		target, err := tx.GetMembership(ctx, teamID, targetID)
		if err != nil {
			return err
		}
		if target.Role == models.RoleOwner {
			return apperr.Forbidden("the team owner cannot be removed")
		}
		if sub.Membership.Role == models.RoleAdmin && target.Role != models.RoleMember {
			return apperr.Forbidden("admins may only remove members")
		}
		return tx.RemoveMembership(ctx, teamID, targetID)
	})
}

func (s *TeamService) Leave(ctx context.Context, userID, teamID uint64) error {
	return s.store.Tx(ctx, func(tx store.Store) error {
		sub, err := authz.Check(ctx, tx, teamID, userID, authz.ViewTeam)
		if err != nil {
			return err
		}
		if sub.Membership.Role == models.RoleOwner {
			return apperr.Conflict("the owner must transfer ownership before leaving")
		}
		return tx.RemoveMembership(ctx, teamID, userID)
	})
}
