package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
)

func TestDecide(t *testing.T) {
	team := models.Team{ID: 1}
	reportsOpen := models.Team{ID: 1, MembersCanViewReports: true}

	tests := []struct {
		role  models.Role
		team  models.Team
		cap   Capability
		allow bool
	}{
		{models.RoleOwner, team, DeleteTeam, true},
		{models.RoleAdmin, team, DeleteTeam, false},
		{models.RoleMember, team, DeleteTeam, false},
		{models.RoleAdmin, team, SetBudget, true},
		{models.RoleMember, team, SetBudget, false},
		{models.RoleAdmin, team, SetCurrency, true},
		{models.RoleAdmin, team, RenameTeam, true},
		{models.RoleAdmin, team, SetCategories, true},
		{models.RoleMember, team, SetCategories, false},
		{models.RoleAdmin, team, GrantReportView, true},
		{models.RoleAdmin, team, ChangeRoles, false},
		{models.RoleOwner, team, TransferOwnership, true},
		{models.RoleAdmin, team, ConfirmChange, true},
		{models.RoleMember, team, ConfirmChange, false},
		{models.RoleMember, team, AddTransaction, true},
		{models.RoleMember, team, RequestChange, true},
		{models.RoleMember, team, ViewReports, false},
		{models.RoleMember, reportsOpen, ViewReports, true},
		{models.RoleMember, team, Capability("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			d := Decide(tt.role, tt.team, tt.cap)
			if d.Allow != tt.allow {
				t.Fatalf("Decide() = %+v, want allow=%v", d, tt.allow)
			}
			if !d.Allow && d.Reason == "" {
				t.Fatal("deny decision must carry a reason")
			}
		})
	}
}

func TestDecideDirectMutation(t *testing.T) {
	txn := models.Transaction{ID: 9, TeamID: 1, CreatedBy: 2}

	tests := []struct {
		name  string
		m     models.Membership
		allow bool
	}{
		{"owner", models.Membership{TeamID: 1, UserID: 1, Role: models.RoleOwner}, true},
		{"creator member", models.Membership{TeamID: 1, UserID: 2, Role: models.RoleMember}, true},
		{"other member", models.Membership{TeamID: 1, UserID: 3, Role: models.RoleMember}, false},
		{"admin non-creator", models.Membership{TeamID: 1, UserID: 4, Role: models.RoleAdmin}, false},
		{"other team owner", models.Membership{TeamID: 2, UserID: 1, Role: models.RoleOwner}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideDirectMutation(tt.m, txn).Allow; got != tt.allow {
				t.Fatalf("allow = %v, want %v", got, tt.allow)
			}
		})
	}
}

type fakeReader struct {
	teams       map[uint64]models.Team
	memberships map[[2]uint64]models.Membership
}

func (f fakeReader) GetTeam(_ context.Context, id uint64) (models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return models.Team{}, apperr.NotFound("team not found")
	}
	return t, nil
}

func (f fakeReader) GetMembership(_ context.Context, teamID, userID uint64) (models.Membership, error) {
	m, ok := f.memberships[[2]uint64{teamID, userID}]
	if !ok {
		return models.Membership{}, apperr.NotFound("membership not found")
	}
	return m, nil
}

func TestCheck(t *testing.T) {
	r := fakeReader{
		teams: map[uint64]models.Team{1: {ID: 1}},
		memberships: map[[2]uint64]models.Membership{
			{1, 10}: {TeamID: 1, UserID: 10, Role: models.RoleOwner},
			{1, 11}: {TeamID: 1, UserID: 11, Role: models.RoleMember},
		},
	}
	ctx := context.Background()

	if _, err := Check(ctx, r, 1, 10, DeleteTeam); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := Check(ctx, r, 1, 11, DeleteTeam); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("member delete error = %v, want forbidden", err)
	}
	if _, err := Check(ctx, r, 1, 12, ViewTeam); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("outsider error = %v, want not found", err)
	}
	if _, err := Check(ctx, r, 2, 10, ViewTeam); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing team error = %v, want not found", err)
	}

	txn := models.Transaction{ID: 5, TeamID: 1, CreatedBy: 10}
	if _, err := CheckDirectMutation(ctx, r, txn, 11); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("member direct edit error = %v, want forbidden", err)
	}
	if _, err := CheckDirectMutation(ctx, r, txn, 10); err != nil {
		t.Fatalf("owner direct edit: %v", err)
	}
}
