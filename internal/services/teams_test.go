package services

import (
	"testing"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/notify"
	"github.com/shopspring/decimal"
)

func TestCreateTeamBootstrapsSingleOwner(t *testing.T) {
	f := newFixture(t)

	team, err := f.svc.Teams.Create(f.ctx, uid(f.outsider), CreateTeamInput{Name: "  Road Trip 2024 ", Currency: "eur"})
	if err != nil {
		t.Fatal(err)
	}
	if team.Name != "Road Trip 2024" || team.Slug != "road-trip-2024" || team.Currency != "EUR" {
		t.Fatalf("team = %+v", team)
	}
	if team.OwnerID != uid(f.outsider) || len(team.Categories) != len(DefaultCategories) {
		t.Fatalf("team = %+v", team)
	}

	members, err := f.svc.Teams.Members(f.ctx, uid(f.outsider), team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].UserID != uid(f.outsider) || members[0].Role != models.RoleOwner {
		t.Fatalf("members = %+v", members)
	}
}

func TestCreateTeamValidation(t *testing.T) {
	f := newFixture(t)
	for _, in := range []CreateTeamInput{
		{Name: ""},
		{Name: "x", Currency: "ZZZ"},
		{Name: "x", Budget: dec("-1")},
		{Name: "x", Categories: []string{"a", "A"}},
	} {
		_, err := f.svc.Teams.Create(f.ctx, uid(f.owner), in)
		wantKind(t, err, apperr.KindValidation)
	}
	teams, _ := f.svc.Teams.ListForUser(f.ctx, uid(f.owner))
	if len(teams) != 1 {
		t.Fatalf("invalid creates persisted teams: %d", len(teams))
	}
}

func TestTeamSettersGating(t *testing.T) {
	f := newFixture(t)
	ctx, team := f.ctx, f.team.ID

	_, err := f.svc.Teams.SetBudget(ctx, uid(f.member), team, decimal.NewFromInt(-5))
	wantKind(t, err, apperr.KindForbidden)
	_, err = f.svc.Teams.SetBudget(ctx, uid(f.admin), team, decimal.NewFromInt(-5))
	wantKind(t, err, apperr.KindValidation)

	got, err := f.svc.Teams.SetBudget(ctx, uid(f.admin), team, decimal.NewFromInt(2500))
	if err != nil || !got.Budget.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("SetBudget() = %s, %v", got.Budget, err)
	}
	if _, err := f.svc.Teams.SetIncomeGoal(ctx, uid(f.owner), team, decimal.NewFromInt(4000)); err != nil {
		t.Fatal(err)
	}
	if got, err := f.svc.Teams.SetCurrency(ctx, uid(f.admin), team, "gel"); err != nil || got.Currency != "GEL" {
		t.Fatalf("SetCurrency() = %q, %v", got.Currency, err)
	}
	_, err = f.svc.Teams.SetCurrency(ctx, uid(f.admin), team, "dollars")
	wantKind(t, err, apperr.KindValidation)
	if got, err := f.svc.Teams.Rename(ctx, uid(f.admin), team, "Flat 4B"); err != nil || got.Slug != "flat-4b" {
		t.Fatalf("Rename() = %+v, %v", got, err)
	}
	if got, err := f.svc.Teams.SetCategories(ctx, uid(f.admin), team, []string{"Food", "Rent"}); err != nil || len(got.Categories) != 2 {
		t.Fatalf("SetCategories() = %v, %v", got.Categories, err)
	}
	if got, err := f.svc.Teams.SetReportPermission(ctx, uid(f.admin), team, true); err != nil || !got.MembersCanViewReports {
		t.Fatalf("SetReportPermission() = %v, %v", got.MembersCanViewReports, err)
	}

	stored, _ := f.svc.Teams.Get(ctx, uid(f.member), team)
	if stored.Currency != "GEL" || !stored.Budget.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("stored team = %+v", stored)
	}
}

func TestDeleteTeam(t *testing.T) {
	f := newFixture(t)
	txn := f.addTxn(t, f.member, "5", "Food")

	err := f.svc.Teams.Delete(f.ctx, uid(f.admin), f.team.ID)
	wantKind(t, err, apperr.KindForbidden)
	err = f.svc.Teams.Delete(f.ctx, uid(f.member), f.team.ID)
	wantKind(t, err, apperr.KindForbidden)

	if err := f.svc.Teams.Delete(f.ctx, uid(f.owner), f.team.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Teams.Get(f.ctx, uid(f.owner), f.team.ID)
	wantKind(t, err, apperr.KindNotFound)
	_, err = f.store.GetTransaction(f.ctx, txn.ID)
	wantKind(t, err, apperr.KindNotFound)
}

func TestInvitationFlow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Teams.Invite(f.ctx, uid(f.member), f.team.ID, f.outsider.Email)
	wantKind(t, err, apperr.KindForbidden)
	_, err = f.svc.Teams.Invite(f.ctx, uid(f.admin), f.team.ID, f.member.Email)
	wantKind(t, err, apperr.KindConflict)

	inv, err := f.svc.Teams.Invite(f.ctx, uid(f.admin), f.team.ID, "  OUTSIDER@example.com ")
	if err != nil {
		t.Fatal(err)
	}
	if inv.Email != f.outsider.Email || inv.Token == "" || inv.Status != models.InvitationPending {
		t.Fatalf("invitation = %+v", inv)
	}

	_, err = f.svc.Teams.AcceptInvitation(f.ctx, uid(f.member), inv.Token)
	wantKind(t, err, apperr.KindForbidden)

	m, err := f.svc.Teams.AcceptInvitation(f.ctx, uid(f.outsider), inv.Token)
	if err != nil {
		t.Fatal(err)
	}
	if m.Role != models.RoleMember {
		t.Fatalf("role = %s", m.Role)
	}
	_, err = f.svc.Teams.AcceptInvitation(f.ctx, uid(f.outsider), inv.Token)
	wantKind(t, err, apperr.KindConflict)

	evs := f.events(f.owner)
	if len(evs) != 1 || evs[0].Kind != notify.MemberJoined {
		t.Fatalf("owner events = %+v", evs)
	}
}

func TestExpiredInvitation(t *testing.T) {
	f := newFixture(t)
	inv, err := f.svc.Teams.Invite(f.ctx, uid(f.owner), f.team.ID, f.outsider.Email)
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.svc.Teams.AcceptInvitation(f.ctx, uid(f.outsider), inv.Token)
	wantKind(t, err, apperr.KindValidation)
}

func TestRolesAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx, team := f.ctx, f.team.ID

	err := f.svc.Teams.ChangeRole(ctx, uid(f.admin), team, uid(f.member), models.RoleAdmin)
	wantKind(t, err, apperr.KindForbidden)
	err = f.svc.Teams.ChangeRole(ctx, uid(f.owner), team, uid(f.member), models.RoleOwner)
	wantKind(t, err, apperr.KindValidation)
	if err := f.svc.Teams.ChangeRole(ctx, uid(f.owner), team, uid(f.member), models.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Teams.TransferOwnership(ctx, uid(f.owner), team, uid(f.member))
	if err != nil {
		t.Fatal(err)
	}
	if got.OwnerID != uid(f.member) {
		t.Fatalf("owner id = %d", got.OwnerID)
	}
	members, _ := f.store.ListMemberships(ctx, team)
	owners := 0
	for _, m := range members {
		if m.Role == models.RoleOwner {
			owners++
			if m.UserID != uid(f.member) {
				t.Fatalf("owner is %d", m.UserID)
			}
		}
		if m.UserID == uid(f.owner) && m.Role != models.RoleAdmin {
			t.Fatalf("previous owner role = %s", m.Role)
		}
	}
	if owners != 1 {
		t.Fatalf("owners = %d", owners)
	}
}

func TestRemoveAndLeave(t *testing.T) {
	f := newFixture(t)
	ctx, team := f.ctx, f.team.ID

	err := f.svc.Teams.RemoveMember(ctx, uid(f.admin), team, uid(f.owner))
	wantKind(t, err, apperr.KindForbidden)
	err = f.svc.Teams.RemoveMember(ctx, uid(f.member), team, uid(f.admin))
	wantKind(t, err, apperr.KindForbidden)
	err = f.svc.Teams.Leave(ctx, uid(f.owner), team)
	wantKind(t, err, apperr.KindConflict)

	if err := f.svc.Teams.RemoveMember(ctx, uid(f.admin), team, uid(f.member)); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Teams.Leave(ctx, uid(f.admin), team); err != nil {
		t.Fatal(err)
	}
	members, _ := f.store.ListMemberships(ctx, team)
	if len(members) != 1 {
		t.Fatalf("members = %+v", members)
	}
}
