package services

import (
	"bytes"
	"testing"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/shopspring/decimal"
)

func TestReportSummary(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Teams.SetBudget(f.ctx, uid(f.owner), f.team.ID, decimal.NewFromInt(500)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Teams.SetIncomeGoal(f.ctx, uid(f.owner), f.team.ID, decimal.NewFromInt(2000)); err != nil {
		t.Fatal(err)
	}
	f.addTxn(t, f.owner, "120.50", "Food")
	f.addTxn(t, f.member, "79.50", "Transport")
	if _, err := f.svc.Transactions.Add(f.ctx, uid(f.owner), f.team.ID, models.TransactionFields{
		Amount: decimal.NewFromInt(1500), Type: models.TransactionIncome, Category: "Salary",
	}); err != nil {
		t.Fatal(err)
	}

	r, err := f.svc.Reports.Summary(f.ctx, uid(f.admin), f.team.ID)
	if err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"income", r.Income, "1500"},
		{"expense", r.Expense, "200"},
		{"net", r.Net, "1300"},
		{"budget remaining", r.BudgetRemaining, "300"},
		{"goal progress", r.GoalProgress, "75"},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if len(r.Categories) != 3 {
		t.Fatalf("categories = %+v", r.Categories)
	}

	pdf, err := RenderReportPDF(r)
	if err != nil {
		t.Fatalf("RenderReportPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestReportPermission(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reports.Summary(f.ctx, uid(f.member), f.team.ID)
	wantKind(t, err, apperr.KindForbidden)

	if _, err := f.svc.Teams.SetReportPermission(f.ctx, uid(f.admin), f.team.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Reports.Summary(f.ctx, uid(f.member), f.team.ID); err != nil {
		t.Fatalf("member with report permission: %v", err)
	}
}
