package services

import (
	"context"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/authz"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
	"github.com/shopspring/decimal"
)

type ReportService struct {
	store store.Store
	now   func() time.Time
}

type CategoryLine struct {
	Type     models.TransactionType `json:"type"`
	Category string                 `json:"category"`
	Total    decimal.Decimal        `json:"total"`
	Count    int64                  `json:"count"`
}

type Report struct {
	TeamID          uint64          `json:"team_id"`
	TeamName        string          `json:"team_name"`
	Currency        string          `json:"currency"`
	Income          decimal.Decimal `json:"income"`
	Expense         decimal.Decimal `json:"expense"`
	Net             decimal.Decimal `json:"net"`
	Budget          decimal.Decimal `json:"budget"`
	BudgetRemaining decimal.Decimal `json:"budget_remaining"`
	IncomeGoal      decimal.Decimal `json:"income_goal"`
	// GoalProgress is income as a percentage of the income goal, or zero
	// when no goal is set.
	GoalProgress decimal.Decimal `json:"goal_progress"`
	Categories   []CategoryLine  `json:"categories"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

func (s *ReportService) Summary(ctx context.Context, userID, teamID uint64) (Report, error) {
	sub, err := authz.Check(ctx, s.store, teamID, userID, authz.ViewReports)
	if err != nil {
		return Report{}, err
	}
	totals, err := s.store.SumTransactions(ctx, teamID)
	if err != nil {
		return Report{}, err
	}
	return buildReport(sub.Team, totals, s.now()), nil
}

func buildReport(team models.Team, totals []store.CategoryTotal, at time.Time) Report {
	r := Report{
		TeamID:      team.ID,
		TeamName:    team.Name,
		Currency:    team.Currency,
		Income:      decimal.Zero,
		Expense:     decimal.Zero,
		Budget:      team.Budget,
		IncomeGoal:  team.IncomeGoal,
		Categories:  make([]CategoryLine, 0, len(totals)),
		GeneratedAt: at,
	}
	for _, t := range totals {
		switch t.Type {
		case models.TransactionIncome:
			r.Income = r.Income.Add(t.Total)
		case models.TransactionExpense:
			r.Expense = r.Expense.Add(t.Total)
		}
		r.Categories = append(r.Categories, CategoryLine{Type: t.Type, Category: t.Category, Total: t.Total, Count: t.Count})
	}
	r.Net = r.Income.Sub(r.Expense)
	r.BudgetRemaining = r.Budget.Sub(r.Expense)
	r.GoalProgress = decimal.Zero
	if r.IncomeGoal.IsPositive() {
		r.GoalProgress = r.Income.Mul(decimal.NewFromInt(100)).Div(r.IncomeGoal).Round(2)
	}
	return r
}
