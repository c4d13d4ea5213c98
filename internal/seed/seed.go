package seed

import (
	"context"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedPassword = "password123"
	teamName     = "Demo Household"
	demoTxns     = 20
)

var testUsers = []struct {
	Name  string
	Email string
	Role  models.Role
}{
	{"Demo Owner", "owner@ledger.local", models.RoleOwner},
	{"Demo Admin", "admin@ledger.local", models.RoleAdmin},
	{"Demo Member", "member@ledger.local", models.RoleMember},
}

// Run creates demo users, a team with one member per role and a set of fake
// transactions. It does nothing when the demo owner already exists.
func Run(ctx context.Context, st store.Store) error {
	_, err := st.GetUserByEmail(ctx, testUsers[0].Email)
	if err == nil {
		logger.Log.Info("seed already applied, skipping")
		return nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashed := string(hash)

	err = st.Tx(ctx, func(tx store.Store) error {
		users := make([]models.User, 0, len(testUsers))
		for _, u := range testUsers {
			user := models.User{Name: u.Name, Email: u.Email, Password: hashed}
			if err := tx.CreateUser(ctx, &user); err != nil {
				return err
			}
			users = append(users, user)
		}

		team := models.Team{
			Name:       teamName,
			Slug:       slug.Make(teamName),
			OwnerID:    uint64(users[0].ID),
			Currency:   "USD",
			Budget:     decimal.RequireFromString("3000.00"),
			IncomeGoal: decimal.RequireFromString("5000.00"),
			Categories: append([]string(nil), services.DefaultCategories...),
		}
		if err := tx.CreateTeam(ctx, &team); err != nil {
			return err
		}
		now := time.Now()
		for i, u := range testUsers {
			m := models.Membership{TeamID: team.ID, UserID: uint64(users[i].ID), Role: u.Role, JoinedAt: now}
			if err := tx.AddMembership(ctx, &m); err != nil {
				return err
			}
		}

		for i := 0; i < demoTxns; i++ {
			category := gofakeit.RandomString(services.DefaultCategories)
			kind := models.TransactionExpense
			if category == "Salary" {
				kind = models.TransactionIncome
			}
			txn := models.Transaction{
				TeamID:      team.ID,
				Amount:      decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2),
				Type:        kind,
				Category:    category,
				Description: gofakeit.Sentence(4),
				CreatedBy:   uint64(users[i%len(users)].ID),
			}
			if err := tx.CreateTransaction(ctx, &txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Log.Info("seeded demo team",
		zap.Int("users", len(testUsers)),
		zap.Int("transactions", demoTxns),
		zap.String("password", seedPassword))
	return nil
}
