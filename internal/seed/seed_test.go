package seed

import (
	"context"
	"testing"

	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	for i := 0; i < 2; i++ {
		if err := Run(ctx, st); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	owner, err := st.GetUserByEmail(ctx, "owner@ledger.local")
	if err != nil {
		t.Fatal(err)
	}
	teams, err := st.ListTeamsForUser(ctx, uint64(owner.ID))
	if err != nil || len(teams) != 1 {
		t.Fatalf("teams = %+v, %v", teams, err)
	}

	members, _ := st.ListMemberships(ctx, teams[0].ID)
	roles := map[models.Role]int{}
	for _, m := range members {
		roles[m.Role]++
	}
	if len(members) != 3 || roles[models.RoleOwner] != 1 || roles[models.RoleAdmin] != 1 {
		t.Fatalf("members = %+v", members)
	}

	_, total, err := st.ListTransactions(ctx, teams[0].ID, 100, 0)
	if err != nil || total != demoTxns {
		t.Fatalf("transactions = %d, %v", total, err)
	}
}
