package handlers

import (
	"net/http"

	"github.com/GiorgiUbiria/team_ledger/internal/httputil"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
	"github.com/shopspring/decimal"
)

type RenameTeamRequest struct {
	Name string `json:"name"`
}

type BudgetRequest struct {
	Budget decimal.Decimal `json:"budget"`
}

type IncomeGoalRequest struct {
	IncomeGoal decimal.Decimal `json:"income_goal"`
}

type CurrencyRequest struct {
	Currency string `json:"currency"`
}

type CategoriesRequest struct {
	Categories []string `json:"categories"`
}

type ReportPermissionRequest struct {
	MembersCanViewReports bool `json:"members_can_view_reports"`
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req services.CreateTeamInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	team, err := h.svc.Teams.Create(r.Context(), userID, req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, team)
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	teams, err := h.svc.Teams.ListForUser(r.Context(), userID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, teams)
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		team, err := h.svc.Teams.Get(r.Context(), userID, ids[0])
		respond(w, r, http.StatusOK, team, err)
	})
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		respondEmpty(w, r, h.svc.Teams.Delete(r.Context(), userID, ids[0]))
	})
}

// teamSetter decodes a body of type T and applies it through set.
func teamSetter[T any](set func(r *http.Request, userID, teamID uint64, body T) (models.Team, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
			var body T
			if err := httputil.DecodeJSON(r, &body); err != nil {
				writeErr(w, r, err)
				return
			}
			team, err := set(r, userID, ids[0], body)
			respond(w, r, http.StatusOK, team, err)
		})
	}
}

func (h *Handler) RenameTeam() http.HandlerFunc {
	return teamSetter(func(r *http.Request, userID, teamID uint64, b RenameTeamRequest) (models.Team, error) {
		return h.svc.Teams.Rename(r.Context(), userID, teamID, b.Name)
	})
}

func (h *Handler) SetBudget() http.HandlerFunc {
	return teamSetter(func(r *http.Request, userID, teamID uint64, b BudgetRequest) (models.Team, error) {
		return h.svc.Teams.SetBudget(r.Context(), userID, teamID, b.Budget)
	})
}

func (h *Handler) SetIncomeGoal() http.HandlerFunc {
	return teamSetter(func(r *http.Request, userID, teamID uint64, b IncomeGoalRequest) (models.Team, error) {
		return h.svc.Teams.SetIncomeGoal(r.Context(), userID, teamID, b.IncomeGoal)
	})
}

func (h *Handler) SetCurrency() http.HandlerFunc {
	return teamSetter(func(r *http.Request, userID, teamID uint64, b CurrencyRequest) (models.Team, error) {
		return h.svc.Teams.SetCurrency(r.Context(), userID, teamID, b.Currency)
	})
}

func (h *Handler) SetCategories() http.HandlerFunc {
	return teamSetter(func(r *http.Request, userID, teamID uint64, b CategoriesRequest) (models.Team, error) {
		return h.svc.Teams.SetCategories(r.Context(), userID, teamID, b.Categories)
	})
}

func (h *Handler) SetReportPermission() http.HandlerFunc {
	return teamSetter(func(r *http.Request, userID, teamID uint64, b ReportPermissionRequest) (models.Team, error) {
		return h.svc.Teams.SetReportPermission(r.Context(), userID, teamID, b.MembersCanViewReports)
	})
}

func respond(w http.ResponseWriter, r *http.Request, code int, v any, err error) {
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, code, v)
}

func respondEmpty(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
