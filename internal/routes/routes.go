package routes

import (
	"net/http"

	"github.com/GiorgiUbiria/team_ledger/internal/handlers"
	"github.com/GiorgiUbiria/team_ledger/internal/httputil"
	appmw "github.com/GiorgiUbiria/team_ledger/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRoutes(h *handlers.Handler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(appmw.Authenticated(jwtSecret))

		r.Get("/auth/me", h.Me)
		r.Patch("/auth/me", h.UpdateMe)
		r.Put("/auth/password", h.ChangePassword)

		r.Post("/teams", h.CreateTeam)
		r.Get("/teams", h.ListTeams)
		r.Route("/teams/{teamID}", func(r chi.Router) {
			r.Get("/", h.GetTeam)
			r.Patch("/", h.RenameTeam())
			r.Delete("/", h.DeleteTeam)

			r.Put("/budget", h.SetBudget())
			r.Put("/income-goal", h.SetIncomeGoal())
			r.Put("/currency", h.SetCurrency())
			r.Put("/categories", h.SetCategories())
			r.Put("/report-permission", h.SetReportPermission())

			r.Get("/members", h.ListMembers)
			r.Put("/members/{userID}/role", h.ChangeRole)
			r.Delete("/members/{userID}", h.RemoveMember)
			r.Post("/invitations", h.Invite)
			r.Post("/owner", h.TransferOwnership)
			r.Post("/leave", h.Leave)

			r.Post("/transactions", h.AddTransaction)
			r.Get("/transactions", h.ListTransactions)
			r.Get("/change-requests", h.ListTeamChangeRequests)

			r.Get("/report", h.Report)
			r.Get("/report.pdf", h.ReportPDF)
		})

		r.Post("/invitations/{token}/accept", h.AcceptInvitation)

		r.Route("/transactions/{txnID}", func(r chi.Router) {
			r.Get("/", h.GetTransaction)
			r.Patch("/", h.EditTransaction)
			r.Delete("/", h.DeleteTransaction)
			r.Post("/change-requests", h.CreateChangeRequest)
			r.Get("/change-requests", h.ListTransactionChangeRequests)
		})

		r.Route("/change-requests/{reqID}", func(r chi.Router) {
			r.Get("/", h.GetChangeRequest)
			r.Post("/confirm", h.ConfirmChangeRequest)
			r.Post("/withdraw", h.WithdrawChangeRequest)
		})

		r.Get("/notifications", h.Notifications)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "route not found")
	})

	return r
}
