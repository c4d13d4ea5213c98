package handlers

import (
	"net/http"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/httputil"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
)

// ChangeRequestBody proposes a change. The patch fields apply to EDIT only.
type ChangeRequestBody struct {
	Kind models.ChangeKind `json:"kind"`
	services.TransactionPatch
}

type DecisionRequest struct {
	Decision models.ChangeStatus `json:"decision"`
}

func (h *Handler) CreateChangeRequest(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"txnID"}, func(userID uint64, ids []uint64) {
		var req ChangeRequestBody
		if err := httputil.DecodeJSON(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		var (
			cr  models.ChangeRequest
			err error
		)
		switch req.Kind {
		case models.ChangeEdit:
			cr, err = h.svc.ChangeRequests.RequestEdit(r.Context(), userID, ids[0], req.TransactionPatch)
		case models.ChangeDelete:
			if !req.TransactionPatch.IsEmpty() {
				err = apperr.Validation("a %s request carries no fields", models.ChangeDelete)
				break
			}
			cr, err = h.svc.ChangeRequests.RequestDelete(r.Context(), userID, ids[0])
		default:
			err = apperr.Validation("kind must be %s or %s", models.ChangeEdit, models.ChangeDelete)
		}
		respond(w, r, http.StatusCreated, cr, err)
	})
}

func (h *Handler) ListTransactionChangeRequests(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"txnID"}, func(userID uint64, ids []uint64) {
		list, err := h.svc.ChangeRequests.ListForTransaction(r.Context(), userID, ids[0])
		respond(w, r, http.StatusOK, list, err)
	})
}

func (h *Handler) ListTeamChangeRequests(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		status := models.ChangeStatus(r.URL.Query().Get("status"))
		list, err := h.svc.ChangeRequests.ListForTeam(r.Context(), userID, ids[0], status)
		respond(w, r, http.StatusOK, list, err)
	})
}

func (h *Handler) GetChangeRequest(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"reqID"}, func(userID uint64, ids []uint64) {
		cr, err := h.svc.ChangeRequests.Get(r.Context(), userID, ids[0])
		respond(w, r, http.StatusOK, cr, err)
	})
}

func (h *Handler) ConfirmChangeRequest(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"reqID"}, func(userID uint64, ids []uint64) {
		var req DecisionRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		cr, err := h.svc.ChangeRequests.Confirm(r.Context(), userID, ids[0], req.Decision)
		respond(w, r, http.StatusOK, cr, err)
	})
}

func (h *Handler) WithdrawChangeRequest(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"reqID"}, func(userID uint64, ids []uint64) {
		cr, err := h.svc.ChangeRequests.Withdraw(r.Context(), userID, ids[0])
		respond(w, r, http.StatusOK, cr, err)
	})
}
