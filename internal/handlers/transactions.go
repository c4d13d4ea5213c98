package handlers

import (
	"net/http"

	"github.com/GiorgiUbiria/team_ledger/internal/httputil"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
)

func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		var req models.TransactionFields
		if err := httputil.DecodeJSON(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		txn, err := h.svc.Transactions.Add(r.Context(), userID, ids[0], req)
		respond(w, r, http.StatusCreated, txn, err)
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		page, err := queryInt(r, "page", 1)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		p, err := h.svc.Transactions.List(r.Context(), userID, ids[0], page, limit)
		respond(w, r, http.StatusOK, p, err)
	})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"txnID"}, func(userID uint64, ids []uint64) {
		txn, err := h.svc.Transactions.Get(r.Context(), userID, ids[0])
		respond(w, r, http.StatusOK, txn, err)
	})
}

func (h *Handler) EditTransaction(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"txnID"}, func(userID uint64, ids []uint64) {
		var patch services.TransactionPatch
		if err := httputil.DecodeJSON(r, &patch); err != nil {
			writeErr(w, r, err)
			return
		}
		txn, err := h.svc.Transactions.Edit(r.Context(), userID, ids[0], patch)
		respond(w, r, http.StatusOK, txn, err)
	})
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"txnID"}, func(userID uint64, ids []uint64) {
		respondEmpty(w, r, h.svc.Transactions.Delete(r.Context(), userID, ids[0]))
	})
}
