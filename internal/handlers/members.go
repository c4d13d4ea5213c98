package handlers

import (
	"net/http"

	"github.com/GiorgiUbiria/team_ledger/internal/httputil"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/go-chi/chi/v5"
)

type InviteRequest struct {
	Email string `json:"email"`
}

type RoleRequest struct {
	Role models.Role `json:"role"`
}

type OwnerRequest struct {
	UserID uint64 `json:"user_id"`
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		members, err := h.svc.Teams.Members(r.Context(), userID, ids[0])
		respond(w, r, http.StatusOK, members, err)
	})
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		var req InviteRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		inv, err := h.svc.Teams.Invite(r.Context(), userID, ids[0], req.Email)
		respond(w, r, http.StatusCreated, inv, err)
	})
}

func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Teams.AcceptInvitation(r.Context(), userID, chi.URLParam(r, "token"))
	respond(w, r, http.StatusCreated, m, err)
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID", "userID"}, func(userID uint64, ids []uint64) {
		var req RoleRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		respondEmpty(w, r, h.svc.Teams.ChangeRole(r.Context(), userID, ids[0], ids[1], req.Role))
	})
}

func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		var req OwnerRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		team, err := h.svc.Teams.TransferOwnership(r.Context(), userID, ids[0], req.UserID)
		respond(w, r, http.StatusOK, team, err)
	})
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID", "userID"}, func(userID uint64, ids []uint64) {
		respondEmpty(w, r, h.svc.Teams.RemoveMember(r.Context(), userID, ids[0], ids[1]))
	})
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		respondEmpty(w, r, h.svc.Teams.Leave(r.Context(), userID, ids[0]))
	})
}
