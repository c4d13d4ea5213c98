package handlers

import (
	"net/http"

	"github.com/GiorgiUbiria/team_ledger/internal/httputil"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type ProfileRequest struct {
	Name string `json:"name"`
}

type PasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	user, err := h.svc.Users.Register(r.Context(), req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	token, user, err := h.svc.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	user, err := h.svc.Users.Get(r.Context(), userID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req ProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	user, err := h.svc.Users.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req PasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.svc.Users.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
