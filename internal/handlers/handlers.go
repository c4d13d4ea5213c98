package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/httputil"
	"github.com/GiorgiUbiria/team_ledger/internal/middleware"
	"github.com/GiorgiUbiria/team_ledger/internal/notify"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
	"github.com/go-chi/chi/v5"
)

// Handler adapts the services to HTTP. It holds no state of its own.
type Handler struct {
	svc   *services.Services
	inbox notify.Inbox
}

func New(svc *services.Services, inbox notify.Inbox) *Handler {
	return &Handler{svc: svc, inbox: inbox}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrInvalidCredentials) {
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	httputil.WriteAppError(w, r, err)
}

// caller returns the authenticated user id. Routes using it sit behind
// middleware.Authenticated.
func caller(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}

func pathID(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("%s %q is not a valid id", name, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("query parameter %s must be a non-negative integer", name)
	}
	return n, nil
}

// withIDs resolves the caller and each named path parameter before calling fn.
func withIDs(w http.ResponseWriter, r *http.Request, names []string, fn func(userID uint64, ids []uint64)) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	ids := make([]uint64, len(names))
	for i, name := range names {
		id, err := pathID(r, name)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		ids[i] = id
	}
	fn(userID, ids)
}
