package routes

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GiorgiUbiria/team_ledger/internal/handlers"
	"github.com/GiorgiUbiria/team_ledger/internal/notify"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
	"github.com/goccy/go-json"
)

const testSecret = "routes-test-secret"

type api struct {
	t    *testing.T
	srv  *httptest.Server
	disp *notify.Dispatcher
}

func newAPI(t *testing.T) *api {
	t.Helper()
	inbox := notify.NewMemoryInbox(50)
	disp := notify.NewDispatcher(inbox)
	svc := services.New(store.NewMemoryStore(), disp, services.Options{JWTSecret: testSecret})
	srv := httptest.NewServer(NewRoutes(handlers.New(svc, inbox), testSecret))
	t.Cleanup(srv.Close)
	return &api{t: t, srv: srv, disp: disp}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (a *api) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (a *api) expect(want int, method, path, token string, body, out any) {
	a.t.Helper()
	if got := a.do(method, path, token, body, out); got != want {
		a.t.Fatalf("%s %s = %d, want %d", method, path, got, want)
	}
}

func (a *api) signup(name, email string) (string, uint64) {
	a.t.Helper()
	a.expect(http.StatusCreated, http.MethodPost, "/auth/register", "",
		map[string]string{"name": name, "email": email, "password": "hunter22!"}, nil)
	var login struct {
		Token string `json:"token"`
		User  struct {
			ID uint64 `json:"ID"`
		} `json:"user"`
	}
	a.expect(http.StatusOK, http.MethodPost, "/auth/login", "",
		map[string]string{"email": email, "password": "hunter22!"}, &login)
	if login.Token == "" {
		a.t.Fatal("empty token")
	}
	return login.Token, login.User.ID
}

type txnJSON struct {
	ID       uint64 `json:"id"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
}

type requestJSON struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

func TestChangeRequestFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	owner, _ := a.signup("Owner", "owner@example.com")
	member, _ := a.signup("Member", "member@example.com")
	outsider, _ := a.signup("Outsider", "outsider@example.com")

	var team struct {
		ID uint64 `json:"id"`
	}
	a.expect(http.StatusCreated, http.MethodPost, "/teams", owner, map[string]any{"name": "Flatmates", "currency": "EUR"}, &team)
	teamPath := fmt.Sprintf("/teams/%d", team.ID)

	var inv struct {
		Token string `json:"token"`
	}
	a.expect(http.StatusCreated, http.MethodPost, teamPath+"/invitations", owner, map[string]string{"email": "member@example.com"}, &inv)
	a.expect(http.StatusCreated, http.MethodPost, "/invitations/"+inv.Token+"/accept", member, nil, nil)

	var txn txnJSON
	a.expect(http.StatusCreated, http.MethodPost, teamPath+"/transactions", owner,
		map[string]any{"amount": "100", "type": "expense", "category": "Food"}, &txn)
	txnPath := fmt.Sprintf("/transactions/%d", txn.ID)

	a.expect(http.StatusForbidden, http.MethodPatch, txnPath, member, map[string]any{"amount": "-1"}, nil)
	a.expect(http.StatusNotFound, http.MethodGet, txnPath, outsider, nil, nil)

	var cr requestJSON
	a.expect(http.StatusCreated, http.MethodPost, txnPath+"/change-requests", member, map[string]any{"kind": "EDIT", "amount": "150"}, &cr)
	if cr.Status != "PENDING" {
		t.Fatalf("status = %s", cr.Status)
	}
	a.expect(http.StatusConflict, http.MethodPost, txnPath+"/change-requests", member, map[string]any{"kind": "DELETE"}, nil)
	a.expect(http.StatusUnprocessableEntity, http.MethodPost, txnPath+"/change-requests", member, map[string]any{"kind": "MERGE"}, nil)

	crPath := fmt.Sprintf("/change-requests/%d", cr.ID)
	a.expect(http.StatusForbidden, http.MethodPost, crPath+"/confirm", member, map[string]string{"decision": "CONFIRMED"}, nil)
	a.expect(http.StatusOK, http.MethodPost, crPath+"/confirm", owner, map[string]string{"decision": "CONFIRMED"}, &cr)
	if cr.Status != "CONFIRMED" {
		t.Fatalf("status = %s", cr.Status)
	}
	a.expect(http.StatusConflict, http.MethodPost, crPath+"/confirm", owner, map[string]string{"decision": "REJECTED"}, nil)

	a.expect(http.StatusOK, http.MethodGet, txnPath, member, nil, &txn)
	if txn.Amount != "150" || txn.Category != "Food" {
		t.Fatalf("transaction = %+v", txn)
	}

	var page struct {
		Total int64     `json:"total"`
		Items []txnJSON `json:"items"`
	}
	a.expect(http.StatusOK, http.MethodGet, teamPath+"/transactions?page=1&limit=10", member, nil, &page)
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("page = %+v", page)
	}

	a.disp.Wait()
	var events []notify.Event
	a.expect(http.StatusOK, http.MethodGet, "/notifications", member, nil, &events)
	if len(events) == 0 || events[0].Kind != notify.ChangeResolved {
		t.Fatalf("member notifications = %+v", events)
	}
}

func TestAuthAndGatingOverHTTP(t *testing.T) {
	a := newAPI(t)
	owner, _ := a.signup("Owner", "owner@example.com")
	outsider, _ := a.signup("Outsider", "outsider@example.com")

	a.expect(http.StatusUnauthorized, http.MethodGet, "/teams", "", nil, nil)
	a.expect(http.StatusUnauthorized, http.MethodGet, "/teams", "not-a-jwt", nil, nil)
	a.expect(http.StatusUnauthorized, http.MethodPost, "/auth/login", "",
		map[string]string{"email": "owner@example.com", "password": "wrong-password"}, nil)
	a.expect(http.StatusConflict, http.MethodPost, "/auth/register", "",
		map[string]string{"name": "Again", "email": "owner@example.com", "password": "hunter22!"}, nil)
	a.expect(http.StatusUnprocessableEntity, http.MethodPost, "/teams", owner, map[string]any{"name": "X", "colour": "red"}, nil)

	var team struct {
		ID uint64 `json:"id"`
	}
	a.expect(http.StatusCreated, http.MethodPost, "/teams", owner, map[string]any{"name": "Solo"}, &team)
	teamPath := fmt.Sprintf("/teams/%d", team.ID)

	a.expect(http.StatusNotFound, http.MethodDelete, teamPath, outsider, nil, nil)
	a.expect(http.StatusUnprocessableEntity, http.MethodPut, teamPath+"/currency", owner, map[string]string{"currency": "ZZZ"}, nil)
	a.expect(http.StatusOK, http.MethodPut, teamPath+"/budget", owner, map[string]any{"budget": "300.00"}, nil)
	a.expect(http.StatusUnprocessableEntity, http.MethodGet, "/teams/abc", owner, nil, nil)

	resp, err := func() (*http.Response, error) {
		req, _ := http.NewRequest(http.MethodGet, a.srv.URL+teamPath+"/report.pdf", nil)
		req.Header.Set("Authorization", "Bearer "+owner)
		return http.DefaultClient.Do(req)
	}()
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/pdf") {
		t.Fatalf("report.pdf = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	a.expect(http.StatusNoContent, http.MethodDelete, teamPath, owner, nil, nil)
	a.expect(http.StatusNotFound, http.MethodGet, teamPath, owner, nil, nil)
}
