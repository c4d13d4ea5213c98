package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type memberKey struct {
	team, user uint64
}

type memData struct {
	nextID      uint64
	users       map[uint64]models.User
	teams       map[uint64]models.Team
	memberships map[memberKey]models.Membership
	invitations map[uint64]models.Invitation
	txns        map[uint64]models.Transaction
	requests    map[uint64]models.ChangeRequest
}

func newMemData() *memData {
	return &memData{
		users:       make(map[uint64]models.User),
		teams:       make(map[uint64]models.Team),
		memberships: make(map[memberKey]models.Membership),
		invitations: make(map[uint64]models.Invitation),
		txns:        make(map[uint64]models.Transaction),
		requests:    make(map[uint64]models.ChangeRequest),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	c.nextID = d.nextID
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.teams {
		v.Categories = append(pq.StringArray(nil), v.Categories...)
		c.teams[k] = v
	}
	for k, v := range d.memberships {
		c.memberships[k] = v
	}
	for k, v := range d.invitations {
		c.invitations[k] = v
	}
	for k, v := range d.txns {
		c.txns[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	return c
}

func (d *memData) id() uint64 {
	d.nextID++
	return d.nextID
}

// MemoryStore is an in-process Store. Every call, and every Tx as a whole,
// runs under one mutex, which gives serializable behaviour.
type MemoryStore struct {
	mu    *sync.Mutex
	data  *memData
	inTx  bool
	clock *clock
}

type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:    &sync.Mutex{},
		data:  newMemData(),
		clock: &clock{now: time.Now},
	}
}

// SetClock replaces the time source used for created_at stamps.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.clock.mu.Lock()
	defer s.clock.mu.Unlock()
	s.clock.now = now
	s.clock.last = time.Time{}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// stamp returns strictly increasing timestamps so that created_at ordering
// is total within the store.
func (s *MemoryStore) stamp() time.Time {
	c := s.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

func (s *MemoryStore) Tx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	view := &MemoryStore{mu: s.mu, data: s.data, inTx: true, clock: s.clock}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(view); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	defer s.lock()()
	for _, existing := range s.data.users {
		if existing.Email == u.Email {
			return apperr.Conflict("user with email %s already exists", u.Email)
		}
	}
	u.ID = uint(s.data.id())
	u.CreatedAt = s.stamp()
	u.UpdatedAt = u.CreatedAt
	s.data.users[uint64(u.ID)] = *u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint64) (models.User, error) {
	defer s.lock()()
	u, ok := s.data.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("user not found")
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	defer s.lock()()
	existing, ok := s.data.users[uint64(u.ID)]
	if !ok {
		return apperr.NotFound("user %d not found", u.ID)
	}
	for id, other := range s.data.users {
		if id != uint64(u.ID) && other.Email == u.Email {
			return apperr.Conflict("user with email %s already exists", u.Email)
		}
	}
	existing.Name = u.Name
	existing.Email = u.Email
	existing.Password = u.Password
	existing.UpdatedAt = s.stamp()
	s.data.users[uint64(u.ID)] = existing
	return nil
}

func (s *MemoryStore) CreateTeam(_ context.Context, t *models.Team) error {
	defer s.lock()()
	t.ID = s.data.id()
	t.CreatedAt = s.stamp()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	stored.Categories = append(pq.StringArray(nil), t.Categories...)
	s.data.teams[t.ID] = stored
	return nil
}

func (s *MemoryStore) GetTeam(_ context.Context, id uint64) (models.Team, error) {
	defer s.lock()()
	t, ok := s.data.teams[id]
	if !ok {
		return models.Team{}, apperr.NotFound("team not found")
	}
	t.Categories = append(pq.StringArray(nil), t.Categories...)
	return t, nil
}

// LockTeam is GetTeam for the same reason as LockTransaction.
func (s *MemoryStore) LockTeam(ctx context.Context, id uint64) (models.Team, error) {
	return s.GetTeam(ctx, id)
}

func (s *MemoryStore) UpdateTeam(_ context.Context, t *models.Team) error {
	defer s.lock()()
	existing, ok := s.data.teams[t.ID]
	if !ok {
		return apperr.NotFound("team %d not found", t.ID)
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.stamp()
	stored := *t
	stored.Categories = append(pq.StringArray(nil), t.Categories...)
	s.data.teams[t.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteTeam(_ context.Context, id uint64) error {
	defer s.lock()()
	if _, ok := s.data.teams[id]; !ok {
		return apperr.NotFound("team %d not found", id)
	}
	for k, cr := range s.data.requests {
		if cr.TeamID == id {
			delete(s.data.requests, k)
		}
	}
	for k, t := range s.data.txns {
		if t.TeamID == id {
			delete(s.data.txns, k)
		}
	}
	for k, inv := range s.data.invitations {
		if inv.TeamID == id {
			delete(s.data.invitations, k)
		}
	}
	for k := range s.data.memberships {
		if k.team == id {
			delete(s.data.memberships, k)
		}
	}
	delete(s.data.teams, id)
	return nil
}

func (s *MemoryStore) ListTeamsForUser(_ context.Context, userID uint64) ([]models.Team, error) {
	defer s.lock()()
	var out []models.Team
	for k := range s.data.memberships {
		if k.user == userID {
			if t, ok := s.data.teams[k.team]; ok {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AddMembership(_ context.Context, m *models.Membership) error {
	defer s.lock()()
	key := memberKey{m.TeamID, m.UserID}
	if _, ok := s.data.memberships[key]; ok {
		return apperr.Conflict("user %d is already a member of team %d", m.UserID, m.TeamID)
	}
	if m.Role == models.RoleOwner && s.hasOwner(m.TeamID) {
		return apperr.Conflict("team %d already has an owner", m.TeamID)
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = s.stamp()
	}
	s.data.memberships[key] = *m
	return nil
}

func (s *MemoryStore) hasOwner(teamID uint64) bool {
	for k, m := range s.data.memberships {
		if k.team == teamID && m.Role == models.RoleOwner {
			return true
		}
	}
	return false
}

func (s *MemoryStore) GetMembership(_ context.Context, teamID, userID uint64) (models.Membership, error) {
	defer s.lock()()
	m, ok := s.data.memberships[memberKey{teamID, userID}]
	if !ok {
		return models.Membership{}, apperr.NotFound("membership not found")
	}
	return m, nil
}

func (s *MemoryStore) ListMemberships(_ context.Context, teamID uint64) ([]models.Membership, error) {
	defer s.lock()()
	var out []models.Membership
	for k, m := range s.data.memberships {
		if k.team == teamID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateMembershipRole(_ context.Context, teamID, userID uint64, role models.Role) error {
	defer s.lock()()
	key := memberKey{teamID, userID}
	m, ok := s.data.memberships[key]
	if !ok {
		return apperr.NotFound("user %d is not a member of team %d", userID, teamID)
	}
	if role == models.RoleOwner && m.Role != models.RoleOwner && s.hasOwner(teamID) {
		return apperr.Conflict("team %d already has an owner", teamID)
	}
	m.Role = role
	s.data.memberships[key] = m
	return nil
}

func (s *MemoryStore) RemoveMembership(_ context.Context, teamID, userID uint64) error {
	defer s.lock()()
	key := memberKey{teamID, userID}
	if _, ok := s.data.memberships[key]; !ok {
		return apperr.NotFound("user %d is not a member of team %d", userID, teamID)
	}
	delete(s.data.memberships, key)
	return nil
}

func (s *MemoryStore) CreateInvitation(_ context.Context, inv *models.Invitation) error {
	defer s.lock()()
	for _, existing := range s.data.invitations {
		if existing.Token == inv.Token {
			return apperr.Conflict("invitation already exists")
		}
	}
	inv.ID = s.data.id()
	inv.CreatedAt = s.stamp()
	s.data.invitations[inv.ID] = *inv
	return nil
}

func (s *MemoryStore) GetInvitationByToken(_ context.Context, token string) (models.Invitation, error) {
	defer s.lock()()
	for _, inv := range s.data.invitations {
		if inv.Token == token {
			return inv, nil
		}
	}
	return models.Invitation{}, apperr.NotFound("invitation not found")
}

func (s *MemoryStore) SetInvitationStatus(_ context.Context, id uint64, from, to models.InvitationStatus) error {
	defer s.lock()()
	inv, ok := s.data.invitations[id]
	if !ok || inv.Status != from {
		return apperr.Conflict("invitation %d is not %s", id, from)
	}
	inv.Status = to
	s.data.invitations[id] = inv
	return nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, t *models.Transaction) error {
	defer s.lock()()
	if _, ok := s.data.teams[t.TeamID]; !ok {
		return apperr.NotFound("team %d not found", t.TeamID)
	}
	t.ID = s.data.id()
	t.CreatedAt = s.stamp()
	t.UpdatedAt = t.CreatedAt
	s.data.txns[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id uint64) (models.Transaction, error) {
	defer s.lock()()
	t, ok := s.data.txns[id]
	if !ok {
		return models.Transaction{}, apperr.NotFound("transaction not found")
	}
	return t, nil
}

// LockTransaction is GetTransaction: inside Tx the store mutex already
// serializes access.
func (s *MemoryStore) LockTransaction(ctx context.Context, id uint64) (models.Transaction, error) {
	return s.GetTransaction(ctx, id)
}

func (s *MemoryStore) UpdateTransaction(_ context.Context, id uint64, f models.TransactionFields) (models.Transaction, error) {
	defer s.lock()()
	t, ok := s.data.txns[id]
	if !ok {
		return models.Transaction{}, apperr.NotFound("transaction %d not found", id)
	}
	t.Apply(f)
	t.UpdatedAt = s.stamp()
	s.data.txns[id] = t
	return t, nil
}

func (s *MemoryStore) DeleteTransaction(_ context.Context, id uint64) error {
	defer s.lock()()
	if _, ok := s.data.txns[id]; !ok {
		return apperr.NotFound("transaction %d not found", id)
	}
	delete(s.data.txns, id)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, teamID uint64, limit, offset int) ([]models.Transaction, int64, error) {
	defer s.lock()()
	var all []models.Transaction
	for _, t := range s.data.txns {
		if t.TeamID == teamID {
			all = append(all, t)
		}
	}
	sortTransactions(all)

	total := int64(len(all))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.Transaction{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func sortTransactions(ts []models.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].ID > ts[j].ID
		}
		return ts[i].CreatedAt.After(ts[j].CreatedAt)
	})
}

func (s *MemoryStore) SumTransactions(_ context.Context, teamID uint64) ([]CategoryTotal, error) {
	defer s.lock()()
	byKey := make(map[string]*CategoryTotal)
	for _, t := range s.data.txns {
		if t.TeamID != teamID {
			continue
		}
		key := string(t.Type) + "\x00" + t.Category
		ct, ok := byKey[key]
		if !ok {
			ct = &CategoryTotal{Type: t.Type, Category: t.Category, Total: decimal.Zero}
			byKey[key] = ct
		}
		ct.Total = ct.Total.Add(t.Amount)
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(byKey))
	for _, ct := range byKey {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return strings.Compare(out[i].Category, out[j].Category) < 0
	})
	return out, nil
}

func (s *MemoryStore) CreateChangeRequest(_ context.Context, cr *models.ChangeRequest) error {
	defer s.lock()()
	if cr.Status == models.StatusPending {
		for _, existing := range s.data.requests {
			if existing.TransactionID == cr.TransactionID && existing.Status == models.StatusPending {
				return apperr.Conflict("transaction %d already has a pending change request", cr.TransactionID)
			}
		}
	}
	cr.ID = s.data.id()
	if cr.CreatedAt.IsZero() {
		cr.CreatedAt = s.stamp()
	}
	s.data.requests[cr.ID] = *cr
	return nil
}

func (s *MemoryStore) GetChangeRequest(_ context.Context, id uint64) (models.ChangeRequest, error) {
	defer s.lock()()
	cr, ok := s.data.requests[id]
	if !ok {
		return models.ChangeRequest{}, apperr.NotFound("change request not found")
	}
	return cr, nil
}

func (s *MemoryStore) FindPendingByTransaction(_ context.Context, transactionID uint64) (models.ChangeRequest, error) {
	defer s.lock()()
	for _, cr := range s.data.requests {
		if cr.TransactionID == transactionID && cr.Status == models.StatusPending {
			return cr, nil
		}
	}
	return models.ChangeRequest{}, apperr.NotFound("pending change request not found")
}

func (s *MemoryStore) ResolveChangeRequest(_ context.Context, id uint64, r Resolution) (models.ChangeRequest, error) {
	defer s.lock()()
	cr, ok := s.data.requests[id]
	if !ok {
		return models.ChangeRequest{}, apperr.NotFound("change request not found")
	}
	if cr.Status != models.StatusPending {
		return models.ChangeRequest{}, apperr.Conflict("change request %d is already resolved", id)
	}
	at := r.At
	cr.Status = r.Status
	cr.ResolvedBy = r.ResolvedBy
	cr.ResolvedAt = &at
	cr.Reason = r.Reason
	s.data.requests[id] = cr
	return cr, nil
}

func (s *MemoryStore) ListChangeRequests(_ context.Context, f ChangeRequestFilter) ([]models.ChangeRequest, error) {
	defer s.lock()()
	var out []models.ChangeRequest
	for _, cr := range s.data.requests {
		if f.TeamID != 0 && cr.TeamID != f.TeamID {
			continue
		}
		if f.TransactionID != 0 && cr.TransactionID != f.TransactionID {
			continue
		}
		if f.Status != "" && cr.Status != f.Status {
			continue
		}
		if !f.CreatedBefore.IsZero() && !cr.CreatedAt.Before(f.CreatedBefore) {
			continue
		}
		out = append(out, cr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*GormStore)(nil)
)
