package store

import (
	"context"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the durable state of the service. Lookups of absent rows fail
// with apperr.KindNotFound; uniqueness violations and failed
// compare-and-swap updates fail with apperr.KindConflict.
type Store interface {
	UserStore
	TeamStore
	MembershipStore
	InvitationStore
	TransactionStore
	ChangeRequestStore

	// Tx runs fn as one atomic unit of work. Changes made through the Store
	// passed to fn are discarded when fn returns an error.
	Tx(ctx context.Context, fn func(s Store) error) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

type TeamStore interface {
	CreateTeam(ctx context.Context, t *models.Team) error
	GetTeam(ctx context.Context, id uint64) (models.Team, error)
	// LockTeam loads the team and holds a shared row lock on it until the
	// surrounding Tx ends, so DeleteTeam waits for rows being added to it.
	LockTeam(ctx context.Context, id uint64) (models.Team, error)
	UpdateTeam(ctx context.Context, t *models.Team) error
	// DeleteTeam removes the team with its memberships, invitations,
	// transactions and change requests.
	DeleteTeam(ctx context.Context, id uint64) error
	ListTeamsForUser(ctx context.Context, userID uint64) ([]models.Team, error)
}

type MembershipStore interface {
	AddMembership(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, teamID, userID uint64) (models.Membership, error)
	ListMemberships(ctx context.Context, teamID uint64) ([]models.Membership, error)
	UpdateMembershipRole(ctx context.Context, teamID, userID uint64, role models.Role) error
	RemoveMembership(ctx context.Context, teamID, userID uint64) error
}

type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (models.Invitation, error)
	// SetInvitationStatus moves the invitation from one status to another and
	// fails with a conflict when its current status is not from.
	SetInvitationStatus(ctx context.Context, id uint64, from, to models.InvitationStatus) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, id uint64) (models.Transaction, error)
	// LockTransaction loads the transaction and holds a row lock on it until
	// the surrounding Tx ends.
	LockTransaction(ctx context.Context, id uint64) (models.Transaction, error)
	UpdateTransaction(ctx context.Context, id uint64, f models.TransactionFields) (models.Transaction, error)
	DeleteTransaction(ctx context.Context, id uint64) error
	// ListTransactions returns one page ordered by created_at DESC, id DESC,
	// plus the team's total transaction count.
	ListTransactions(ctx context.Context, teamID uint64, limit, offset int) ([]models.Transaction, int64, error)
	SumTransactions(ctx context.Context, teamID uint64) ([]CategoryTotal, error)
}

type ChangeRequestStore interface {
	// CreateChangeRequest fails with a conflict when the transaction already
	// has a PENDING request.
	CreateChangeRequest(ctx context.Context, cr *models.ChangeRequest) error
	GetChangeRequest(ctx context.Context, id uint64) (models.ChangeRequest, error)
	FindPendingByTransaction(ctx context.Context, transactionID uint64) (models.ChangeRequest, error)
	// ResolveChangeRequest moves a PENDING request to res.Status. It fails
	// with a conflict when the request is no longer PENDING.
	ResolveChangeRequest(ctx context.Context, id uint64, res Resolution) (models.ChangeRequest, error)
	ListChangeRequests(ctx context.Context, f ChangeRequestFilter) ([]models.ChangeRequest, error)
}

type Resolution struct {
	Status     models.ChangeStatus
	ResolvedBy *uint64
	Reason     string
	At         time.Time
}

type ChangeRequestFilter struct {
	TeamID        uint64
	TransactionID uint64
	Status        models.ChangeStatus
	CreatedBefore time.Time
}

type CategoryTotal struct {
	Type     models.TransactionType
	Category string
	Total    decimal.Decimal
	Count    int64
}
