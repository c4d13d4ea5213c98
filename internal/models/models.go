package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

type ChangeKind string

const (
	ChangeEdit   ChangeKind = "EDIT"
	ChangeDelete ChangeKind = "DELETE"
)

type ChangeStatus string

const (
	StatusPending   ChangeStatus = "PENDING"
	StatusConfirmed ChangeStatus = "CONFIRMED"
	StatusRejected  ChangeStatus = "REJECTED"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
)

type User struct {
	gorm.Model
	Name     string `gorm:"size:50;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255" json:"-"`
}

type Team struct {
	ID                    uint64          `gorm:"primaryKey" json:"id"`
	Name                  string          `gorm:"size:100;not null" json:"name"`
	Slug                  string          `gorm:"size:120;index" json:"slug"`
	OwnerID               uint64          `gorm:"index;not null" json:"owner_id"`
	Currency              string          `gorm:"size:3;not null" json:"currency"`
	Budget                decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"budget"`
	IncomeGoal            decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"income_goal"`
	Categories            pq.StringArray  `gorm:"type:text[]" json:"categories"`
	MembersCanViewReports bool            `gorm:"not null;default:false" json:"members_can_view_reports"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// HasCategory reports whether name is one of the team's categories.
func (t Team) HasCategory(name string) bool {
	for _, c := range t.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Membership rows are keyed by (team, user). The partial unique index keeps
// a single OWNER row per team.
type Membership struct {
	TeamID   uint64    `gorm:"primaryKey;uniqueIndex:idx_single_owner,where:role = 'OWNER'" json:"team_id"`
	UserID   uint64    `gorm:"primaryKey;index" json:"user_id"`
	Role     Role      `gorm:"size:10;not null" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

type Invitation struct {
	ID        uint64           `gorm:"primaryKey" json:"id"`
	TeamID    uint64           `gorm:"index;not null" json:"team_id"`
	Email     string           `gorm:"size:255;not null" json:"email"`
	InvitedBy uint64           `gorm:"not null" json:"invited_by"`
	Token     string           `gorm:"uniqueIndex;size:36;not null" json:"token"`
	Status    InvitationStatus `gorm:"size:10;not null" json:"status"`
	ExpiresAt time.Time        `json:"expires_at"`
	CreatedAt time.Time        `json:"created_at"`
}

type Transaction struct {
	ID          uint64          `gorm:"primaryKey" json:"id"`
	TeamID      uint64          `gorm:"index:idx_team_created,priority:1;not null" json:"team_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Type        TransactionType `gorm:"size:10;not null" json:"type"`
	Category    string          `gorm:"size:50;not null" json:"category"`
	Description string          `gorm:"size:255" json:"description"`
	CreatedBy   uint64          `gorm:"index;not null" json:"created_by"`
	CreatedAt   time.Time       `gorm:"index:idx_team_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TransactionFields are the mutable fields of a transaction. An EDIT change
// request carries a full set of them as its replacement payload.
type TransactionFields struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

func (t Transaction) Fields() TransactionFields {
	return TransactionFields{
		Amount:      t.Amount,
		Type:        t.Type,
		Category:    t.Category,
		Description: t.Description,
	}
}

func (t *Transaction) Apply(f TransactionFields) {
	t.Amount = f.Amount
	t.Type = f.Type
	t.Category = f.Category
	t.Description = f.Description
}

// ChangeRequest has no foreign key to transactions: a request must outlive
// a concurrent direct delete so that confirming it reports a conflict.
type ChangeRequest struct {
	ID                  uint64              `gorm:"primaryKey" json:"id"`
	TransactionID       uint64              `gorm:"index;uniqueIndex:idx_one_pending_per_txn,where:status = 'PENDING';not null" json:"transaction_id"`
	TeamID              uint64              `gorm:"index;not null" json:"team_id"`
	RequesterID         uint64              `gorm:"index;not null" json:"requester_id"`
	Kind                ChangeKind          `gorm:"size:10;not null" json:"kind"`
	Status              ChangeStatus        `gorm:"size:10;not null;index" json:"status"`
	ProposedAmount      decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"proposed_amount"`
	ProposedType        TransactionType     `gorm:"size:10" json:"proposed_type,omitempty"`
	ProposedCategory    string              `gorm:"size:50" json:"proposed_category,omitempty"`
	ProposedDescription string              `gorm:"size:255" json:"proposed_description,omitempty"`
	ResolvedBy          *uint64             `json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time          `json:"resolved_at,omitempty"`
	Reason              string              `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

// Payload returns the replacement fields of an EDIT request.
func (c ChangeRequest) Payload() TransactionFields {
	return TransactionFields{
		Amount:      c.ProposedAmount.Decimal,
		Type:        c.ProposedType,
		Category:    c.ProposedCategory,
		Description: c.ProposedDescription,
	}
}

func (c *ChangeRequest) SetPayload(f TransactionFields) {
	c.ProposedAmount = decimal.NullDecimal{Decimal: f.Amount, Valid: true}
	c.ProposedType = f.Type
	c.ProposedCategory = f.Category
	c.ProposedDescription = f.Description
}
