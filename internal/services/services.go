package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/notify"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	maxDescriptionLen = 255
	maxCategoryLen    = 50
	maxTeamNameLen    = 100
)

var (
	DefaultCategories = []string{"Food", "Housing", "Transport", "Utilities", "Entertainment", "Health", "Salary", "Other"}

	maxAmount = decimal.New(1, 12)
)

type Options struct {
	JWTSecret    string
	JWTTTL       time.Duration
	DefaultLimit int
	MaxLimit     int
	Now          func() time.Time
}

type Services struct {
	Users          *UserService
	Teams          *TeamService
	Transactions   *TransactionService
	ChangeRequests *ChangeRequestService
	Reports        *ReportService
}

func New(st store.Store, d *notify.Dispatcher, opts Options) *Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.JWTTTL <= 0 {
		opts.JWTTTL = 24 * time.Hour
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = min(20, opts.MaxLimit)
	}
	return &Services{
		Users:          &UserService{store: st, secret: []byte(opts.JWTSecret), ttl: opts.JWTTTL, now: opts.Now},
		Teams:          &TeamService{store: st, notify: d, now: opts.Now},
		Transactions:   &TransactionService{store: st, notify: d, now: opts.Now, defaultLimit: opts.DefaultLimit, maxLimit: opts.MaxLimit},
		ChangeRequests: &ChangeRequestService{store: st, notify: d, now: opts.Now},
		Reports:        &ReportService{store: st, now: opts.Now},
	}
}

// TransactionPatch is a partial update of a transaction's mutable fields.
type TransactionPatch struct {
	Amount      *decimal.Decimal        `json:"amount,omitempty"`
	Type        *models.TransactionType `json:"type,omitempty"`
	Category    *string                 `json:"category,omitempty"`
	Description *string                 `json:"description,omitempty"`
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Type == nil && p.Category == nil && p.Description == nil
}

// Apply returns f with every field set in p replaced.
func (p TransactionPatch) Apply(f models.TransactionFields) models.TransactionFields {
	if p.Amount != nil {
		f.Amount = *p.Amount
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Category != nil {
		f.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		f.Description = strings.TrimSpace(*p.Description)
	}
	return f
}

func validateFields(team models.Team, f models.TransactionFields) error {
	if f.Amount.IsNegative() {
		return apperr.Validation("amount must not be negative")
	}
	if f.Amount.GreaterThanOrEqual(maxAmount) {
		return apperr.Validation("amount is too large")
	}
	if !f.Amount.Equal(f.Amount.Round(2)) {
		return apperr.Validation("amount must have at most two decimal places")
	}
	if !f.Type.Valid() {
		return apperr.Validation("type must be %q or %q", models.TransactionIncome, models.TransactionExpense)
	}
	if !team.HasCategory(f.Category) {
		return apperr.Validation("category %q is not defined for this team", f.Category)
	}
	if utf8.RuneCountInString(f.Description) > maxDescriptionLen {
		return apperr.Validation("description must be at most %d characters", maxDescriptionLen)
	}
	return nil
}

func validateMoney(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return apperr.Validation("%s must not be negative", field)
	}
	if v.GreaterThanOrEqual(maxAmount) {
		return apperr.Validation("%s is too large", field)
	}
	return nil
}

func normalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", apperr.Validation("currency %q is not a recognized ISO 4217 code", code)
	}
	return unit.String(), nil
}

func normalizeCategories(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, apperr.Validation("at least one category is required")
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, apperr.Validation("category names must not be empty")
		}
		if utf8.RuneCountInString(c) > maxCategoryLen {
			return nil, apperr.Validation("category %q is longer than %d characters", c, maxCategoryLen)
		}
		key := strings.ToLower(c)
		if seen[key] {
			return nil, apperr.Validation("duplicate category %q", c)
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, nil
}

func normalizeTeamName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("team name is required")
	}
	if utf8.RuneCountInString(name) > maxTeamNameLen {
		return "", apperr.Validation("team name must be at most %d characters", maxTeamNameLen)
	}
	return name, nil
}
