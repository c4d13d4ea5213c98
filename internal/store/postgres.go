package store

import (
	"context"
	"errors"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func NewDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: false,
	}), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	logger.Log.Info("connected to the database")
	return db
}

func DBMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.Membership{},
		&models.Invitation{},
		&models.Transaction{},
		&models.ChangeRequest{},
	)
	if err != nil {
		return err
	}
	logger.Log.Info("migrations loaded")
	return nil
}

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translate maps driver errors onto apperr kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, err, "%s already exists", what)
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.KindNotFound, err, "%s references a missing row", what)
		}
	}
	return apperr.Wrap(apperr.KindInternal, err, "%s", what)
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error, "user")
}

func (s *GormStore) GetUser(ctx context.Context, id uint64) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	return u, translate(err, "user")
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	return u, translate(err, "user")
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	res := s.db.WithContext(ctx).Model(u).Select("name", "email", "password").Updates(u)
	if res.Error != nil {
		return translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d not found", u.ID)
	}
	return nil
}

func (s *GormStore) CreateTeam(ctx context.Context, t *models.Team) error {
	return translate(s.db.WithContext(ctx).Create(t).Error, "team")
}

func (s *GormStore) GetTeam(ctx context.Context, id uint64) (models.Team, error) {
	var t models.Team
	err := s.db.WithContext(ctx).First(&t, id).Error
	return t, translate(err, "team")
}

func (s *GormStore) LockTeam(ctx context.Context, id uint64) (models.Team, error) {
	var t models.Team
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		First(&t, id).Error
	return t, translate(err, "team")
}

func (s *GormStore) UpdateTeam(ctx context.Context, t *models.Team) error {
	t.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.Team{ID: t.ID}).
		Select("name", "slug", "owner_id", "currency", "budget", "income_goal",
			"categories", "members_can_view_reports", "updated_at").
		Updates(t)
	if res.Error != nil {
		return translate(res.Error, "team")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("team %d not found", t.ID)
	}
	return nil
}

func (s *GormStore) DeleteTeam(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&team, id).Error; err != nil {
			return translate(err, "team")
		}
		for _, m := range []any{
			&models.ChangeRequest{},
			&models.Transaction{},
			&models.Invitation{},
			&models.Membership{},
		} {
			if err := tx.Where("team_id = ?", id).Delete(m).Error; err != nil {
				return translate(err, "team")
			}
		}
		res := tx.Delete(&models.Team{}, id)
		if res.Error != nil {
			return translate(res.Error, "team")
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("team %d not found", id)
		}
		return nil
	})
}

func (s *GormStore) ListTeamsForUser(ctx context.Context, userID uint64) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.team_id = teams.id").
		Where("memberships.user_id = ?", userID).
		Order("teams.id").
		Find(&teams).Error
	return teams, translate(err, "teams")
}

func (s *GormStore) AddMembership(ctx context.Context, m *models.Membership) error {
	return translate(s.db.WithContext(ctx).Create(m).Error, "membership")
}

func (s *GormStore) GetMembership(ctx context.Context, teamID, userID uint64) (models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&m).Error
	return m, translate(err, "membership")
}

func (s *GormStore) ListMemberships(ctx context.Context, teamID uint64) ([]models.Membership, error) {
	var ms []models.Membership
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("joined_at, user_id").
		Find(&ms).Error
	return ms, translate(err, "memberships")
}

func (s *GormStore) UpdateMembershipRole(ctx context.Context, teamID, userID uint64, role models.Role) error {
	res := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role)
	if res.Error != nil {
		return translate(res.Error, "membership")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d is not a member of team %d", userID, teamID)
	}
	return nil
}

func (s *GormStore) RemoveMembership(ctx context.Context, teamID, userID uint64) error {
	res := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.Membership{})
	if res.Error != nil {
		return translate(res.Error, "membership")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d is not a member of team %d", userID, teamID)
	}
	return nil
}

func (s *GormStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	return translate(s.db.WithContext(ctx).Create(inv).Error, "invitation")
}

func (s *GormStore) GetInvitationByToken(ctx context.Context, token string) (models.Invitation, error) {
	var inv models.Invitation
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	return inv, translate(err, "invitation")
}

func (s *GormStore) SetInvitationStatus(ctx context.Context, id uint64, from, to models.InvitationStatus) error {
	res := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return translate(res.Error, "invitation")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("invitation %d is not %s", id, from)
	}
	return nil
}

func (s *GormStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return translate(s.db.WithContext(ctx).Create(t).Error, "transaction")
}

func (s *GormStore) GetTransaction(ctx context.Context, id uint64) (models.Transaction, error) {
	var t models.Transaction
	err := s.db.WithContext(ctx).First(&t, id).Error
	return t, translate(err, "transaction")
}

func (s *GormStore) LockTransaction(ctx context.Context, id uint64) (models.Transaction, error) {
	var t models.Transaction
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, id).Error
	return t, translate(err, "transaction")
}

func (s *GormStore) UpdateTransaction(ctx context.Context, id uint64, f models.TransactionFields) (models.Transaction, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"amount":      f.Amount,
			"type":        f.Type,
			"category":    f.Category,
			"description": f.Description,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return models.Transaction{}, translate(res.Error, "transaction")
	}
	if res.RowsAffected == 0 {
		return models.Transaction{}, apperr.NotFound("transaction %d not found", id)
	}
	return s.GetTransaction(ctx, id)
}

func (s *GormStore) DeleteTransaction(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.Transaction{}, id)
	if res.Error != nil {
		return translate(res.Error, "transaction")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("transaction %d not found", id)
	}
	return nil
}

func (s *GormStore) ListTransactions(ctx context.Context, teamID uint64, limit, offset int) ([]models.Transaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("team_id = ?", teamID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "transactions")
	}

	var items []models.Transaction
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, translate(err, "transactions")
	}
	return items, total, nil
}

func (s *GormStore) SumTransactions(ctx context.Context, teamID uint64) ([]CategoryTotal, error) {
	var totals []CategoryTotal
	err := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("type, category, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("team_id = ?", teamID).
		Group("type, category").
		Order("type, category").
		Scan(&totals).Error
	return totals, translate(err, "transaction totals")
}

func (s *GormStore) CreateChangeRequest(ctx context.Context, cr *models.ChangeRequest) error {
	err := s.db.WithContext(ctx).Create(cr).Error
	if apperr.KindOf(translate(err, "")) == apperr.KindConflict {
		return apperr.Conflict("transaction %d already has a pending change request", cr.TransactionID)
	}
	return translate(err, "change request")
}

func (s *GormStore) GetChangeRequest(ctx context.Context, id uint64) (models.ChangeRequest, error) {
	var cr models.ChangeRequest
	err := s.db.WithContext(ctx).First(&cr, id).Error
	return cr, translate(err, "change request")
}

func (s *GormStore) FindPendingByTransaction(ctx context.Context, transactionID uint64) (models.ChangeRequest, error) {
	var cr models.ChangeRequest
	err := s.db.WithContext(ctx).
		Where("transaction_id = ? AND status = ?", transactionID, models.StatusPending).
		First(&cr).Error
	return cr, translate(err, "pending change request")
}

func (s *GormStore) ResolveChangeRequest(ctx context.Context, id uint64, r Resolution) (models.ChangeRequest, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ChangeRequest{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]any{
			"status":      r.Status,
			"resolved_by": r.ResolvedBy,
			"resolved_at": r.At,
			"reason":      r.Reason,
		})
	if res.Error != nil {
		return models.ChangeRequest{}, translate(res.Error, "change request")
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetChangeRequest(ctx, id); err != nil {
			return models.ChangeRequest{}, err
		}
		return models.ChangeRequest{}, apperr.Conflict("change request %d is already resolved", id)
	}
	return s.GetChangeRequest(ctx, id)
}

func (s *GormStore) ListChangeRequests(ctx context.Context, f ChangeRequestFilter) ([]models.ChangeRequest, error) {
	q := s.db.WithContext(ctx).Model(&models.ChangeRequest{})
	if f.TeamID != 0 {
		q = q.Where("team_id = ?", f.TeamID)
	}
	if f.TransactionID != 0 {
		q = q.Where("transaction_id = ?", f.TransactionID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.CreatedBefore.IsZero() {
		q = q.Where("created_at < ?", f.CreatedBefore)
	}

	var out []models.ChangeRequest
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, translate(err, "change requests")
}
