package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/authz"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/notify"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
)

// Reasons recorded on a pending request closed by a direct mutation.
const (
	ReasonSupersededByEdit = "superseded by direct edit"
	ReasonTransactionGone  = "transaction deleted"
)

type TransactionService struct {
	store        store.Store
	notify       *notify.Dispatcher
	now          func() time.Time
	defaultLimit int
	maxLimit     int
}

type Page struct {
	Items []models.Transaction `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

func (s *TransactionService) Add(ctx context.Context, userID, teamID uint64, f models.TransactionFields) (models.Transaction, error) {
	var txn models.Transaction
	err := s.store.Tx(ctx, func(tx store.Store) error {
		if _, err := tx.LockTeam(ctx, teamID); err != nil {
			return err
		}
		sub, err := authz.Check(ctx, tx, teamID, userID, authz.AddTransaction)
		if err != nil {
			return err
		}
		f.Category = strings.TrimSpace(f.Category)
		f.Description = strings.TrimSpace(f.Description)
		if err := validateFields(sub.Team, f); err != nil {
			return err
		}
		txn = models.Transaction{TeamID: teamID, CreatedBy: userID}
		txn.Apply(f)
		return tx.CreateTransaction(ctx, &txn)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return txn, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, txnID uint64) (models.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, txnID)
	if err != nil {
		return models.Transaction{}, err
	}
	if _, err := authz.Check(ctx, s.store, txn.TeamID, userID, authz.ViewTeam); err != nil {
		return models.Transaction{}, err
	}
	return txn, nil
}

// List returns one page of the team's transactions, newest first. Pages are
// numbered from 1 and limit is clamped to the configured maximum.
func (s *TransactionService) List(ctx context.Context, userID, teamID uint64, page, limit int) (Page, error) {
	if _, err := authz.Check(ctx, s.store, teamID, userID, authz.ViewTeam); err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	if page-1 > math.MaxInt/limit {
		return Page{}, apperr.Validation("page %d is out of range", page)
	}
	items, total, err := s.store.ListTransactions(ctx, teamID, limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Edit applies patch immediately. Only the transaction's creator or the team
// owner may do this; everybody else goes through a change request. A pending
// request on the transaction is rejected.
func (s *TransactionService) Edit(ctx context.Context, userID, txnID uint64, patch TransactionPatch) (models.Transaction, error) {
	var (
		updated  models.Transaction
		rejected *models.ChangeRequest
	)
	err := s.store.Tx(ctx, func(tx store.Store) error {
		txn, err := tx.LockTransaction(ctx, txnID)
		if err != nil {
			return err
		}
		sub, err := authz.CheckDirectMutation(ctx, tx, txn, userID)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return apperr.Validation("nothing to change")
		}
		f := patch.Apply(txn.Fields())
		if err := validateFields(sub.Team, f); err != nil {
			return err
		}
		if rejected, err = s.rejectPending(ctx, tx, txnID, userID, ReasonSupersededByEdit); err != nil {
			return err
		}
		updated, err = tx.UpdateTransaction(ctx, txnID, f)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.afterDirectMutation(userID, updated, rejected, "edited")
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, txnID uint64) error {
	var (
		txn      models.Transaction
		rejected *models.ChangeRequest
	)
	err := s.store.Tx(ctx, func(tx store.Store) error {
		var err error
		if txn, err = tx.LockTransaction(ctx, txnID); err != nil {
			return err
		}
		if _, err := authz.CheckDirectMutation(ctx, tx, txn, userID); err != nil {
			return err
		}
		if rejected, err = s.rejectPending(ctx, tx, txnID, userID, ReasonTransactionGone); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, txnID)
	})
	if err != nil {
		return err
	}
	s.afterDirectMutation(userID, txn, rejected, "deleted")
	return nil
}

func (s *TransactionService) rejectPending(ctx context.Context, tx store.Store, txnID, userID uint64, reason string) (*models.ChangeRequest, error) {
	pending, err := tx.FindPendingByTransaction(ctx, txnID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cr, err := tx.ResolveChangeRequest(ctx, pending.ID, store.Resolution{
		Status:     models.StatusRejected,
		ResolvedBy: &userID,
		Reason:     reason,
		At:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

func (s *TransactionService) afterDirectMutation(userID uint64, txn models.Transaction, rejected *models.ChangeRequest, verb string) {
	var events []notify.Event
	if rejected != nil {
		events = append(events, resolvedEvent(*rejected))
	}
	if txn.CreatedBy != userID {
		ev := notify.NewEvent(notify.DirectMutation, txn.CreatedBy, txn.TeamID,
			fmt.Sprintf("transaction %d was %s by user %d", txn.ID, verb, userID))
		ev.TransactionID = txn.ID
		events = append(events, ev)
	}
	s.notify.Send(events...)
}
