package services

import (
	"context"
	"fmt"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/authz"
	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/notify"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
	"go.uber.org/zap"
)

const (
	ReasonWithdrawn = "withdrawn"
	ReasonExpired   = "expired"
)

// ChangeRequestService runs the approval workflow for edits and deletes
// proposed by members who may not mutate a transaction directly.
//
// A transaction has at most one PENDING request. A request moves to
// CONFIRMED or REJECTED exactly once.
type ChangeRequestService struct {
	store  store.Store
	notify *notify.Dispatcher
	now    func() time.Time
}

// RequestEdit proposes patch for the transaction. The patch is merged onto
// the transaction's current fields so the request carries a full
// replacement payload.
func (s *ChangeRequestService) RequestEdit(ctx context.Context, requesterID, txnID uint64, patch TransactionPatch) (models.ChangeRequest, error) {
	return s.request(ctx, requesterID, txnID, models.ChangeEdit, func(team models.Team, txn models.Transaction, cr *models.ChangeRequest) error {
		if patch.IsEmpty() {
			return apperr.Validation("nothing to change")
		}
		f := patch.Apply(txn.Fields())
		if err := validateFields(team, f); err != nil {
			return err
		}
		cr.SetPayload(f)
		return nil
	})
}

func (s *ChangeRequestService) RequestDelete(ctx context.Context, requesterID, txnID uint64) (models.ChangeRequest, error) {
	return s.request(ctx, requesterID, txnID, models.ChangeDelete, nil)
}

func (s *ChangeRequestService) request(
	ctx context.Context,
	requesterID, txnID uint64,
	kind models.ChangeKind,
	payload func(models.Team, models.Transaction, *models.ChangeRequest) error,
) (models.ChangeRequest, error) {
	var (
		cr        models.ChangeRequest
		approvers []uint64
	)
	err := s.store.Tx(ctx, func(tx store.Store) error {
		txn, err := tx.LockTransaction(ctx, txnID)
		if err != nil {
			return err
		}
		sub, err := authz.Check(ctx, tx, txn.TeamID, requesterID, authz.RequestChange)
		if err != nil {
			return err
		}
		cr = models.ChangeRequest{
			TransactionID: txn.ID,
			TeamID:        txn.TeamID,
			RequesterID:   requesterID,
			Kind:          kind,
			Status:        models.StatusPending,
		}
		if payload != nil {
			if err := payload(sub.Team, txn, &cr); err != nil {
				return err
			}
		}
		if _, err := tx.FindPendingByTransaction(ctx, txnID); err == nil {
			return apperr.Conflict("transaction %d already has a pending change request", txnID)
		} else if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		if err := tx.CreateChangeRequest(ctx, &cr); err != nil {
			return err
		}
		approvers, err = approversOf(ctx, tx, txn.TeamID, requesterID)
		return err
	})
	if err != nil {
		return models.ChangeRequest{}, err
	}

	events := make([]notify.Event, 0, len(approvers))
	for _, uid := range approvers {
		ev := notify.NewEvent(notify.ChangeRequested, uid, cr.TeamID,
			fmt.Sprintf("user %d requested to %s transaction %d", requesterID, verbOf(kind), txnID))
		ev.TransactionID = txnID
		ev.RequestID = cr.ID
		events = append(events, ev)
	}
	s.notify.Send(events...)
	return cr, nil
}

func approversOf(ctx context.Context, tx store.Store, teamID, except uint64) ([]uint64, error) {
	members, err := tx.ListMemberships(ctx, teamID)
	if err != nil {
		return nil, err
	}
	var out []uint64
	for _, m := range members {
		if m.UserID == except {
			continue
		}
		if m.Role == models.RoleOwner || m.Role == models.RoleAdmin {
			out = append(out, m.UserID)
		}
	}
	return out, nil
}

func verbOf(kind models.ChangeKind) string {
	if kind == models.ChangeDelete {
		return "delete"
	}
	return "edit"
}

// Confirm resolves a PENDING request. CONFIRMED applies the change to the
// transaction in the same unit of work; REJECTED leaves it untouched.
func (s *ChangeRequestService) Confirm(ctx context.Context, confirmerID, reqID uint64, decision models.ChangeStatus) (models.ChangeRequest, error) {
	var resolved models.ChangeRequest
	err := s.store.Tx(ctx, func(tx store.Store) error {
		cr, err := tx.GetChangeRequest(ctx, reqID)
		if err != nil {
			return err
		}
		sub, err := authz.Check(ctx, tx, cr.TeamID, confirmerID, authz.ConfirmChange)
		if err != nil {
			return err
		}
		if cr.RequesterID == confirmerID {
			return apperr.Forbidden("a change request cannot be confirmed by its requester")
		}
		if decision != models.StatusConfirmed && decision != models.StatusRejected {
			return apperr.Validation("decision must be %s or %s", models.StatusConfirmed, models.StatusRejected)
		}
		if cr.Status != models.StatusPending {
			return apperr.Conflict("change request %d is already %s", reqID, cr.Status)
		}

		if _, err := tx.LockTransaction(ctx, cr.TransactionID); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return apperr.Conflict("transaction %d no longer exists", cr.TransactionID)
			}
			return err
		}

		resolved, err = tx.ResolveChangeRequest(ctx, reqID, store.Resolution{
			Status:     decision,
			ResolvedBy: &confirmerID,
			At:         s.now(),
		})
		if err != nil {
			return err
		}
		if decision == models.StatusRejected {
			return nil
		}
		if cr.Kind == models.ChangeDelete {
			return tx.DeleteTransaction(ctx, cr.TransactionID)
		}
		payload := cr.Payload()
		if err := validateFields(sub.Team, payload); err != nil {
			return err
		}
		_, err = tx.UpdateTransaction(ctx, cr.TransactionID, payload)
		return err
	})
	if err != nil {
		return models.ChangeRequest{}, err
	}
	s.notify.Send(resolvedEvent(resolved))
	return resolved, nil
}

// Withdraw lets the requester close their own PENDING request.
func (s *ChangeRequestService) Withdraw(ctx context.Context, requesterID, reqID uint64) (models.ChangeRequest, error) {
	var resolved models.ChangeRequest
	err := s.store.Tx(ctx, func(tx store.Store) error {
		cr, err := tx.GetChangeRequest(ctx, reqID)
		if err != nil {
			return err
		}
		if _, err := authz.Check(ctx, tx, cr.TeamID, requesterID, authz.ViewTeam); err != nil {
			return err
		}
		if cr.RequesterID != requesterID {
			return apperr.Forbidden("only the requester can withdraw a change request")
		}
		resolved, err = tx.ResolveChangeRequest(ctx, reqID, store.Resolution{
			Status:     models.StatusRejected,
			ResolvedBy: &requesterID,
			Reason:     ReasonWithdrawn,
			At:         s.now(),
		})
		return err
	})
	if err != nil {
		return models.ChangeRequest{}, err
	}
	return resolved, nil
}

func (s *ChangeRequestService) Get(ctx context.Context, userID, reqID uint64) (models.ChangeRequest, error) {
	cr, err := s.store.GetChangeRequest(ctx, reqID)
	if err != nil {
		return models.ChangeRequest{}, err
	}
	if _, err := authz.Check(ctx, s.store, cr.TeamID, userID, authz.ViewTeam); err != nil {
		return models.ChangeRequest{}, err
	}
	return cr, nil
}

// ListForTeam returns the team's requests, newest first. An empty status
// lists all of them.
func (s *ChangeRequestService) ListForTeam(ctx context.Context, userID, teamID uint64, status models.ChangeStatus) ([]models.ChangeRequest, error) {
	if _, err := authz.Check(ctx, s.store, teamID, userID, authz.ViewTeam); err != nil {
		return nil, err
	}
	switch status {
	case "", models.StatusPending, models.StatusConfirmed, models.StatusRejected:
	default:
		return nil, apperr.Validation("unknown status %q", status)
	}
	return s.store.ListChangeRequests(ctx, store.ChangeRequestFilter{TeamID: teamID, Status: status})
}

func (s *ChangeRequestService) ListForTransaction(ctx context.Context, userID, txnID uint64) ([]models.ChangeRequest, error) {
	txn, err := s.store.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if _, err := authz.Check(ctx, s.store, txn.TeamID, userID, authz.ViewTeam); err != nil {
		return nil, err
	}
	return s.store.ListChangeRequests(ctx, store.ChangeRequestFilter{TeamID: txn.TeamID, TransactionID: txnID})
}

// ExpireStale rejects PENDING requests older than ttl and reports how many
// it closed. Requests resolved concurrently are skipped.
func (s *ChangeRequestService) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	stale, err := s.store.ListChangeRequests(ctx, store.ChangeRequestFilter{
		Status:        models.StatusPending,
		CreatedBefore: s.now().Add(-ttl),
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, cr := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		resolved, err := s.store.ResolveChangeRequest(ctx, cr.ID, store.Resolution{
			Status: models.StatusRejected,
			Reason: ReasonExpired,
			At:     s.now(),
		})
		if apperr.KindOf(err) == apperr.KindConflict {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
		s.notify.Send(resolvedEvent(resolved))
	}
	if expired > 0 {
		logger.Log.Info("expired stale change requests", zap.Int("count", expired))
	}
	return expired, nil
}

func resolvedEvent(cr models.ChangeRequest) notify.Event {
	msg := fmt.Sprintf("your request to %s transaction %d was %s", verbOf(cr.Kind), cr.TransactionID, cr.Status)
	if cr.Reason != "" {
		msg += " (" + cr.Reason + ")"
	}
	ev := notify.NewEvent(notify.ChangeResolved, cr.RequesterID, cr.TeamID, msg)
	ev.TransactionID = cr.TransactionID
	ev.RequestID = cr.ID
	return ev
}
