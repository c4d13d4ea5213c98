// Package notify delivers workflow events to users. Delivery is
// fire-and-forget: failures are logged and never reach the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	ChangeRequested Kind = "change_requested"
	ChangeResolved  Kind = "change_resolved"
	DirectMutation  Kind = "direct_mutation"
	MemberJoined    Kind = "member_joined"
)

type Event struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	UserID        uint64    `json:"user_id"`
	TeamID        uint64    `json:"team_id"`
	TransactionID uint64    `json:"transaction_id,omitempty"`
	RequestID     uint64    `json:"request_id,omitempty"`
	Message       string    `json:"message"`
	At            time.Time `json:"at"`
}

func NewEvent(kind Kind, userID, teamID uint64, msg string) Event {
	return Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		UserID:  userID,
		TeamID:  teamID,
		Message: msg,
		At:      time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Inbox lists the most recent events delivered to a user.
type Inbox interface {
	Recent(ctx context.Context, userID uint64, n int64) ([]Event, error)
}

const defaultSendTimeout = 5 * time.Second

// Dispatcher sends events in the background.
type Dispatcher struct {
	n       Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(n Notifier) *Dispatcher {
	return &Dispatcher{n: n, timeout: defaultSendTimeout}
}

// Send returns immediately; each event is delivered on its own goroutine.
func (d *Dispatcher) Send(events ...Event) {
	if d == nil || d.n == nil {
		return
	}
	for _, ev := range events {
		d.wg.Add(1)
		go func(ev Event) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := d.n.Notify(ctx, ev); err != nil {
				logger.Log.Warn("notification dropped",
					zap.String("kind", string(ev.Kind)),
					zap.Uint64("user_id", ev.UserID),
					zap.Error(err))
			}
		}(ev)
	}
}

// Wait blocks until every event handed to Send has been attempted.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
