// Package sweeper closes change requests that stayed PENDING for longer
// than the configured TTL.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Expirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

type Sweeper struct {
	cron    *cron.Cron
	expirer Expirer
	ttl     time.Duration
	timeout time.Duration
}

// New schedules e on spec, a standard cron expression or descriptor such as
// "@every 5m". A non-positive ttl disables expiry and New returns nil.
func New(e Expirer, spec string, ttl time.Duration) (*Sweeper, error) {
	if ttl <= 0 {
		return nil, nil
	}
	s := &Sweeper{
		cron:    cron.New(),
		expirer: e,
		ttl:     ttl,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Sweeper) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.expirer.ExpireStale(ctx, s.ttl)
	if err != nil {
		logger.Log.Error("change request sweep failed", zap.Int("expired", n), zap.Error(err))
		return
	}
	logger.Log.Debug("change request sweep done", zap.Int("expired", n))
}

func (s *Sweeper) Start() {
	if s == nil {
		return
	}
	logger.Log.Info("change request sweeper started", zap.Duration("ttl", s.ttl))
	s.cron.Start()
}

// Stop prevents further runs and waits for a running sweep to finish or ctx
// to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
