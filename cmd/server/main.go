package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GiorgiUbiria/team_ledger/configs"
	"github.com/GiorgiUbiria/team_ledger/internal/handlers"
	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"github.com/GiorgiUbiria/team_ledger/internal/notify"
	"github.com/GiorgiUbiria/team_ledger/internal/routes"
	"github.com/GiorgiUbiria/team_ledger/internal/seed"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
	"github.com/GiorgiUbiria/team_ledger/internal/sweeper"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := logger.Init("info"); err != nil {
		panic(err)
	}
	configs.LoadConfig()
	cfg := configs.AppConfig
	if err := logger.Init(cfg.Log.Level); err != nil {
		logger.Log.Fatal("invalid log level", zap.Error(err))
	}
	defer logger.Log.Sync()

	db := store.NewDB(cfg.DB.DSN)
	if err := store.DBMigrate(db); err != nil {
		logger.Log.Fatal("migration failed", zap.Error(err))
	}
	st := store.NewGormStore(db)

	if cfg.Seed.Enabled {
		if err := seed.Run(context.Background(), st); err != nil {
			logger.Log.Fatal("seed failed", zap.Error(err))
		}
	}

	var (
		notifier notify.Notifier
		inbox    notify.Inbox
		rdb      *redis.Client
	)
	if cfg.Redis.Addr != "" {
		var err error
		rdb, err = notify.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Log.Fatal("failed to connect to redis", zap.Error(err))
		}
		rn := notify.NewRedisNotifier(rdb, cfg.Redis.Channel, cfg.Redis.InboxSize)
		notifier, inbox = rn, rn
	} else {
		logger.Log.Info("redis not configured, keeping notifications in memory")
		mem := notify.NewMemoryInbox(int(cfg.Redis.InboxSize))
		notifier, inbox = mem, mem
	}
	dispatcher := notify.NewDispatcher(notifier)

	svc := services.New(st, dispatcher, services.Options{
		JWTSecret:    cfg.JWT.SECRET,
		JWTTTL:       cfg.JWT.TTL,
		DefaultLimit: cfg.Pagination.DefaultLimit,
		MaxLimit:     cfg.Pagination.MaxLimit,
	})

	sweep, err := sweeper.New(svc.ChangeRequests, cfg.Workflow.SweepSchedule, cfg.Workflow.PendingTTL)
	if err != nil {
		logger.Log.Fatal("invalid sweep schedule", zap.Error(err))
	}
	sweep.Start()

	router := routes.NewRoutes(handlers.New(svc, inbox), cfg.JWT.SECRET)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}
	sweep.Stop(ctx)
	dispatcher.Wait()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Log.Error("redis close failed", zap.Error(err))
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.Error("db close skipped, reason:", zap.Error(err))
	} else {
		sqlDB.Close()
		logger.Log.Info("db closed")
	}

	logger.Log.Info("server stopped")
}
