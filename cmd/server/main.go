package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SubSh2004/CampusZon-sub000/config"
	_ "github.com/SubSh2004/CampusZon-sub000/docs"
	"github.com/SubSh2004/CampusZon-sub000/internal/api"
	"github.com/SubSh2004/CampusZon-sub000/internal/api/handler"
	"github.com/SubSh2004/CampusZon-sub000/internal/badge"
	"github.com/SubSh2004/CampusZon-sub000/internal/gateway"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/internal/service"
	"github.com/SubSh2004/CampusZon-sub000/pkg/auth"
	"github.com/SubSh2004/CampusZon-sub000/pkg/cache"
	"github.com/SubSh2004/CampusZon-sub000/pkg/database"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
	"github.com/SubSh2004/CampusZon-sub000/pkg/mq"
	"github.com/SubSh2004/CampusZon-sub000/pkg/ratelimit"
	"github.com/SubSh2004/CampusZon-sub000/pkg/tracing"
)

// @title CampusZon API
// @version 1.0
// @description 校园二手交易平台：代币账本、联系方式解锁、预约与审核
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if err := repository.Migrate(db); err != nil {
		return err
	}

	rdb, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// 未配置 MQ 时通知只写日志
	var pub service.EventPublisher
	if cfg.MQ.URL != "" {
		p, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			return err
		}
		defer p.Close()
		pub = p
	}
	dispatcher := service.NewDispatcher(pub, cfg.Notify.QueueSize)
	stopDispatcher := dispatcher.Start(cfg.Notify.Workers)

	// repositories
	users := repository.NewUserRepository(db)
	items := repository.NewItemRepository(db)
	unlocks := repository.NewUnlockRepository(db)
	bookings := repository.NewBookingRepository(db)
	payments := repository.NewPaymentRepository(db)
	ledger := service.NewTokenLedger(repository.NewLedgerRepository(db))

	reconciler := service.NewUnlockReconciler(db, unlocks, cfg.Reconcile.BatchSize, cfg.Reconcile.Interval)
	stopReconciler := reconciler.Start()

	var classifier service.ImageClassifier
	if cfg.Classifier.URL != "" {
		classifier = gateway.NewClassifier(cfg.Classifier)
	}

	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpireHours)*time.Hour, cfg.JWT.Leeway)
	unread := badge.NewUnreadCache(rdb, cfg.Badge.TTL, bookings.CountUnread)

	h := handler.NewHandler(handler.Services{
		Auth:       service.NewAuthService(users, issuer, cfg.Moderation.AdminEmails),
		Items:      service.NewItemService(items, classifier),
		Unlocks:    service.NewUnlockService(db, unlocks, items, users, ledger, dispatcher),
		Bookings:   service.NewBookingService(db, bookings, items, ledger, unread, dispatcher),
		Moderation: service.NewModerationService(db, items, cfg.Moderation.DuplicateWindow, dispatcher),
		Payments:   service.NewPaymentService(db, payments, ledger, gateway.NewClient(cfg.Payment), cfg.Payment),
		Ledger:     ledger,
	})
	if err := handler.RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	burst := ratelimit.NewLocalLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst, 10*time.Minute)
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				burst.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	router := api.NewRouter(api.RouterDeps{
		Handler:        h,
		Issuer:         issuer,
		Redis:          rdb,
		Limiter:        ratelimit.NewSlidingWindow(rdb, "ratelimit:"),
		Burst:          burst,
		RateLimit:      cfg.RateLimit,
		IdempotencyTTL: cfg.Idempotency.TTL,
		ServiceName:    cfg.Tracing.ServiceName,
		Tracing:        cfg.Tracing.Enabled,
		Sentry:         cfg.Sentry.DSN != "",
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := stopReconciler(shutdownCtx); err != nil {
		logger.Warn("reconciler stop", zap.Error(err))
	}
	if err := stopDispatcher(shutdownCtx); err != nil {
		logger.Warn("dispatcher stop", zap.Error(err))
	}
	return nil
}
