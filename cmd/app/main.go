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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"membership-payments/internal/config"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/adapter"
	"membership-payments/internal/domain/ports/repository"
	payAdapters "membership-payments/internal/infra/adapters/payment"
	"membership-payments/internal/infra/api"
	"membership-payments/internal/infra/api/apiv1"
	"membership-payments/internal/infra/db/memory"
	pg "membership-payments/internal/infra/db/postgres"
	"membership-payments/internal/infra/logging"
	"membership-payments/internal/infra/metrics"
	"membership-payments/internal/infra/notify"
	"membership-payments/internal/infra/payment"
	red "membership-payments/internal/infra/redis"
	"membership-payments/internal/infra/sched"
	"membership-payments/internal/infra/telegram"
	"membership-payments/internal/infra/worker"
	"membership-payments/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

const devPayerID = "dev-payer"

type stores struct {
	ledger     repository.PaymentRecordRepository
	profiles   repository.ProfileRepository
	deliveries repository.DeliveryLogRepository
	tm         repository.TransactionManager
	pool       *pgxpool.Pool // nil on memory stores
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Storage ----
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}
	if st.pool != nil {
		defer st.pool.Close()
		go observePool(ctx, st.pool)
	}

	// ---- Redis ----
	var (
		locker  adapter.Locker = memory.NewKeyedLocker()
		limiter adapter.RateLimiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient, logger)
		limiter = red.NewRateLimiter(redisClient)
		logger.Info().Msg("redis locks and rate limiting enabled")
	} else {
		logger.Warn().Msg("redis.url not set: in-process locks, checkout rate limiting disabled")
	}

	// ---- Notifications ----
	notifyPool := worker.NewPool(cfg.Notify.Workers, cfg.Notify.Queue, logger)
	notifyPool.Start(ctx)
	defer notifyPool.Stop()
	notifier := newNotifier(cfg, notifyPool, logger)

	// ---- Gateway ----
	gateway, err := newGateway(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway")
	}

	// ---- Use cases ----
	membershipUC := usecase.NewMembershipUseCase(st.profiles, st.ledger, st.tm, cfg.Membership.Period, logger)
	checkoutUC := usecase.NewCheckoutUseCase(gateway, limiter, usecase.CheckoutLimit{
		Limit:  cfg.RateLimit.CheckoutPerMinute,
		Window: time.Minute,
	}, logger)
	reconciler := usecase.NewReconciler(gateway, st.ledger, membershipUC, usecase.ReconcilerOptions{
		Locker:       locker,
		LockTTL:      cfg.Redis.TTL,
		WriteTimeout: cfg.Payment.LedgerWriteTimeout,
		Notifier:     notifier,
	}, logger)
	auditUC := usecase.NewAuditUseCase(st.ledger, st.deliveries, membershipUC, cfg.Repair.Lookback, logger)

	// ---- HTTP ----
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, logger)
	if cfg.Runtime.Dev {
		if tok, err := auth.Mint(devPayerID, api.RoleAdmin, 24*time.Hour); err == nil {
			logger.Info().Str("payer_id", devPayerID).Str("token", tok).Msg("dev bearer token")
		}
	}
	r := chi.NewRouter()
	api.NewServer(reconciler, cfg.Payment.Gateway.ReturnPath, logger).Register(r)
	apiv1.RegisterAPIV1(r, apiv1.NewServer(apiv1.Deps{
		Checkout:   checkoutUC,
		Reconciler: reconciler,
		Audit:      auditUC,
		Auth:       auth,
		Signature: payment.SignatureVerifier{
			Secret: cfg.Payment.Gateway.WebhookSecret,
			MaxAge: cfg.Payment.Gateway.SignatureMaxAge,
		},
		AdminKey:    cfg.Auth.AdminAPIKey,
		WebhookPath: cfg.Payment.Gateway.WebhookPath,
	}, logger))

	handler := api.Chain(r,
		api.TraceID(logger),
		api.RequestLog(logger),
		api.Recover(logger),
		api.Timeout(cfg.Server.RequestTimeout),
		api.BodyLimit(1<<20),
	)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("webhook_path", cfg.Payment.Gateway.WebhookPath).
			Str("notification_url", cfg.NotificationURL()).
			Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Background workers ----
	expiry := sched.NewExpiryWorker(cfg.Membership.ExpiryInterval, membershipUC, logger)
	go func() { _ = expiry.Run(ctx) }()
	if cfg.Repair.Enabled {
		repair := sched.NewMembershipRepair(membershipUC, locker, notifier, cfg.Repair, logger)
		go repair.Start(ctx)
	}

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	ps := notifyPool.Stats()
	logger.Info().Int64("notices_sent", ps.Done).Int64("notices_failed", ps.Failed).Int64("notices_dropped", ps.Dropped).Msg("stopped")
}

func openStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*stores, error) {
	if cfg.Database.URL == "" {
		if !cfg.Runtime.Dev {
			return nil, errors.New("database.url is required outside dev mode")
		}
		logger.Warn().Msg("database.url not set: using in-memory stores")
		profiles := memory.NewProfileStore()
		p, _ := model.NewProfile(devPayerID, "dev-payer@example.com")
		_ = profiles.Save(ctx, repository.NoTX, p)
		return &stores{
			ledger:     memory.NewPaymentRecordStore(),
			profiles:   profiles,
			deliveries: memory.NewDeliveryLog(),
			tm:         memory.NewTxManager(),
		}, nil
	}

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info().Int32("max_conns", cfg.Database.MaxConns).Msg("postgres connected")
	return &stores{
		ledger:     pg.NewPaymentRecordRepo(pool),
		profiles:   pg.NewProfileRepo(pool),
		deliveries: pg.NewDeliveryRepo(pool),
		tm:         pg.NewTxManager(pool),
		pool:       pool,
	}, nil
}

func newGateway(cfg *config.Config, logger *zerolog.Logger) (adapter.PaymentGateway, error) {
	g := cfg.Payment.Gateway
	if g.Provider == "noop" {
		logger.Warn().Msg("payment gateway: noop")
		return payAdapters.NewNoopPaymentGateway(), nil
	}
	if g.AccessToken == "" {
		logger.Warn().Msg("payment.gateway.access_token not set: checkout answers 503 until configured")
	}
	returnURL := cfg.ReturnURL()
	return payAdapters.NewMercadoPagoGateway(payAdapters.MercadoPagoOptions{
		AccessToken:         g.AccessToken,
		BaseURL:             g.BaseURL,
		NotificationURL:     cfg.NotificationURL(),
		SuccessURL:          returnURL,
		PendingURL:          returnURL,
		FailureURL:          returnURL,
		StatementDescriptor: g.StatementDescriptor,
		Currency:            g.Currency,
		Timeout:             g.Timeout,
	}, logger)
}

func newNotifier(cfg *config.Config, pool *worker.Pool, logger *zerolog.Logger) adapter.Notifier {
	if cfg.Notify.TelegramToken == "" {
		return notify.NewLogNotifier(logger)
	}
	bot, err := telegram.NewBot(cfg.Notify.TelegramToken, "", 10*time.Second)
	if err != nil {
		logger.Error().Err(err).Msg("telegram bot unavailable, notices will be logged")
		return notify.NewLogNotifier(logger)
	}
	n, err := telegram.NewAdminNotifier(bot, cfg.Notify, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("telegram notifier")
		return notify.NewLogNotifier(logger)
	}
	logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.Notify.AdminChatIDs)).Msg("telegram notices enabled")
	return n
}

func observePool(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			metrics.ObservePool(pool.Stat())
		}
	}
}
