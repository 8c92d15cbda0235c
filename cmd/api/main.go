package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	amqpevents "github.com/studiofit/frontdesk-api/internal/adapters/amqp/events"
	"github.com/studiofit/frontdesk-api/internal/adapters/httpapi"
	memcheckinrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/checkinrepo"
	memidempotency "github.com/studiofit/frontdesk-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/memberrepo"
	memwaitlistrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/waitlistrepo"
	postgres "github.com/studiofit/frontdesk-api/internal/adapters/postgres"
	pgcheckinrepo "github.com/studiofit/frontdesk-api/internal/adapters/postgres/checkinrepo"
	pgidempotency "github.com/studiofit/frontdesk-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/studiofit/frontdesk-api/internal/adapters/postgres/memberrepo"
	pgwaitlistrepo "github.com/studiofit/frontdesk-api/internal/adapters/postgres/waitlistrepo"
	redisidempotency "github.com/studiofit/frontdesk-api/internal/adapters/redis/idempotency"
	"github.com/studiofit/frontdesk-api/internal/app/checkin"
	"github.com/studiofit/frontdesk-api/internal/app/members"
	"github.com/studiofit/frontdesk-api/internal/app/waitlist"
	"github.com/studiofit/frontdesk-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/studiofit/frontdesk-api/internal/platform/clock"
	"github.com/studiofit/frontdesk-api/internal/platform/config"
	"github.com/studiofit/frontdesk-api/internal/platform/logger"
	"github.com/studiofit/frontdesk-api/internal/platform/metrics"
	checkinrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/checkinrepo"
	"github.com/studiofit/frontdesk-api/internal/ports/out/events"
	idempotencyport "github.com/studiofit/frontdesk-api/internal/ports/out/idempotency"
	memberrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
	waitlistrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/waitlistrepo"
)

const idempotencyPurgeInterval = time.Hour

func main() {
	if err := config.LoadDotEnv(""); err != nil {
		log.Fatalf("dotenv: %v", err)
	}
	appCfg, err := config.LoadAppConfigFromEnv()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	studioCfg, err := config.LoadStudioConfigFromEnv()
	if err != nil {
		log.Fatalf("invalid studio config: %v", err)
	}
	zl, err := logger.New(logger.Config{Level: appCfg.LogLevel, Format: appCfg.LogFormat})
	if err != nil {
		log.Fatalf("invalid log config: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	authIssuer := ""
	switch appCfg.AuthMode {
	case config.AuthModeDev:
		zl.Warn("dev auth enabled; staff endpoints trust X-Debug-Subject")
		authMW = httpapi.NewDevAuthMiddleware(appCfg.DevSubject)
		authIssuer = "dev"
	default:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			zl.Fatal("invalid auth config", zap.Error(err))
		}
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(jwtCfg))
		authIssuer = jwtCfg.Issuer
	}

	clk := platformclock.NewSystemClock()
	m := metrics.New()

	var (
		memberRepo   memberrepoport.Repository
		checkinRepo  checkinrepoport.Repository
		waitlistRepo waitlistrepoport.Repository
		idemStore    idempotencyport.Store
	)

	switch appCfg.StorageBackend {
	case config.StoragePostgres:
		if err := postgres.Migrate(ctx, appCfg.DatabaseURL, zl); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
		pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			zl.Fatal("invalid postgres config", zap.Error(err))
		}
		defer pool.Close()

		memberRepo = pgmemberrepo.NewRepo(pool)
		checkinRepo = pgcheckinrepo.NewRepo(pool)
		waitlistRepo = pgwaitlistrepo.NewRepo(pool)
		pgIdem := pgidempotency.NewStore(pool, authIssuer)
		idemStore = pgIdem
		go purgeIdempotency(ctx, pgIdem, zl)
	default:
		memberRepo = memmemberrepo.NewRepo()
		checkinRepo = memcheckinrepo.NewRepo()
		waitlistRepo = memwaitlistrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	// Redis, when configured, takes over idempotency so replicas share replays.
	if appCfg.RedisURL != "" {
		client, err := redisidempotency.NewClient(ctx, appCfg.RedisURL)
		if err != nil {
			zl.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		idemStore = redisidempotency.NewStore(client)
	}

	var publisher events.Publisher
	if appCfg.AMQPURL != "" {
		p, err := amqpevents.Dial(appCfg.AMQPURL, appCfg.AMQPExchange, zl)
		if err != nil {
			zl.Fatal("amqp", zap.Error(err))
		}
		defer func() { _ = p.Close() }()
		publisher = p
	}

	memberSvc := members.NewService(memberRepo, clk, studioCfg.Location, zl.Named("members"))
	checkinSvc := checkin.NewService(memberRepo, checkinRepo, clk, checkin.Config{
		Location:             studioCfg.Location,
		SelfServiceGraceDays: studioCfg.SelfServiceGraceDays,
		AssistedGraceDays:    studioCfg.AssistedGraceDays,
	},
		checkin.WithLogger(zl.Named("checkin")),
		checkin.WithMetrics(m),
		checkin.WithPublisher(publisher),
	)
	waitlistSvc := waitlist.NewService(waitlistRepo, clk,
		waitlist.WithLogger(zl.Named("waitlist")),
		waitlist.WithMetrics(m),
		waitlist.WithPublisher(publisher),
	)

	api := httpapi.NewServer(memberSvc, checkinSvc, waitlistSvc, idemStore, zl.Named("http"))
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Metrics:        m.Handler(),
		Logger:         zl.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + appCfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zl.Info("api listening",
			zap.String("port", appCfg.Port),
			zap.String("storage", string(appCfg.StorageBackend)),
			zap.String("timezone", studioCfg.Location.String()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func purgeIdempotency(ctx context.Context, s *pgidempotency.Store, zl *zap.Logger) {
	t := time.NewTicker(idempotencyPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			if err != nil {
				zl.Warn("idempotency purge failed", zap.Error(err))
				continue
			}
			zl.Debug("idempotency purge", zap.Int64("removed", n))
		}
	}
}
