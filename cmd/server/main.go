// Command server runs the course access guard: the JSON API on HTTP_ADDR and gRPC health on GRPC_ADDR.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"course-guard/internal/access"
	accesshandler "course-guard/internal/access/handler"
	"course-guard/internal/audit"
	audithandler "course-guard/internal/audit/handler"
	auditrepo "course-guard/internal/audit/repository"
	"course-guard/internal/clientip"
	"course-guard/internal/config"
	"course-guard/internal/db"
	"course-guard/internal/device/fingerprint"
	devicehandler "course-guard/internal/device/handler"
	devicerepo "course-guard/internal/device/repository"
	deviceservice "course-guard/internal/device/service"
	healthhandler "course-guard/internal/health/handler"
	"course-guard/internal/logging"
	playbackhandler "course-guard/internal/playback/handler"
	"course-guard/internal/policy/engine"
	policyrepo "course-guard/internal/policy/repository"
	"course-guard/internal/security"
	"course-guard/internal/server"
	sessionhandler "course-guard/internal/session/handler"
	sessionrepo "course-guard/internal/session/repository"
	sessionservice "course-guard/internal/session/service"
	"course-guard/internal/telemetry"
	"course-guard/internal/telemetry/otel"
	"course-guard/internal/telemetry/producer"
)

const serviceName = "course-guard"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.Env, cfg.OTLPInsecure)
	if err != nil {
		log.Fatal().Err(err).Msg("otel providers")
	}
	providers.SetGlobal()
	metrics, err := otel.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("otel metrics")
	}

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer conn.Close()

	kafka := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	emitters := []telemetry.EventEmitter{otel.NewEventEmitter(providers.LoggerProvider)}
	if kafka != nil {
		emitters = append(emitters, kafka)
	}
	events := telemetry.Multi(emitters...)

	var ips clientip.Resolver = clientip.RequestResolver{}
	if cfg.IPSource == config.IPSourceEcho {
		ips = clientip.ReportedResolver{}
	}
	auditRepo := auditrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditRepo, ips.Resolve)
	resolver := fingerprint.NewResolver()

	devRepo := devicerepo.NewPostgresRepository(conn)
	var devLocker devicerepo.Locker
	if cfg.StrictAtomicity {
		devLocker = devRepo
	}
	devices := deviceservice.NewRegistry(devRepo, devLocker, resolver, auditLogger, events, metrics)

	var (
		sessRepo   sessionrepo.Repository
		sessLocker sessionrepo.Locker
	)
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis url")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		sessRepo = sessionrepo.NewRedisRepository(rdb, serviceName)
		if cfg.StrictAtomicity {
			log.Warn().Msg("server: STRICT_ATOMICITY has no effect on the redis session store")
		}
	default:
		pg := sessionrepo.NewPostgresRepository(conn)
		sessRepo = pg
		if cfg.StrictAtomicity {
			sessLocker = pg
		}
	}
	sessions := sessionservice.NewRegistry(sessRepo, sessLocker, resolver, ips, auditLogger, events, metrics, cfg.SessionLifetime())

	policy := engine.NewOPAEvaluator(policyrepo.NewPostgresRepository(conn))
	go reloadPoliciesOnHangup(ctx, policy)
	gate := access.NewGate(devices, sessions, policy, cfg.MaxDevicesPerAccount, cfg.DenyIndeterminate(), metrics, events)

	verifier, err := security.NewIdentityVerifier(cfg.AuthJWTSecret, cfg.AuthJWTPublicKey, cfg.AuthJWTIssuer, cfg.AuthJWTAudience)
	if err != nil {
		log.Fatal().Err(err).Msg("identity verifier")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	health := healthhandler.NewServer(conn, policy)

	router := server.NewRouter(server.Deps{
		Access:   accesshandler.NewServer(gate),
		Devices:  devicehandler.NewServer(devices, gate),
		Sessions: sessionhandler.NewServer(sessions, gate),
		Playback: playbackhandler.NewServer(cfg.BrandName),
		Audit:    audithandler.NewServer(auditRepo),
		Health:   health,

		Verifier: verifier,
		Logger:   logger,
		Registry: registry,

		CORSOrigins:         cfg.CORSOriginsList(),
		RateLimitPerMinute:  cfg.RateLimitPerMinute,
		SessionCookieMaxAge: cfg.SessionLifetime(),
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, hs := server.NewGRPCServer()
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("listen grpc")
	}
	go server.WatchReadiness(ctx, hs, health.Ready, 10*time.Second)

	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("server: gRPC health listening")
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error().Err(err).Msg("server: grpc serve")
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server: HTTP listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server: http serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server: shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server: http shutdown")
	}
	grpcSrv.GracefulStop()

	// Let in-flight async emits finish before closing their sinks.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafka.Close(); err != nil {
		log.Warn().Err(err).Msg("server: kafka close")
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server: otel shutdown")
	}
	log.Info().Msg("server: stopped")
}

// reloadPoliciesOnHangup drops the compiled access policies on SIGHUP so edits to access_policies
// apply without waiting for the cache to expire.
func reloadPoliciesOnHangup(ctx context.Context, policy *engine.OPAEvaluator) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			policy.Invalidate()
			log.Info().Msg("server: SIGHUP received, access policies will reload")
		}
	}
}
