package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"gatekeeper/internal/admission/detect"
	"gatekeeper/internal/admission/metrics"
	admissionmw "gatekeeper/internal/admission/middleware"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/policy"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/internal/admission/service"
	admissionsignal "gatekeeper/internal/admission/signal"
	"gatekeeper/internal/admission/store/window"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/httpserver"
	"gatekeeper/internal/platform/logger"
	platformredis "gatekeeper/internal/platform/redis"
	httptransport "gatekeeper/internal/transport/http"
	"gatekeeper/pkg/platform/audit"
)

// main wires dependencies and keeps the server lifecycle small. Domain
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	policies := policy.Defaults()
	overrides := map[models.Role]string{
		models.RoleGuest: cfg.GuestQuota,
		models.RoleUser:  cfg.UserQuota,
		models.RoleAdmin: cfg.AdminQuota,
	}
	for role, spec := range overrides {
		if spec == "" {
			continue
		}
		if err := policies.Override(role, spec); err != nil {
			log.Error("invalid quota override", "role", role, "error", err)
			os.Exit(1)
		}
	}
	// Missing or unusable policies abort startup; they must never surface
	// as per-request failures.
	if err := policies.Validate(); err != nil {
		log.Error("policy table validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := metrics.New()

	var store ports.WindowStore
	if cfg.RedisURL != "" {
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		store = window.NewRedisStore(client.Client)
		log.Info("using redis window store")
	} else {
		memStore := window.NewMemoryStore()
		memStore.StartSweeper(ctx, time.Minute, m.SetTrackedIdentities)
		store = memStore
		log.Info("using in-memory window store")
	}

	var bot ports.BotDetector
	if cfg.BotEndpoint != "" {
		bot = detect.NewHTTPBotDetector(cfg.BotEndpoint, cfg.SignalTimeout,
			detect.WithBotAPIKey(cfg.DetectorAPIKey),
			detect.WithBotThreshold(cfg.BotThreshold),
		)
	} else {
		bot = detect.NewUserAgentBotDetector(cfg.BotThreshold)
	}

	var shield ports.ShieldDetector
	if cfg.ShieldEndpoint != "" {
		shield = detect.NewHTTPShieldDetector(cfg.ShieldEndpoint, cfg.DetectorAPIKey, cfg.SignalTimeout)
	} else {
		shield = detect.NoopShieldDetector{}
	}

	var publisher audit.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka audit publisher failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafkaPublisher.Close(flushCtx)
		}()
		publisher = kafkaPublisher
		log.Info("audit events publishing to kafka", "topic", cfg.AuditTopic)
	} else {
		publisher = audit.NewMemoryPublisher(0)
	}

	evaluator, err := admissionsignal.New(store, bot, shield,
		admissionsignal.WithLogger(log),
		admissionsignal.WithMetrics(m),
		admissionsignal.WithTimeout(cfg.SignalTimeout),
	)
	if err != nil {
		log.Error("signal evaluator wiring failed", "error", err)
		os.Exit(1)
	}

	admission, err := service.New(policies, evaluator,
		service.WithLogger(log),
		service.WithMetrics(m),
	)
	if err != nil {
		log.Error("admission service wiring failed", "error", err)
		os.Exit(1)
	}

	gate := admissionmw.New(admission, log,
		admissionmw.WithDisabled(cfg.AdmissionDisabled),
		admissionmw.WithAuditPublisher(publisher),
	)

	router := httptransport.NewRouter(gate, []byte(cfg.JWTSigningKey), log)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting gatekeeper", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
