package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mhcqms/queue-engine/internal/config"
	"mhcqms/queue-engine/internal/httpapi"
	"mhcqms/queue-engine/internal/observability/metrics"
	"mhcqms/queue-engine/internal/risk"
	"mhcqms/queue-engine/internal/store"
	"mhcqms/queue-engine/internal/store/memory"
	"mhcqms/queue-engine/internal/store/postgres"
	"mhcqms/queue-engine/internal/telemetry"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(level)
	}

	shutdownTracing := telemetry.Setup("queue-engine")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	panels := risk.DefaultPanels()
	if cfg.PanelsFile != "" {
		loaded, err := risk.LoadPanels(cfg.PanelsFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PanelsFile).Msg("load panels")
		}
		panels = loaded
	}

	var engineStore store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect")
		}
		defer pool.Close()
		engineStore = postgres.NewStore(pool, postgres.Options{
			Panels:      panels,
			SlotMinutes: cfg.AppointmentSlotMinutes,
		})
		log.Info().Msg("using postgres store")
	} else {
		memStore := memory.New(panels, cfg.AppointmentSlotMinutes)
		memStore.SeedCatalog()
		engineStore = memStore
		log.Info().Msg("DB_DSN not set, using in-memory store with seeded catalog")
	}

	m := metrics.New()
	handler := httpapi.NewHandler(engineStore, httpapi.Options{Metrics: m})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:     cfg.RateLimitPerMinute,
		IPBurst:         cfg.RateLimitBurst,
		PortalPerMinute: cfg.PortalRateLimitPerMinute,
		PortalBurst:     cfg.PortalRateLimitBurst,
	})

	routes := httpapi.LoggingMiddleware(m)(limiter.Middleware(handler.Routes()))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(routes, "queue-engine"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("queue-engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
