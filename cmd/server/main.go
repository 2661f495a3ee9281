package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"event-ingest-service/internal/config"
	"event-ingest-service/internal/db"
	"event-ingest-service/internal/filter"
	httptransport "event-ingest-service/internal/http"
	"event-ingest-service/internal/kvstore"
	"event-ingest-service/internal/logging"
	"event-ingest-service/internal/notify"
	"event-ingest-service/internal/refcache"
	"event-ingest-service/internal/repository"
	"event-ingest-service/internal/review"
	"event-ingest-service/internal/service"
)

func main() {
	cfg, err := config.Load(os.Getenv("EIS_CONFIG_PATH"))
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	gdb, err := db.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	log.Info().Msg("connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := kvstore.NewRedisStore(redisClient)

	eventRepo := repository.NewEventRepository(gdb)
	referenceRepo := repository.NewReferenceRepository(gdb)
	cache := refcache.NewService(referenceRepo, kv, log)

	coolingCfg := filter.CoolingConfig{
		Enabled:    cfg.Cooling.IsOpen,
		EventTypes: filter.ParseCoolingEventTypes(cfg.Cooling.EventTypes),
	}
	notifier := notify.New(cfg.MessageCenter.URL, cfg.DQService.URL, cfg.Notify.MaxInFlight, log)

	pipeline := service.NewPipeline(
		cache,
		eventRepo,
		filter.NewReplayGuard(kv, log),
		filter.NewCoolingFilter(coolingCfg, kv, log),
		filter.NewChain(kv, log),
		review.NewDecider(kv, log),
		notifier,
		log,
	)

	handler := httptransport.NewHandler(pipeline, eventRepo, log)
	router := httptransport.NewRouter(handler, cfg.Auth.JWTSecret, cfg.Server.Mode, log)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Drain in-flight notifications before the process exits.
	notifier.Flush()
	log.Info().Msg("server stopped")
}
