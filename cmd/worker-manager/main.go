package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gigbook-workers/internal/common/aws"
	"gigbook-workers/internal/common/camunda"
	"gigbook-workers/internal/common/config"
	"gigbook-workers/internal/common/database"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/common/observability"
	"gigbook-workers/internal/engine/availability"
	"gigbook-workers/internal/engine/matching"
	"gigbook-workers/internal/engine/pricing"
	"gigbook-workers/internal/store"

	// Availability Workers (4)
	cc "gigbook-workers/internal/workers/availability/check-conflicts"
	cma "gigbook-workers/internal/workers/availability/check-multiple-availability"
	da "gigbook-workers/internal/workers/availability/daily-availability"
	rs "gigbook-workers/internal/workers/availability/reserve-slot"

	// Pricing & Matching Workers (2)
	cr "gigbook-workers/internal/workers/pricing/calculate-rate"
	sm "gigbook-workers/internal/workers/matching/search-musicians"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

var exit = os.Exit

// fatal flushes the logger itself since exit skips deferred calls.
func fatal(log logger.Logger, sync func() error, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err})
	_ = sync()
	exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("Starting worker manager...", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClient(ctx, cfg.Camunda)
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		fatal(log, zapLog.Sync, "zeebe client failed after retries", err)
	}
	log.Info("Zeebe client connected successfully", nil)

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		fatal(log, zapLog.Sync, "postgres failed after retries", err)
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		fatal(log, zapLog.Sync, "redis failed after retries", err)
	}
	defer rdb.Close()
	log.Info("Redis connected successfully", nil)

	// --- Stores ---
	calendar := store.NewCalendarStore(pg.DB, log)
	pricingCfg := cfg.Engine.Pricing
	market := store.NewMarketStore(pg.DB, rdb.Client, store.MarketOptions{
		CacheTTL:          time.Duration(pricingCfg.MarketCacheTTLSeconds) * time.Second,
		DemandLookback:    time.Duration(pricingCfg.DemandLookbackDays) * 24 * time.Hour,
		HighDemandCount:   pricingCfg.HighDemandBookingCount,
		MediumDemandCount: pricingCfg.MediumDemandBookingCount,
	}, log)
	performance := store.NewPerformanceStore(pg.DB, rdb.Client,
		time.Duration(pricingCfg.PerformanceCacheTTLSeconds)*time.Second, log)

	var pool matching.ProfilePool
	switch cfg.Engine.Matching.ProfileSource {
	case "elasticsearch":
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			fatal(log, zapLog.Sync, "elasticsearch failed after retries", err)
		}
		log.Info("Elasticsearch connected successfully", nil)
		pool = store.NewProfileSearch(esClient.Client, cfg.Database.Elasticsearch.MusicianIndex, log)
	default:
		pool = store.NewProfileStore(pg.DB, log)
	}

	// --- Engine ---
	avCfg := cfg.Engine.Availability
	resolver := availability.NewResolver(calendar, availability.Options{
		SearchWindow:             time.Duration(avCfg.SearchWindowHours) * time.Hour,
		DefaultTravelTimeMinutes: avCfg.DefaultTravelTimeMinutes,
		DefaultBufferTimeMinutes: avCfg.DefaultBufferTimeMinutes,
		MaxConcurrency:           avCfg.MaxConcurrency,
		WorkdayStartHour:         avCfg.WorkdayStartHour,
		WorkdayEndHour:           avCfg.WorkdayEndHour,
	}, log)

	calculator := pricing.NewCalculator(market, performance, pricing.Options{
		Tables: pricing.DefaultTables().WithOverrides(
			pricingCfg.DefaultBaseRate,
			pricingCfg.BaseRates,
			pricingCfg.LocationMultipliers,
			pricingCfg.EventTypeMultipliers,
		),
		CompetitorRateLimit: pricingCfg.CompetitorRateLimit,
	}, log)

	engine := matching.NewEngine(pool, resolver, calculator, store.NewGeoDistance(cfg.Geo.Locations), matching.Options{
		MaxConcurrency: cfg.Engine.Matching.MaxConcurrency,
		QuoteRates:     cfg.Engine.Matching.QuoteRates,
	}, log)

	// --- Events ---
	var publisher sm.RankingPublisher
	if sns := cfg.Integrations.AWS.SNS; sns.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			fatal(log, zapLog.Sync, "failed to create SNS client", err)
		}
		publisher = aws.NewRankingPublisher(snsClient, sns.MatchRankedTopicARN)
		log.Info("SNS ranking publisher enabled", map[string]interface{}{"topicArn": sns.MatchRankedTopicARN})
	}

	// --- Register Workers ---
	var jobWorkers []worker.JobWorker
	start := func(taskType string, handler worker.JobHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		jobWorkers = append(jobWorkers, camunda.StartWorker(zeebeClient, taskType, wcfg, handler, obs, log))
	}

	start(cc.TaskType, cc.NewHandler(cc.LoadConfig(), resolver, log).Handle)
	start(cma.TaskType, cma.NewHandler(cma.LoadConfig(), resolver, log).Handle)
	start(da.TaskType, da.NewHandler(da.LoadConfig(), resolver, log).Handle)

	rsCfg := rs.LoadConfig()
	rsCfg.DefaultTravelTimeMinutes = avCfg.DefaultTravelTimeMinutes
	rsCfg.DefaultBufferTimeMinutes = avCfg.DefaultBufferTimeMinutes
	start(rs.TaskType, rs.NewHandler(rsCfg, calendar, log).Handle)

	start(cr.TaskType, cr.NewHandler(cr.LoadConfig(), calculator, log).Handle)
	start(sm.TaskType, sm.NewHandler(sm.LoadConfig(), engine, publisher, log).Handle)
	log.Info("workers registered", map[string]interface{}{"count": len(jobWorkers)})

	// --- Health / Metrics ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "postgres unavailable")
			return
		}
		if err := rdb.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.App.HTTPAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": cfg.App.HTTPAddress})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, stopping workers...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range jobWorkers {
		jw.Close()
		jw.AwaitClose()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err})
	}
	if err := zeebeClient.Close(); err != nil {
		log.Error("Error closing Zeebe client", map[string]interface{}{"error": err})
	}

	log.Info("Worker manager stopped gracefully", nil)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
