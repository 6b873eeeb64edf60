// Package main is the entry point for the ClusterRisk portfolio risk
// analyzer. It wires the configuration, stores, clients and services
// together, starts the scheduler and serves the HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/clusterrisk/clusterrisk/internal/backup"
	"github.com/clusterrisk/clusterrisk/internal/clients/justetf"
	"github.com/clusterrisk/clusterrisk/internal/clients/openfigi"
	"github.com/clusterrisk/clusterrisk/internal/clients/yahoo"
	"github.com/clusterrisk/clusterrisk/internal/config"
	"github.com/clusterrisk/clusterrisk/internal/database"
	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/events"
	"github.com/clusterrisk/clusterrisk/internal/modules/analysis"
	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
	"github.com/clusterrisk/clusterrisk/internal/modules/history"
	"github.com/clusterrisk/clusterrisk/internal/modules/ingestion"
	"github.com/clusterrisk/clusterrisk/internal/modules/sectors"
	"github.com/clusterrisk/clusterrisk/internal/scheduler"
	"github.com/clusterrisk/clusterrisk/internal/server"
	"github.com/clusterrisk/clusterrisk/pkg/logger"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	version := getEnv("VERSION", "dev")
	log.Info().Str("version", version).Str("data_dir", cfg.DataDir).Msg("Starting ClusterRisk")

	bus := events.NewBus(log)
	diag := diagnostics.NewCollector()

	// Lookup cache. Rebuilt from upstream services on loss, so it runs
	// with the fast profile.
	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	// Analysis history keeps its own database file.
	historyDB, err := sql.Open("sqlite3", cfg.HistoryDBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()
	if err := historyDB.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping history database")
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := historyDB.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("Failed to apply history database pragma")
		}
	}

	historyRepo, err := history.NewRepository(historyDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history repository")
	}
	historySvc := history.NewService(historyRepo, log)

	// Fund detail store and the user-maintained holdings overlay.
	store, err := funds.NewStore(cfg.DetailsDir(), cfg.FundStaleDays, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open fund detail store")
	}
	overlay := funds.NewOverlay(cfg.OverlayPath(), log)

	justetfClient := justetf.NewClient(log)
	justetfClient.SetBaseURL(cfg.JustETFBaseURL)
	fundsSvc := funds.NewService(store, justetfClient, bus, diag, cfg.ScrapeDelay, log)

	sectorRepo, err := sectors.NewRepository(cacheDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sector cache")
	}
	yahooClient := yahoo.NewClient(log)
	yahooClient.SetBaseURL(cfg.YahooBaseURL)
	figiClient := openfigi.NewClient(cfg.OpenFIGIAPIKey, log)
	figiClient.SetBaseURL(cfg.OpenFIGIBaseURL)
	sectorsSvc := sectors.NewService(sectorRepo, yahooClient, figiClient, bus, diag,
		cfg.SectorMaxAgeDays, cfg.SectorWarmWorkers, log)

	parser := ingestion.NewParser(cfg.BaseCurrency, diag, log)
	resolver := analysis.NewResolver(store, overlay, sectorsSvc, diag, log)
	analysisSvc := analysis.NewService(parser, resolver, historyRepo, bus, diag, log)

	// S3 backups stay inert without a bucket.
	backupCfg := backup.Config{
		Bucket:   cfg.Backup.Bucket,
		Prefix:   cfg.Backup.Prefix,
		Region:   cfg.Backup.Region,
		Endpoint: cfg.Backup.Endpoint,
	}
	var uploader backup.Uploader
	if cfg.Backup.Enabled() {
		up, err := backup.NewUploader(context.Background(), backupCfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize S3 uploader, backups disabled")
		} else {
			uploader = up
			log.Info().Str("bucket", backupCfg.Bucket).Msg("S3 backups enabled")
		}
	}
	runner := backup.NewRunner(backupCfg, cfg.DataDir,
		[]*sql.DB{historyDB, cacheDB.Conn()}, uploader, bus, log)

	// Background maintenance.
	sched := scheduler.New(bus, log)
	if cfg.SchedulerEnabled {
		jobs := []struct {
			schedule string
			job      scheduler.Job
		}{
			{cfg.FundRefreshSchedule, scheduler.NewFundRefreshJob(fundsSvc, log)},
			{cfg.CachePruneSchedule, scheduler.NewCachePruneJob(sectorsSvc, log)},
			{cfg.BackupSchedule, scheduler.NewBackupJob(runner, log)},
		}
		for _, entry := range jobs {
			if err := sched.AddJob(entry.schedule, entry.job); err != nil {
				log.Fatal().Err(err).Str("job", entry.job.Name()).Str("schedule", entry.schedule).
					Msg("Failed to register job")
			}
		}
		sched.Start()
	} else {
		log.Info().Msg("Scheduler disabled")
	}

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Bus:       bus,
		HistoryDB: historyDB,
		CacheDB:   cacheDB.Conn(),
		FundStore: store,
		Funds:     fundsSvc,
		Sectors:   sectorsSvc,
		Analysis:  analysisSvc,
		History:   historySvc,
		Backup:    runner,
		Version:   version,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	if cfg.SchedulerEnabled {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
