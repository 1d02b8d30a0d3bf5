// Command server runs the language contribution API, its background jobs and
// the Prometheus metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bhashahub/crowdsource/internal/api"
	"github.com/bhashahub/crowdsource/internal/api/dashboard"
	"github.com/bhashahub/crowdsource/internal/api/handlers"
	"github.com/bhashahub/crowdsource/internal/cache"
	"github.com/bhashahub/crowdsource/internal/config"
	"github.com/bhashahub/crowdsource/internal/mattermost"
	"github.com/bhashahub/crowdsource/internal/repository"
	"github.com/bhashahub/crowdsource/internal/seed"
	"github.com/bhashahub/crowdsource/internal/service/challenges"
	"github.com/bhashahub/crowdsource/internal/service/contributions"
	"github.com/bhashahub/crowdsource/internal/service/languages"
	"github.com/bhashahub/crowdsource/internal/service/leaderboard"
	"github.com/bhashahub/crowdsource/internal/service/scheduler"
	"github.com/bhashahub/crowdsource/internal/service/stats"
	"github.com/bhashahub/crowdsource/internal/service/users"
	"github.com/bhashahub/crowdsource/internal/storage"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (defaults to ./config.yaml)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := repository.NewDB(&cfg.Database.Postgres, log.Component("database"))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	switch cfg.Database.Postgres.MigrateMode {
	case "auto":
		err = db.AutoMigrate()
	default:
		err = repository.RunMigrations(cfg.Database.Postgres.URL(), log.Component("migrate"))
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis holds upload tickets only
	rdb, err := cache.ConnectRedis(ctx, &cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis")
		}
	}()

	objects, err := storage.NewS3Storage(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	tickets := cache.NewTicketStore(rdb, cfg.Storage.UploadTTLDuration())

	statsLocation, err := cfg.Stats.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid stats timezone: %w", err)
	}

	// Repositories
	contributionRepo := repository.NewContributionRepository(db)
	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	languageRepo := repository.NewLanguageRepository(db)

	mattermostClient := mattermost.NewClient(&cfg.Mattermost, log.Component("mattermost"))
	supported := cfg.Languages.Supported

	log.Info().
		Strs("languages", supported).
		Dur("upload_ticket_ttl", tickets.TTL()).
		Bool("mattermost_enabled", mattermostClient.Enabled()).
		Str("stats_timezone", statsLocation.String()).
		Msg("Services configured")

	// Services
	languageService := languages.NewService(languageRepo, contributionRepo, log.Component("languages"))
	userService := users.NewService(userRepo, supported, log.Component("users"))
	challengeService := challenges.NewService(challengeRepo, userRepo, mattermostClient, supported, log.Component("challenges"))
	contributionService := contributions.NewService(
		contributionRepo, languageRepo, tickets, objects, challengeService,
		supported, cfg.Storage.MaxUploadBytes, log.Component("contributions"),
	)
	aggregator := stats.NewAggregator(contributionRepo, supported, statsLocation, log.Component("stats"))
	leaderboardService := leaderboard.NewService(contributionRepo, userRepo, supported, log.Component("leaderboard"))

	if err := seedCatalog(ctx, cfg, languageService, challengeService, log); err != nil {
		return err
	}

	schedulerService := scheduler.NewService(&cfg.Scheduler, challengeService, languageService, mattermostClient, log.Component("scheduler"))
	if err := schedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer schedulerService.Stop()

	// HTTP
	handler := handlers.NewHandler(
		contributionService, challengeService, languageService, userService,
		objects, tickets, db, log.Component("handlers"),
	)
	dashboardHandler := dashboard.NewHandler(aggregator, leaderboardService, cfg.Stats.TimeoutDuration(), log.Component("dashboard"))
	router := api.SetupRouter(cfg, handler, dashboardHandler, log)

	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.Metrics.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Prometheus.Path, promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err = <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	for _, srv := range servers {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Str("addr", srv.Addr).Msg("Graceful shutdown failed")
		}
	}

	log.Info().Msg("Server stopped")
	return err
}

// seedCatalog loads the language catalog and starter challenges.
func seedCatalog(ctx context.Context, cfg *config.Config, languageService *languages.Service, challengeService *challenges.Service, log *logger.Logger) error {
	data, err := seed.Load(cfg.Languages.SeedFile)
	if err != nil {
		return err
	}

	if err := languageService.Seed(ctx, data.LanguageMetadata(cfg.Languages.Supported)); err != nil {
		return fmt.Errorf("failed to seed languages: %w", err)
	}

	created, err := challengeService.SeedIfEmpty(ctx, data.Challenges)
	if err != nil {
		return fmt.Errorf("failed to seed challenges: %w", err)
	}
	if created > 0 {
		log.Info().Int("count", created).Msg("Seeded starter challenges")
	}
	return nil
}
