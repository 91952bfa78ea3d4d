package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/observability"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/places"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/reasoning"
	redisad "github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/redis"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/app"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/scheduler"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/shared"
	mysqlrepo "github.com/Rico-project-final/FinalProject-RicoServer/internal/storage/mysql"
)

// Job names. Stable identifiers: they key the persistent job table.
const (
	jobReviewSync    = "review-sync"
	jobReviewAnalyze = "review-analyze"
	jobTaskOptimize  = "task-optimize"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	log.Info().
		Int("workers", cfg.Workers).
		Int("businesses", len(cfg.BusinessPlaces)).
		Dur("poll", cfg.PollInterval).
		Msg("worker starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	fetcher, err := places.New(cfg.PlacesBase, cfg.PlacesKey, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize places client")
	}
	reasoner, err := reasoning.New(cfg.AnthropicKey, cfg.AnthropicModel, 2)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize reasoning client")
	}

	resolver := app.StaticPlaces(cfg.BusinessPlaces)
	ing := app.NewIngestionService(fetcher, repo, repo, resolver, cache)
	analyze := app.NewAnalysisService(repo, repo, repo, reasoner, cache, cfg.AnalyzeConc)
	insights := app.NewInsightService(repo, repo, cache, int(cfg.CacheTTL.Seconds()))

	sched := scheduler.New(repo, repo,
		scheduler.WithPollInterval(cfg.PollInterval),
		scheduler.WithWorkers(cfg.Workers),
	)

	sched.Handle(jobReviewSync, func(ctx context.Context, businessID string) error {
		_, err := ing.SyncBusiness(ctx, businessID)
		return err
	})
	sched.Handle(jobReviewAnalyze, func(ctx context.Context, businessID string) error {
		_, err := analyze.AnalyzePending(ctx, businessID)
		return err
	})
	sched.Handle(jobTaskOptimize, func(ctx context.Context, businessID string) error {
		_, err := insights.GenerateOptimizationTasks(ctx, businessID)
		return err
	})

	// fresh reviews flow straight into analysis instead of waiting for the
	// hourly sweep
	sched.OnEvent(domain.EventReviewsAdded, func(ctx context.Context, e domain.Event) error {
		var p struct {
			Added int `json:"added"`
		}
		_ = json.Unmarshal(e.Payload, &p)
		log.Info().Str("business", e.BusinessID).Int("added", p.Added).Msg("analyzing new reviews")
		_, err := analyze.AnalyzePending(ctx, e.BusinessID)
		return err
	})
	sched.OnEvent(domain.EventSyncRequested, func(ctx context.Context, e domain.Event) error {
		_, err := ing.SyncBusiness(ctx, e.BusinessID)
		return err
	})

	for biz := range cfg.BusinessPlaces {
		if err := sched.Schedule(ctx, jobReviewSync, &biz, cfg.SyncSpec); err != nil {
			log.Fatal().Err(err).Str("business", biz).Msg("scheduling review sync failed")
		}
	}
	if err := sched.Schedule(ctx, jobReviewAnalyze, nil, cfg.AnalyzeSpec); err != nil {
		log.Fatal().Err(err).Msg("scheduling analyze sweep failed")
	}
	for biz := range cfg.BusinessPlaces {
		if err := sched.Schedule(ctx, jobTaskOptimize, &biz, cfg.OptimizeSpec); err != nil {
			log.Fatal().Err(err).Str("business", biz).Msg("scheduling task optimization failed")
		}
	}

	sched.Run(ctx)
	log.Info().Msg("worker stopped")
}
