package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/http_server"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/observability"
	redisad "github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/redis"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/app"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/shared"
	mysqlrepo "github.com/Rico-project-final/FinalProject-RicoServer/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// the worker owns provider syncing; the API only stores user reviews
	// and queues sync requests, so it carries no fetcher
	resolver := app.StaticPlaces(cfg.BusinessPlaces)
	ing := app.NewIngestionService(nil, repo, repo, resolver, cache)
	ins := app.NewInsightService(repo, repo, cache, int(cfg.CacheTTL.Seconds()))
	q := app.NewQueryService(repo, repo, repo, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Ing: ing, Ins: ins})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
