package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"flarelog/internal/config"
	"flarelog/internal/db"
	"flarelog/internal/docstore"
	"flarelog/internal/handlers"
	"flarelog/internal/jobs"
	mw "flarelog/internal/middleware"
	"flarelog/internal/services"
)

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		slog.Error("could not build logger", slog.Any("err", err))
		os.Exit(1)
	}
	defer logger.Sync()

	dbConn, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err = dbConn.Ping(); err != nil {
		slog.Error("failed to ping db", slog.Any("err", err))
		os.Exit(1)
	}
	if err := db.RunMigrations(dbConn); err != nil {
		slog.Error("failed migrations", slog.Any("err", err))
		os.Exit(1)
	}

	store := docstore.NewPostgres(dbConn)
	table := services.NewRankTable(services.DefaultLadder)
	if err := services.SeedRanks(context.Background(), store, table); err != nil {
		slog.Error("failed to seed ranks", slog.Any("err", err))
		os.Exit(1)
	}

	cache := services.NewSnapshotCache()
	ledger := services.NewLedger(store, cache, logger)
	evaluator := services.NewEvaluator(store, table, cache, logger)
	streaks := services.NewStreaks(store, cfg.Location(), logger)
	streaks.FreezeChance = cfg.FreezeChance

	authHandler := handlers.NewAuthHandler(store, table, []byte(cfg.JWTSecret))
	entriesHandler := handlers.NewEntriesHandler(store, streaks, ledger, cfg.PointsPerEntry, logger)
	checkinHandler := handlers.NewCheckinHandler(streaks, logger)
	rankHandler := handlers.NewRankHandler(store, table, evaluator, cache, logger)
	authMW := mw.NewAuthMiddleware([]byte(cfg.JWTSecret))

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.StructuredLogger(logger))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			pr.Post("/entries", entriesHandler.Create)
			pr.Get("/entries", entriesHandler.List)
			pr.Post("/checkin/start", checkinHandler.Start)
			pr.Get("/checkin/today", checkinHandler.Today)
			pr.Get("/rank", rankHandler.Get)
			pr.Post("/rank/evaluate", rankHandler.Evaluate)
		})
	})

	scheduler := jobs.NewScheduler(store, streaks, evaluator, logger)
	if err := scheduler.Start(context.Background(), cfg.NightlySchedule); err != nil {
		slog.Error("failed to start scheduler", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		slog.Info("server starting", slog.String("addr", ":"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.Any("err", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown initiated")
	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	slog.Info("server stopped")
}
