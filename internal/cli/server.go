package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizzy-service/internal/app"
	"quizzy-service/internal/config"
	"quizzy-service/internal/domain"
	"quizzy-service/internal/infra/memory"
	pgstore "quizzy-service/internal/infra/postgres"
	redisstore "quizzy-service/internal/infra/redis"
	transport "quizzy-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scoring and leaderboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := applyMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	boardTTL := config.TTLDuration(cfg.Leaderboard.TTL, app.SnapshotTTL)

	memStore := memory.NewSubmissionStore()
	var (
		subs    app.SubmissionStore = memStore
		ledger  app.AttemptLedger   = memStore
		ranks   app.RankingStore    = memStore
		quizzes app.QuizReader      = memory.NewStaticQuizReader(sampleQuizzes())
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		store := pgstore.NewSubmissionStore(db)
		subs, ledger, ranks = store, store, store

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		quizzes = pgstore.NewQuizReader(pool)
	}

	var cache app.SnapshotCache = memory.NewSnapshotCache()
	if redisClient != nil {
		cache = redisstore.NewSnapshotCache(redisClient)
	}

	hub := transport.NewHub()
	boards := app.NewLeaderboardService(ranks, cache, hub, boardTTL)
	service := app.NewSubmissionService(subs, ledger, quizzes, memory.NewAccessList(), boards, app.NopMetrics{})

	wsHandler := transport.NewWSHandler(boards, hub)
	apiHandler := transport.NewAPIHandler(service, boards)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/api/attempts", apiHandler.SubmitAttempt)
	mux.HandleFunc("/api/leaderboard", apiHandler.Leaderboard)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizzy service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides demo quiz configuration when Postgres is not set up.
func sampleQuizzes() map[int64]domain.Quiz {
	two := 2
	return map[int64]domain.Quiz{
		1: {
			ID:                    1,
			Title:                 "General knowledge",
			IsPublished:           true,
			Visibility:            domain.VisibilityPublic,
			AllowMultipleAttempts: false,
			ScoringPolicy:         domain.PolicyBest,
		},
		2: {
			ID:                    2,
			Title:                 "Weekly challenge",
			IsPublished:           true,
			Visibility:            domain.VisibilityPublic,
			AllowMultipleAttempts: true,
			MaxAttempts:           &two,
			ScoringPolicy:         domain.PolicyLast,
		},
	}
}
