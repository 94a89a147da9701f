package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hrishi-524/Quiz-Burst/internal/app"
	"github.com/Hrishi-524/Quiz-Burst/internal/config"
	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
	"github.com/Hrishi-524/Quiz-Burst/internal/game"
	"github.com/Hrishi-524/Quiz-Burst/internal/infra/memory"
	pgloader "github.com/Hrishi-524/Quiz-Burst/internal/infra/postgres"
	redisinfra "github.com/Hrishi-524/Quiz-Burst/internal/infra/redis"
	"github.com/Hrishi-524/Quiz-Burst/internal/transport/ws"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
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
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	retention := config.TTLDuration(cfg.Redis.Retention, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizProvider
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, retention)
	} else {
		store = memory.NewSessionStore()
	}

	hub := ws.NewHub()
	coordinator := app.NewCoordinator(store, quizRepo, hub, app.Config{
		Rules: game.Rules{
			MaxPlayers:      cfg.Game.MaxPlayers,
			TimeBonusFactor: cfg.Game.TimeBonusFactor,
			AllowSkipReveal: cfg.Game.AllowSkipReveal,
		},
		RevealDelay:  config.TTLDuration(cfg.Game.RevealDelay, 3*time.Second),
		CodeAttempts: cfg.Game.CodeAttempts,
	})
	handler := ws.NewHandler(hub, coordinator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", handler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game server on :%s", finalPort)
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

// sampleQuizzes seeds the static loader used when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					Text:               "What is 2 + 2?",
					Options:            []domain.Option{{Text: "3"}, {Text: "4"}, {Text: "5"}, {Text: "22"}},
					CorrectOptionIndex: 1,
					TimeLimitSeconds:   30,
					Points:             1000,
				},
				{
					Text:               "Which planet is closest to the sun?",
					Options:            []domain.Option{{Text: "Venus"}, {Text: "Mars"}, {Text: "Mercury"}, {Text: "Earth"}},
					CorrectOptionIndex: 2,
					TimeLimitSeconds:   30,
					Points:             1000,
				},
			},
		},
	}
}
