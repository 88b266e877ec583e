package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pyquest-backend/internal/app"
	"pyquest-backend/internal/config"
	"pyquest-backend/internal/domain"
	"pyquest-backend/internal/infra/gemini"
	"pyquest-backend/internal/infra/memory"
	"pyquest-backend/internal/infra/postgres"
	infraredis "pyquest-backend/internal/infra/redis"
	"pyquest-backend/internal/logger"
	"pyquest-backend/internal/metrics"
	transport "pyquest-backend/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the scoring server",
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

	log := logger.New(cfg.Server.Mode)
	defer log.Sync()

	metrics.Init()

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

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	questionTTL := config.TTLDuration(cfg.Question.TTL, 10*time.Minute)

	var (
		questions app.QuestionStore
		answers   app.AnswerStore
		users     app.UserStore
	)
	if pool != nil {
		pgQuestions := postgres.NewQuestionStore(pool)
		if redisClient != nil {
			questions = infraredis.NewQuestionCache(redisClient, pgQuestions, questionTTL)
		} else {
			questions = memory.NewQuestionStore(pgQuestions, questionTTL)
		}
		answers = postgres.NewAnswerStore(pool)
		users = postgres.NewUserStore(pool)
	} else {
		// Demo mode: seeded in-memory stores, no persistence across restarts.
		log.Warn("postgres not configured, running on in-memory stores")
		questions = memory.NewQuestionStore(memory.NewStaticQuestionLoader(sampleQuestions()), questionTTL)
		answers = memory.NewAnswerStore()
		users = memory.NewUserStore(sampleUsers())
	}

	var judge app.Judge
	judgeOpts := []gemini.Option{}
	if cfg.Judge.BaseURL != "" {
		judgeOpts = append(judgeOpts, gemini.WithBaseURL(cfg.Judge.BaseURL))
	}
	if cfg.Judge.Model != "" {
		judgeOpts = append(judgeOpts, gemini.WithModel(cfg.Judge.Model))
	}
	judge = gemini.NewJudge(cfg.Judge.APIKey, judgeOpts...)

	judgeTimeout := config.TTLDuration(cfg.Judge.Timeout, app.DefaultJudgeTimeout)
	evaluator := app.NewEvaluator(questions, answers, judge, judgeTimeout)
	processor := app.NewBatchProcessor(evaluator, answers, users, log, cfg.Scoring.Concurrency)

	auth := transport.NewAuthService(cfg.Auth.JWTSecret)
	submitHandler := transport.NewSubmitHandler(processor, users, log)
	wsHandler := transport.NewWSHandler(processor, users, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/api/submit-answers",
		metrics.Middleware("/api/submit-answers", auth.Middleware(http.HandlerFunc(submitHandler.ServeSubmit))))
	mux.Handle("/api/use-hint",
		metrics.Middleware("/api/use-hint", auth.Middleware(http.HandlerFunc(submitHandler.ServeUseHint))))
	mux.Handle("/ws/submit", auth.Middleware(http.HandlerFunc(wsHandler.ServeWS)))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // batches wait on the judge
	}

	go func() {
		log.Info("starting scoring server", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds demo mode with one question per type.
func sampleQuestions() map[string]domain.Question {
	return map[string]domain.Question{
		"q-mcq-1": {
			ID:             "q-mcq-1",
			Type:           domain.MultipleChoice,
			Text:           "What does len(\"hello\") return?",
			CorrectAnswer:  "5",
			AvgTimeSeconds: 30,
		},
		"q-drag-1": {
			ID:             "q-drag-1",
			Type:           domain.DragAndDrop,
			Text:           "Order the lines to print numbers 0..2",
			CorrectAnswer:  `["for i in range(3):","    print(i)"]`,
			AvgTimeSeconds: 60,
		},
		"q-fill-1": {
			ID:             "q-fill-1",
			Type:           domain.FillInBlank,
			Text:           "The keyword to define a function in Python is _____",
			CorrectAnswer:  "def",
			AvgTimeSeconds: 20,
		},
		"q-code-1": {
			ID:             "q-code-1",
			Type:           domain.Coding,
			Text:           "Write a loop that prints each item of a list called fruits",
			CorrectAnswer:  "for fruit in fruits:\n    print(fruit)",
			Constraints:    "use a for loop",
			AvgTimeSeconds: 120,
		},
	}
}

func sampleUsers() map[string]domain.User {
	return map[string]domain.User{
		"demo": {SkillLevel: 2, Points: 100},
	}
}
