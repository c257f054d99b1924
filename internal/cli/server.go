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

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-campaign-service/internal/app"
	"quiz-campaign-service/internal/config"
	"quiz-campaign-service/internal/domain"
	"quiz-campaign-service/internal/infra/fulfillment"
	"quiz-campaign-service/internal/infra/memory"
	"quiz-campaign-service/internal/infra/postgres"
	redisinfra "quiz-campaign-service/internal/infra/redis"
	transport "quiz-campaign-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz campaign server",
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
	sessionTTL := config.Duration(cfg.Redis.TTL, 2*time.Hour)
	questionTTL := config.Duration(cfg.Quiz.QuestionTTL, 10*time.Minute)

	var (
		campaigns    app.CampaignRepository
		participants app.ParticipantRepository
		gifts        app.GiftRepository
		analytics    app.AnalyticsRecorder
		loader       memory.QuestionLoader
		deleter      app.StaleAttemptDeleter
	)

	cleanupAge := config.Duration(cfg.Cleanup.MaxAge, 24*time.Hour)

	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pgParticipants := postgres.NewParticipantRepository(db)
		campaigns = postgres.NewCampaignRepository(db)
		participants = pgParticipants
		gifts = postgres.NewGiftRepository(db)
		analytics = postgres.NewAnalyticsRepository(db)
		loader = postgres.NewQuestionLoader(pool)
		deleter = pgParticipants
	} else {
		log.Println("postgres not configured, running with the in-memory demo campaign")
		demo := demoCampaign()
		campaigns = memory.NewCampaignStore(demo)
		memParticipants := memory.NewParticipantStore()
		participants = memParticipants
		gifts = memory.NewGiftStore(demoGifts()...)
		analytics = memory.NewAnalyticsLog()
		loader = staticLoader{questions: map[int64][]domain.Question{demo.ID: demoQuestions()}}
		deleter = memParticipants
	}

	questionBank := memory.NewCachedQuestionBank(loader, questionTTL)

	var sessions app.SessionStore
	var sweeper app.SessionSweeper
	var events transport.EventSource
	var publisher app.EventPublisher
	if redisClient != nil {
		// redis sessions expire by TTL, no sweeper needed
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
		bus := redisinfra.NewEventBus(redisClient)
		events, publisher = bus, bus
	} else {
		memSessions := memory.NewSessionStore()
		sessions, sweeper = memSessions, memSessions
		bus := memory.NewEventBus()
		events, publisher = bus, bus
	}
	cleaner := app.NewCleaner(deleter, sweeper, cleanupAge)

	opts := []app.Option{
		app.WithCountryCode(cfg.Quiz.CountryCode),
		app.WithDeadlineGrace(config.Duration(cfg.Quiz.DeadlineGrace, 30*time.Second)),
		app.WithAnalytics(app.NewFanoutRecorder(analytics, publisher)),
	}
	if cfg.Fulfillment.WebhookURL != "" {
		opts = append(opts, app.WithFulfillment(fulfillment.NewWebhookNotifier(cfg.Fulfillment.WebhookURL)))
	}

	service := app.NewQuizService(campaigns, questionBank, participants, sessions, gifts, opts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service).Register(mux)
	mux.HandleFunc("/ws/live", transport.NewLiveFeedHandler(events).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	sweepCtx, stopSweeps := context.WithCancel(ctx)
	defer stopSweeps()
	if interval := config.Duration(cfg.Cleanup.Interval, 0); interval > 0 {
		go cleaner.Run(sweepCtx, interval)
	}

	go func() {
		log.Printf("starting quiz campaign service on :%s", finalPort)
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

type staticLoader struct {
	questions map[int64][]domain.Question
}

func (l staticLoader) LoadCampaignQuestions(_ context.Context, campaignID int64) ([]domain.Question, error) {
	return l.questions[campaignID], nil
}

// demoCampaign seeds a minimal campaign for running without Postgres.
func demoCampaign() domain.Campaign {
	now := time.Now()
	return domain.Campaign{
		ID:               1,
		Name:             "Demo campaign",
		StartsAt:         now.Add(-time.Hour),
		EndsAt:           now.Add(30 * 24 * time.Hour),
		QuestionsPerQuiz: 2,
		PassScore:        1,
		TimeLimit:        300,
		Randomize:        true,
		IsActive:         true,
	}
}

func demoQuestions() []domain.Question {
	return []domain.Question{
		{
			ID: 1, CampaignID: 1, Text: "Which vitamin is produced in the skin under sunlight?",
			Type: domain.SingleChoice, Points: 1, IsActive: true,
			Options: []domain.Option{
				{ID: 1, QuestionID: 1, Text: "Vitamin C"},
				{ID: 2, QuestionID: 1, Text: "Vitamin D", Correct: true},
				{ID: 3, QuestionID: 1, Text: "Vitamin B12"},
			},
		},
		{
			ID: 2, CampaignID: 1, Text: "Which of these are antibiotics?",
			Type: domain.MultipleChoice, Points: 1, IsActive: true,
			Options: []domain.Option{
				{ID: 4, QuestionID: 2, Text: "Amoxicillin", Correct: true},
				{ID: 5, QuestionID: 2, Text: "Paracetamol"},
				{ID: 6, QuestionID: 2, Text: "Azithromycin", Correct: true},
				{ID: 7, QuestionID: 2, Text: "Loratadine"},
			},
		},
	}
}

func demoGifts() []domain.Gift {
	qty := 100
	return []domain.Gift{
		{ID: 1, CampaignID: 1, Name: "Discount voucher", Value: "50000", MinScore: 1, MaxQuantity: &qty, CodePrefix: "DEMO"},
	}
}
