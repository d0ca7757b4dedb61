package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"modguard/backend/internal/api/handler"
	"modguard/backend/internal/events"
	"modguard/backend/internal/models"
	"modguard/backend/internal/report"
	"modguard/backend/internal/reputation"
	"modguard/backend/internal/storage"
	"modguard/backend/internal/telegram"
	"modguard/backend/internal/vote"
	"modguard/backend/internal/warning"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "modguarddb"),
		envOr("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect postgres")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ArchivedMessage{},
		&models.Reaction{},
		&models.Report{},
		&models.Warning{},
		&models.Vote{},
		&models.ChatMember{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	log.Info().Msg("database and redis connections established, migrations complete")
	return db, rdb
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if envOr("LOG_FORMAT", "console") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file loaded")
	}

	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	ledger := reputation.NewLedger(s)
	warnings := warning.NewAccumulator(s)
	reports := report.NewQueue(s)
	dispatcher := events.NewDispatcher(ledger, s)

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is not set")
	}

	// The vote manager and the bot reference each other: the manager
	// needs the bot's enforcer, the bot needs the manager for commands.
	// The enforcer only needs the raw API client, so it is built first.
	votes := vote.NewManager(s, vote.NewTimerScheduler(), nil, warnings, nil)
	botService, err := telegram.NewBotService(botToken, envOr("BOT_LANG", "en"), dispatcher, s, votes, reports, warnings, ledger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start telegram bot")
	}
	enforcer := telegram.NewEnforcer(botService.BotAPI)
	votes.Enforcer = enforcer
	votes.Members = enforcer

	go dispatcher.Run()
	go botService.Run()

	r := gin.Default()
	h := handler.NewHandler(s, reports, ledger, dispatcher)

	r.POST("/auth/login", h.Login)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api", h.AuthRequired())
	{
		api.GET("/reports", h.GetReports)
		api.POST("/reports/:id/resolve", h.ResolveReport)
		api.GET("/users/:id/stats", h.GetUserStats)
		api.GET("/votes/active", h.GetActiveVotes)
	}

	server := &http.Server{
		Addr:           ":" + envOr("HTTP_PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Info().Str("addr", server.Addr).Msg("starting http server")
	log.Fatal().Err(server.ListenAndServe()).Msg("http server stopped")
}
