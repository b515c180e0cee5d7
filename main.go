package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrade/config"
	"papertrade/database"
	"papertrade/handlers"
	"papertrade/lookup"
	"papertrade/service"
	"papertrade/session"
	"papertrade/web"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("Invalid LOG_LEVEL: ", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{})
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance: ", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	rdb, err := config.OpenRedis(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer rdb.Close()

	views, err := web.Templates()
	if err != nil {
		log.Fatal("Failed to parse templates: ", err)
	}

	store := database.NewStore(db)
	prices := lookup.NewClient(cfg.QuoteBaseURL, cfg.APIKey, cfg.QuoteTimeout)
	trading := service.NewTrading(store, prices, cfg.StartingCash)
	sessions := session.NewStore(rdb, cfg.SessionSecret, cfg.SessionTTL)

	h := handlers.New(trading, sessions, store, cfg.SecureCookies)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.NewRouter(h, views),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: ", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
