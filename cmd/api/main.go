package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"call-qa-go/internal/config"
	"call-qa-go/internal/llm"
	"call-qa-go/internal/logger"
	"call-qa-go/internal/pipeline"
	"call-qa-go/internal/server"
	"call-qa-go/internal/storage"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "call-qa-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer store.Close()
	log.WithField("db_path", cfg.DBPath).Info("database ready")

	var client llm.Client
	if cfg.UseMockLLM {
		log.Info("mock LLM mode ON")
		client = llm.Mock{}
	} else {
		client = llm.NewGemini(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	}

	pipe := pipeline.New(client, store)
	srv := server.New(store, pipe, cfg.UploadDir, cfg.BatchConcurrency)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}
