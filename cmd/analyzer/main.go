package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"github.com/PromptSentry/PromptSentry/pkg/analyzer"
	"github.com/PromptSentry/PromptSentry/pkg/config"
	"github.com/PromptSentry/PromptSentry/pkg/detectors/anonymizer"
	"github.com/PromptSentry/PromptSentry/pkg/detectors/injection"
	"github.com/PromptSentry/PromptSentry/pkg/detectors/semantic"
	"github.com/PromptSentry/PromptSentry/pkg/domain/embedding"
	domainRecognizer "github.com/PromptSentry/PromptSentry/pkg/domain/recognizer"
	handlers "github.com/PromptSentry/PromptSentry/pkg/handlers/http"
	infraCache "github.com/PromptSentry/PromptSentry/pkg/infra/cache"
	"github.com/PromptSentry/PromptSentry/pkg/infra/embedding/openai"
	infraLogger "github.com/PromptSentry/PromptSentry/pkg/infra/logger"
	infraRecognizer "github.com/PromptSentry/PromptSentry/pkg/infra/recognizer"
	"github.com/PromptSentry/PromptSentry/pkg/server"
)

func main() {
	ctx := context.Background()

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	client := &fasthttp.Client{
		MaxConnsPerHost:     100,
		MaxIdleConnDuration: 60 * time.Second,
	}

	var embedder embedding.Creator
	if cfg.Security.Semantic.Enabled && cfg.Security.Semantic.APIKey != "" {
		embedder = openai.NewOpenAIEmbeddingService(
			client,
			cfg.Security.Semantic.APIKey,
			cfg.Security.Semantic.Model,
			logger,
		)
	}

	var entityRecognizer domainRecognizer.Recognizer
	if cfg.Security.PII.Enabled && cfg.Security.PII.RecognizerURL != "" {
		entityRecognizer = infraRecognizer.NewHTTPRecognizer(client, cfg.Security.PII.RecognizerURL, logger)
	}

	injectionDetector, err := injection.NewDetector(injection.Config{
		Enabled:              cfg.Security.Injection.Enabled,
		SpecialCharThreshold: cfg.Security.Injection.SpecialCharThreshold,
	}, logger)
	if err != nil {
		logger.Fatalf("failed to initialize injection detector: %v", err)
	}

	semanticScorer, err := semantic.NewScorer(ctx, semantic.Config{
		Enabled:   cfg.Security.Semantic.Enabled,
		Threshold: cfg.Security.Semantic.Threshold,
	}, embedder, logger)
	if err != nil {
		logger.Fatalf("failed to initialize semantic scorer: %v", err)
	}

	mappingStore := infraCache.NewRedisStore(infraCache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	entityAnonymizer, err := anonymizer.NewAnonymizer(anonymizer.Config{
		Enabled:    cfg.Security.Anonymization.Enabled,
		MappingTTL: cfg.Security.Anonymization.MappingTTL,
	}, mappingStore, logger)
	if err != nil {
		logger.Fatalf("failed to initialize anonymizer: %v", err)
	}

	contentAnalyzer := analyzer.NewAnalyzer(
		&cfg.Security,
		injectionDetector,
		semanticScorer,
		entityAnonymizer,
		entityRecognizer,
		logger,
	)

	srv := server.NewAnalyzerServer(server.AnalyzerServerDI{
		HandlerTransport: handlers.HandlerTransport{
			CheckContentHandler: handlers.NewCheckContentHandler(logger, contentAnalyzer),
			HealthHandler:       handlers.NewHealthHandler(),
		},
		Config: cfg,
		Logger: logger,
	})

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
}
