package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/cmd/mainconfig"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/api/router"
	appconfig "github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/config"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/conversation"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/notify"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/observability/metrics"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/webchat"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting amplifyx-intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Lead storage: Postgres when configured, in-memory otherwise.
	var leadsRepo leads.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		leadsRepo = leads.NewPostgresRepository(pool)
		logger.Info("using postgres lead repository")
	} else {
		leadsRepo = leads.NewInMemoryRepository()
		logger.Warn("DATABASE_URL not set, leads are stored in memory only")
	}

	// Transcript archive: optional, Redis-backed.
	var transcripts *conversation.TranscriptStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transcripts = conversation.NewTranscriptStore(redis.NewClient(opts))
		logger.Info("transcript archiving enabled", "addr", cfg.RedisAddr)
	}

	// Model backends: OpenAI primary, Gemini fallback. With neither key the
	// assistant runs in unavailable mode and the rest of the API still works.
	var openaiClient *openai.Client
	var llm conversation.LLMClient
	provider := "none"
	if cfg.OpenAIAPIKey != "" {
		openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
		llm = conversation.NewOpenAILLMClient(openaiClient, cfg.OpenAIModel)
		provider = "openai"
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini client unavailable", "error", err)
		} else if llm != nil {
			llm = conversation.NewFallbackLLMClient(llm, gemini, logger)
			provider = "openai+gemini"
		} else {
			llm = gemini
			provider = "gemini"
		}
	}

	initialPhase := conversation.PhaseCollecting
	if llm == nil {
		initialPhase = conversation.PhaseUnavailable
		logger.Warn("no LLM API key configured, assistant is unavailable")
	}

	// Knowledge retrieval shares the OpenAI client for embeddings.
	var augmenter *conversation.Augmenter
	if cfg.RetrievalEnabled && openaiClient != nil && cfg.KnowledgeFile != "" {
		store := conversation.NewEmbeddingKnowledgeStore(openaiClient, cfg.OpenAIEmbeddingModel, logger)
		docs, err := loadKnowledgeDocs(cfg.KnowledgeFile)
		if err != nil {
			logger.Warn("failed to load knowledge file", "path", cfg.KnowledgeFile, "error", err)
		} else if err := store.AddDocuments(ctx, docs); err != nil {
			logger.Warn("failed to embed knowledge documents", "error", err)
		} else {
			augmenter = conversation.NewAugmenter(store, cfg.RetrievalMinSimilarity, cfg.RetrievalMaxChunks, logger)
			logger.Info("knowledge retrieval enabled", "documents", len(docs))
		}
	}

	// Lead alert email: SendGrid, SES, or a log-only stub.
	var emailSender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			emailSender = sender
		}
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
		}, logger); sender != nil {
			emailSender = sender
		}
	}
	if emailSender == nil {
		emailSender = notify.NewStubEmailSender(logger)
	}
	notifier := notify.NewService(emailSender, cfg.NotifyRecipient, logger)

	var sheetsFallback *leads.SheetsWebhook
	if cfg.SheetsWebhookURL != "" {
		sheetsFallback = leads.NewSheetsWebhook(cfg.SheetsWebhookURL, logger)
	}

	intakeMetrics := metrics.NewIntakeMetrics(nil)

	submitter := conversation.NewSubmitter(conversation.SubmitterConfig{
		Repo:     leadsRepo,
		Fallback: sheetsFallback,
		Backup:   leads.NewBackupWriter(cfg.BackupPath, logger),
		Notifier: notifier,
		Metrics:  intakeMetrics,
		Logger:   logger,
	})

	sessions := conversation.NewManager(conversation.ManagerConfig{
		IdleTimeout: cfg.SessionIdleTimeout,
	}, initialPhase)

	engine := conversation.NewEngine(conversation.EngineConfig{
		LLM:                llm,
		Provider:           provider,
		Model:              cfg.OpenAIModel,
		MaxTokens:          int32(cfg.LLMMaxTokens),
		Temperature:        float32(cfg.LLMTemperature),
		HistoryWindow:      cfg.HistoryWindow,
		MessagesPerMinute:  cfg.MessagesPerMinute,
		MessagesPerSession: cfg.MessagesPerSession,
		Augmenter:          augmenter,
		Submitter:          submitter,
		Sessions:           sessions,
		Transcript:         transcripts,
		Metrics:            intakeMetrics,
		Logger:             logger,
	})

	chatHandler := webchat.NewHandler(engine, webchat.WidgetJS, logger)
	leadsHandler := leads.NewHandler(leadsRepo, logger)

	r := router.New(&router.Config{
		Logger:                 logger,
		ChatHandler:            chatHandler,
		LeadsHandler:           leadsHandler,
		MetricsHandler:         promhttp.Handler(),
		CORSAllowedOrigins:     cfg.CORSAllowedOrigins,
		ChatRateLimitPerMinute: cfg.HTTPRateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// loadKnowledgeDocs reads the company knowledge base from a JSON file holding
// an array of documents.
func loadKnowledgeDocs(path string) ([]conversation.KnowledgeDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	var docs []conversation.KnowledgeDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse knowledge file: %w", err)
	}
	return docs, nil
}
