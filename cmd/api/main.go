// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/config"
	"github.com/sahwira-ai/sahwira/internal/handler"
	"github.com/sahwira-ai/sahwira/internal/llm"
	natsclient "github.com/sahwira-ai/sahwira/internal/nats"
	"github.com/sahwira-ai/sahwira/internal/service"
	"github.com/sahwira-ai/sahwira/internal/store/memory"
	"github.com/sahwira-ai/sahwira/internal/store/mongodb"
	"github.com/sahwira-ai/sahwira/internal/voice"
	"github.com/sahwira-ai/sahwira/pkg/logger"
	"github.com/sahwira-ai/sahwira/pkg/tracing"
)

type stores struct {
	tasks         service.TaskStore
	conversations service.ConversationStore
	users         service.UserStore
	ping          handler.Pinger
	close         func(context.Context) error
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server", zap.String("store", cfg.StoreDriver))

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "sahwira-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer st.close(context.Background())

	checks := map[string]handler.Pinger{"store": st.ping}

	// Domain events are optional; without NATS they are dropped.
	var events service.EventPublisher = service.NopPublisher{}
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		publisher := natsclient.NewEventPublisher(natsClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		events = publisher
		checks["nats"] = natsClient
	}

	var llmClient llm.Client
	if key := cfg.APIKey(cfg.LLMProvider); key != "" {
		llmClient, err = llm.NewClient(llm.Provider(cfg.LLMProvider), key)
		if err != nil {
			log.Warn("failed to create LLM client, LLM features disabled", zap.Error(err))
			llmClient = nil
		}
	} else {
		log.Warn("no API key for LLM provider, LLM features disabled", zap.String("provider", cfg.LLMProvider))
	}

	var (
		transcriber voice.Transcriber
		synthesizer voice.Synthesizer
	)
	audio, err := voice.NewClient(voice.Config{
		Provider:           cfg.VoiceProvider,
		APIKey:             cfg.APIKey(cfg.VoiceProvider),
		TranscriptionModel: cfg.TranscriptionModel,
		SpeechModel:        cfg.SpeechModel,
		SpeechVoice:        cfg.SpeechVoice,
	})
	if err != nil {
		log.Warn("voice features disabled", zap.Error(err))
	} else {
		transcriber, synthesizer = audio, audio
	}

	// Initialize services
	assistant := service.NewAssistantService(llmClient, transcriber, synthesizer, cfg.LLMModel, log).
		WithFetcher(voice.NewFetcher(60 * time.Second))
	taskSvc := service.NewTaskService(st.tasks, events, log)
	extractionSvc := service.NewExtractionService(assistant, taskSvc, log)
	conversationSvc := service.NewConversationService(st.conversations, events, log)
	statsSvc := service.NewStatsService(st.users, st.tasks, st.conversations, cfg.AdminEmail, log)
	userSvc := service.NewUserService(st.users, events, log)

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:           cfg.JWTSecret,
		AdminEmail:          cfg.AdminEmail,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
		RateLimitRequests:   cfg.RateLimitRequests,
		RateLimitWindow:     cfg.RateLimitWindow,
		AIRateLimitRequests: cfg.AIRateLimitRequests,
		AIRateLimitWindow:   cfg.AIRateLimitWindow,
		Health:              handler.NewHealthHandler(checks),
		Users:               handler.NewUserHandler(userSvc, log),
		Tasks:               handler.NewTaskHandler(taskSvc, extractionSvc, log),
		Conversations:       handler.NewConversationHandler(conversationSvc, log),
		Stats:               handler.NewStatsHandler(statsSvc, log),
		AI:                  handler.NewAIHandler(assistant, log),
		Stream:              handler.NewStreamHandler(assistant, log),
		Logger:              log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "memory":
		tasks := memory.NewTaskStore()
		return &stores{
			tasks:         tasks,
			conversations: memory.NewConversationStore(),
			users:         memory.NewUserStore(),
			ping:          tasks,
			close:         func(context.Context) error { return nil },
		}, nil
	case "mongo", "mongodb":
		connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
		defer cancel()

		db, err := mongodb.Connect(connectCtx, mongodb.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  cfg.MongoTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(connectCtx); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return &stores{
			tasks:         db.Tasks(),
			conversations: db.Conversations(),
			users:         db.Users(),
			ping:          db,
			close:         db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
