package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/suPer8Hu/message-app/internal/config"
	"github.com/suPer8Hu/message-app/internal/db"
	"github.com/suPer8Hu/message-app/internal/httpapi"
	"github.com/suPer8Hu/message-app/internal/message"
	"github.com/suPer8Hu/message-app/internal/observability"
	"github.com/suPer8Hu/message-app/internal/responder"
	"github.com/suPer8Hu/message-app/internal/store/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg := config.Load()
	logger := observability.NewJSONLogger(cfg.LogLevel)

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	repo := message.NewRepo(gdb)
	if err := repo.Migrate(); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Responder registry (RESPONDER selects one)
	reg := responder.NewRegistry()
	reg.Register("canned", func(ctx context.Context) (responder.Responder, error) {
		_ = ctx
		return responder.Canned{}, nil
	})
	reg.Register("ollama", func(ctx context.Context) (responder.Responder, error) {
		_ = ctx
		return responder.NewOllama(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	})
	resp, err := reg.Get(context.Background(), cfg.Responder)
	if err != nil {
		log.Fatalf("responder: %v", err)
	}

	var publisher message.Publisher
	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatalf("rabbit publisher: %v", err)
		}
		defer p.Close()
		publisher = p
	}

	svc := message.NewService(repo, resp, publisher, cfg.ChatContextWindowSize, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.WithCORS(httpapi.NewRouter(cfg, svc, logger), cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server started", "addr", cfg.ListenAddr, "responder", cfg.Responder, "events", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
