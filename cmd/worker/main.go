package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/message-app/internal/config"
	"github.com/suPer8Hu/message-app/internal/db"
	"github.com/suPer8Hu/message-app/internal/message"
	"github.com/suPer8Hu/message-app/internal/observability"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

// worker audits message.sent events against the message store.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg := config.Load()
	logger := observability.NewJSONLogger(cfg.LogLevel)

	if cfg.RabbitURL == "" {
		log.Fatalf("RABBIT_URL is required")
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	svc := message.NewService(message.NewRepo(gdb), nil, nil, cfg.ChatContextWindowSize, logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", "queue", cfg.RabbitQueue, "concurrency", concurrency)

	deliveries := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wlog := logger.With("worker", workerID)
			for d := range deliveries {
				handleDelivery(ctx, wlog, svc, d)
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			close(deliveries)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				close(deliveries)
				wg.Wait()
				return
			}
			deliveries <- d
		}
	}
}

func handleDelivery(ctx context.Context, log *slog.Logger, svc *message.Service, d amqp.Delivery) {
	if d.Type != "" && d.Type != "message.sent" {
		log.Warn("unknown event type, dropping", "type", d.Type)
		_ = d.Nack(false, false)
		return
	}

	var ev message.SentEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		log.Warn("bad message.sent body", "error", err)
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	err := svc.VerifySentEvent(ctx, ev)
	switch {
	case errors.Is(err, message.ErrEventMismatch):
		log.Error("message.sent does not match store", "user", ev.User, "error", err)
		_ = d.Nack(false, false)
		return
	case err != nil:
		// store unavailable; let another delivery try
		log.Warn("verify message.sent failed", "user", ev.User, "cost", time.Since(start), "error", err)
		_ = d.Nack(false, true)
		return
	}

	log.Debug("message.sent verified", "user", ev.User,
		"user_message_id", ev.UserMessageID, "bot_message_id", ev.BotMessageID, "cost", time.Since(start))
	if err := d.Ack(false); err != nil {
		log.Warn("ack failed", "error", err)
	}
}
