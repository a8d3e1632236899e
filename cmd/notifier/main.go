package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/crewboard/platform/internal/app/identity"
	"github.com/crewboard/platform/internal/app/notify"
	"github.com/crewboard/platform/internal/platform/config"
	"github.com/crewboard/platform/internal/platform/dbpool"
	"github.com/crewboard/platform/internal/platform/natsutil"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.NotifyWebhookURL == "" {
		log.Fatal("notify_webhook_url is not configured")
	}

	pool, err := dbpool.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	identityRepo := identity.NewPostgresRepository(pool)
	if err := waitForIdentitySchema(ctx, identityRepo, 30*time.Second); err != nil {
		log.Fatal(err)
	}

	dispatcher := notify.NewDispatcher(cfg.NotifyWebhookURL, identityRepo, cfg.NotifyTimeout)

	client, err := natsutil.ConnectJetStreamWithRetry(cfg.NATSURL, cfg.NATSTimeout)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	sub, err := client.JS.QueueSubscribe("ops.event.>", "notifier", func(msg *nats.Msg) {
		handleCtx, cancel := context.WithTimeout(ctx, cfg.NotifyTimeout+time.Second)
		defer cancel()
		if err := dispatcher.Handle(handleCtx, msg.Data); err != nil {
			if errors.Is(err, notify.ErrInvalidEventPayload) {
				log.Printf("discarding invalid event payload: %v", err)
				_ = msg.Term()
				return
			}
			log.Printf("notification handling failed: %v", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.ManualAck())
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Notifier listening on subject:", sub.Subject)

	// Keep alive
	select {}
}

func waitForIdentitySchema(ctx context.Context, repo *identity.PostgresRepository, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = repo.EnsureSchema(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		log.Printf("waiting for identity schema readiness: %v", lastErr)
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}
