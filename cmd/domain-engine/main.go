package main

import (
	"errors"
	"log"

	"github.com/nats-io/nats.go"
	"github.com/crewboard/platform/internal/app/domainengine"
	"github.com/crewboard/platform/internal/platform/config"
	"github.com/crewboard/platform/internal/platform/natsutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	client, err := natsutil.ConnectJetStreamWithRetry(cfg.NATSURL, cfg.NATSTimeout)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	publisher := natsutil.JetStreamPublisher{JS: client.JS}
	service := domainengine.NewService(publisher.Publish)

	sub, err := client.JS.QueueSubscribe("ops.command.>", "domain-engine", func(msg *nats.Msg) {
		if err := service.Handle(msg.Subject, msg.Data); err != nil {
			if errors.Is(err, domainengine.ErrInvalidCommandPayload) {
				log.Printf("discarding invalid command payload: %v", err)
				_ = msg.Term()
				return
			}
			if errors.Is(err, domainengine.ErrUnsupportedCommandAction) {
				log.Printf("discarding unsupported command action: %v", err)
				_ = msg.Term()
				return
			}
			log.Printf("command processing failed: %v", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.ManualAck())
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Domain Engine listening on subject:", sub.Subject)

	// Keep alive
	select {}
}
