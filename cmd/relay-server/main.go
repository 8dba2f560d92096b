package main

import (
	"context"
	"log"
	"net/http"

	"github.com/zoff-tech/webhook-relay/pkg/chatwoot"
	"github.com/zoff-tech/webhook-relay/pkg/config"
	"github.com/zoff-tech/webhook-relay/pkg/directory"
	"github.com/zoff-tech/webhook-relay/pkg/ingress"
	"github.com/zoff-tech/webhook-relay/pkg/queue"
	"github.com/zoff-tech/webhook-relay/pkg/relay"
	"github.com/zoff-tech/webhook-relay/pkg/server"
	"github.com/zoff-tech/webhook-relay/pkg/store"
	"github.com/zoff-tech/webhook-relay/pkg/telemetry"
)

func main() {
	ctx := context.Background()

	// Load configuration from file or environment
	cfg, err := config.LoadFromFile("./cmd/relay-server")
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	// Initialize telemetry (tracing)
	shutdownTelemetry, err := telemetry.Init(cfg.Observability)
	if err != nil {
		log.Fatal("Failed to initialize telemetry: ", err)
	}
	defer shutdownTelemetry()

	// Initialize the stores
	jobs, targets, err := store.NewStores(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize stores: ", err)
	}

	// Target directory cache: populated before the workers start, then
	// refreshed on a timer.
	cache := directory.NewCache(targets)
	if err := cache.Refresh(ctx); err != nil {
		log.Printf("Initial target directory load failed: %v (worker will retry)", err)
	}
	go cache.Run(ctx, cfg.Directory.RefreshInterval)

	// Webhook forwarding worker.
	webhookWorker := queue.NewWorker(relay.WebhookQueue, jobs, relay.NewSink(), cache, cfg.WebhookQueue)
	go webhookWorker.Run(ctx)

	// Chat message worker.
	chatwootClient := chatwoot.NewClient(cfg.Chatwoot)
	messageWorker := queue.NewWorker(chatwoot.MessageQueue, jobs, chatwoot.NewSink(chatwootClient), nil, cfg.MessageQueue)
	go messageWorker.Run(ctx)

	// Fan-out and optional broker ingress.
	forwarder := relay.NewForwarder(jobs, targets)
	source, err := ingress.NewSource(ctx, &cfg.Ingress)
	if err != nil {
		log.Fatal("Failed to initialize ingress source: ", err)
	}
	if source != nil {
		defer source.Close()
		go func() {
			if err := source.Run(ctx, func(ctx context.Context, payload []byte) {
				if _, err := forwarder.Ingest(ctx, payload); err != nil {
					log.Printf("Error forwarding broker event: %v", err)
				}
			}); err != nil {
				log.Printf("Ingress source stopped: %v", err)
			}
		}()
	}

	srv := server.New(forwarder, jobs, targets, cfg.Server)
	log.Printf("Server is running on %s", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Handler()); err != nil {
		log.Fatal("Server failed: ", err)
	}
}
