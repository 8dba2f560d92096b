// Package ingress feeds inbound events from optional broker backends into
// the webhook fan-out, alongside the always-on HTTP endpoint.
package ingress

import (
	"context"
	"fmt"

	"github.com/zoff-tech/webhook-relay/pkg/config"
)

// Handler receives the raw payload of one inbound event.
type Handler func(ctx context.Context, payload []byte)

// Source consumes inbound events from a broker and hands each payload to
// the handler.
type Source interface {
	// Run blocks consuming messages until the context is canceled.
	Run(ctx context.Context, handle Handler) error
	// Close cleans up any resources (connections).
	Close() error
}

// NewSource builds the configured ingress source. An empty type means no
// broker ingress is configured and returns nil.
func NewSource(ctx context.Context, cfg *config.IngressSettings) (Source, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "rabbitmq":
		return newRabbitMqSource(cfg)
	case "gcp-pubsub":
		return newPubSubSource(ctx, cfg)
	case "redis":
		return newRedisSource(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported ingress type: %s", cfg.Type)
	}
}
