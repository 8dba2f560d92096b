package ingress

import (
	"context"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/zoff-tech/webhook-relay/pkg/config"
)

// PubSubSourceCreator defines a function type for creating Pub/Sub sources.
type PubSubSourceCreator func(ctx context.Context, cfg *config.IngressSettings, opts ...option.ClientOption) (Source, error)

// NewPubSubSource is the default implementation of PubSubSourceCreator.
var NewPubSubSource PubSubSourceCreator = func(ctx context.Context, cfg *config.IngressSettings, opts ...option.ClientOption) (Source, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}
	return &pubSubSource{client: client, subscription: cfg.SubscriptionID}, nil
}

func newPubSubSource(ctx context.Context, cfg *config.IngressSettings) (Source, error) {
	return NewPubSubSource(ctx, cfg)
}

type pubSubSource struct {
	client       *pubsub.Client
	subscription string
}

func (p *pubSubSource) Run(ctx context.Context, handle Handler) error {
	sub := p.client.Subscription(p.subscription)
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		handle(ctx, msg.Data)
		msg.Ack()
	})
}

func (p *pubSubSource) Close() error {
	return p.client.Close()
}
