package ingress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/option"

	"github.com/zoff-tech/webhook-relay/pkg/config"
)

type mockSource struct{}

func (m *mockSource) Run(context.Context, Handler) error { return nil }

func (m *mockSource) Close() error { return nil }

func TestNewSource_EmptyTypeDisabled(t *testing.T) {
	source, err := NewSource(context.Background(), &config.IngressSettings{})
	assert.NoError(t, err)
	assert.Nil(t, source)
}

func TestNewSource_UnsupportedType(t *testing.T) {
	_, err := NewSource(context.Background(), &config.IngressSettings{Type: "kafka"})
	assert.EqualError(t, err, "unsupported ingress type: kafka")
}

func TestNewSource_PubSub(t *testing.T) {
	originalNewPubSubSource := NewPubSubSource
	NewPubSubSource = func(ctx context.Context, cfg *config.IngressSettings, opts ...option.ClientOption) (Source, error) {
		return &mockSource{}, nil
	}
	defer func() { NewPubSubSource = originalNewPubSubSource }()

	source, err := NewSource(context.Background(), &config.IngressSettings{
		Type:           "gcp-pubsub",
		ProjectID:      "test-project",
		SubscriptionID: "test-sub",
	})
	assert.NoError(t, err)
	assert.IsType(t, &mockSource{}, source)
}

func TestNewSource_Redis(t *testing.T) {
	source, err := NewSource(context.Background(), &config.IngressSettings{
		Type: "redis",
		URL:  "localhost:6379",
		Key:  "relay:inbound",
	})
	assert.NoError(t, err)
	assert.NotNil(t, source)
	assert.NoError(t, source.Close())
}
