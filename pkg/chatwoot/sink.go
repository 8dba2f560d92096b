package chatwoot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zoff-tech/webhook-relay/pkg/store"
)

// Sink delivers chatwoot-queue jobs through the API client. Jobs on this
// queue carry no target reference; the backend is fixed by configuration.
type Sink struct {
	client *Client
}

func NewSink(client *Client) *Sink {
	return &Sink{client: client}
}

func (s *Sink) Attempt(ctx context.Context, job *store.Job, _ *store.Target) error {
	var msg Message
	if err := json.Unmarshal(job.Payload, &msg); err != nil {
		return fmt.Errorf("invalid message payload: %w", err)
	}
	return s.client.SendMessage(ctx, &msg)
}
