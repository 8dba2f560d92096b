// Package relay implements the inbound-webhook side of the service: the
// fan-out of received events into the webhook queue and the HTTP sink that
// forwards each job to its configured target.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zoff-tech/webhook-relay/pkg/store"
)

const forwardedByHeader = "Webhook-Relay-Worker"

// Sink delivers webhook jobs by POSTing their payload to the target URL.
type Sink struct {
	client *http.Client
}

// NewSink builds a forwarding sink. The per-attempt timeout is enforced by
// the worker through the request context.
func NewSink() *Sink {
	return &Sink{client: &http.Client{}}
}

func (s *Sink) Attempt(ctx context.Context, job *store.Job, target *store.Target) error {
	if target == nil {
		return errors.New("no target resolved for webhook job")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-By", forwardedByHeader)
	req.Header.Set("X-Attempt-Count", strconv.Itoa(job.AttemptCount+1))
	if target.VerificationToken != "" {
		req.Header.Set("X-Webhook-Token", target.VerificationToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-success status code: %d", resp.StatusCode)
	}
	return nil
}
