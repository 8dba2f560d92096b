package relay

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/zoff-tech/webhook-relay/pkg/store"
)

// WebhookQueue is the retry-queue name for forwarded webhooks.
const WebhookQueue = "webhook"

const passthroughTimeout = 30 * time.Second

// Forwarder turns inbound events into webhook-queue jobs, one per active
// target.
type Forwarder struct {
	jobs    store.JobStore
	targets store.TargetStore
	client  *http.Client
}

func NewForwarder(jobs store.JobStore, targets store.TargetStore) *Forwarder {
	return &Forwarder{
		jobs:    jobs,
		targets: targets,
		client:  &http.Client{Timeout: passthroughTimeout},
	}
}

// Ingest saves the raw payload for auditing and enqueues one job per active
// target. It returns the number of jobs created. A failure to save the raw
// payload or to enqueue for one target never blocks the others.
func (f *Forwarder) Ingest(ctx context.Context, payload []byte) (int, error) {
	targets, err := f.targets.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := f.targets.SaveReceived(ctx, payload); err != nil {
		// The audit log is best effort; job creation is the main goal.
		log.Printf("Error saving received webhook: %v", err)
	}

	created := 0
	for _, target := range targets {
		if _, err := f.jobs.Enqueue(ctx, WebhookQueue, target.ID, payload); err != nil {
			log.Printf("Error creating job for %s: %v", target.Name, err)
			continue
		}
		created++
		log.Printf("Job created for %s (%s)", target.Name, target.URL)
	}

	log.Printf("Webhook received and %d jobs created for forwarding", created)
	return created, nil
}

// PassthroughResponse carries a synchronously forwarded GET response back to
// the caller.
type PassthroughResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// ForwardGet forwards a GET request to the first active target and returns
// its response verbatim.
func (f *Forwarder) ForwardGet(ctx context.Context, path string, query url.Values, header http.Header) (*PassthroughResponse, error) {
	targets, err := f.targets.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errors.New("no active webhooks configured")
	}
	target := targets[0]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL+path, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = query.Encode()
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("X-Forwarded-By", "Webhook-Relay")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("Error forwarding GET request to %s: %v", target.Name, err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &PassthroughResponse{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
