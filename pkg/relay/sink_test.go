package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/webhook-relay/pkg/store"
)

func TestSinkAttempt_ForwardsPayloadAndHeaders(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewSink()
	job := &store.Job{ID: "job-1", Queue: WebhookQueue, Payload: []byte(`{"entry":[]}`), AttemptCount: 2}
	target := &store.Target{ID: "t-1", URL: server.URL, Active: true, VerificationToken: "tok-1"}

	err := sink.Attempt(context.Background(), job, target)
	require.NoError(t, err)

	assert.Equal(t, []byte(`{"entry":[]}`), gotBody)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "Webhook-Relay-Worker", gotHeader.Get("X-Forwarded-By"))
	// The header announces the attempt in flight, not the count so far.
	assert.Equal(t, "3", gotHeader.Get("X-Attempt-Count"))
	assert.Equal(t, "tok-1", gotHeader.Get("X-Webhook-Token"))
}

func TestSinkAttempt_OmitsTokenHeaderWhenUnset(t *testing.T) {
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink := NewSink()
	job := &store.Job{ID: "job-1", Payload: []byte(`{}`)}
	target := &store.Target{ID: "t-1", URL: server.URL, Active: true}

	err := sink.Attempt(context.Background(), job, target)
	require.NoError(t, err)

	_, present := gotHeader["X-Webhook-Token"]
	assert.False(t, present)
}

func TestSinkAttempt_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewSink()
	job := &store.Job{ID: "job-1", Payload: []byte(`{}`)}
	target := &store.Target{ID: "t-1", URL: server.URL, Active: true}

	err := sink.Attempt(context.Background(), job, target)
	assert.EqualError(t, err, "non-success status code: 500")
}

func TestSinkAttempt_ConnectionErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	sink := NewSink()
	job := &store.Job{ID: "job-1", Payload: []byte(`{}`)}
	target := &store.Target{ID: "t-1", URL: server.URL, Active: true}

	err := sink.Attempt(context.Background(), job, target)
	assert.Error(t, err)
}

func TestSinkAttempt_NilTarget(t *testing.T) {
	sink := NewSink()
	job := &store.Job{ID: "job-1", Payload: []byte(`{}`)}

	err := sink.Attempt(context.Background(), job, nil)
	assert.Error(t, err)
}
