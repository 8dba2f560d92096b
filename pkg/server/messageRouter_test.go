package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/webhook-relay/pkg/chatwoot"
	"github.com/zoff-tech/webhook-relay/pkg/store"
)

func TestSendMessage_Queued(t *testing.T) {
	jobs := &fakeJobStore{}
	handler := newTestServer(jobs, &fakeTargetStore{})

	body := []byte(`{"phone_number":"+5511999998888","content":"hello","contact_name":"Maria"}`)
	rec := doRequest(t, handler, http.MethodPost, "/api/chatwoot/send", body, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID          string `json:"id"`
			PhoneNumber string `json:"phone_number"`
			MessageType string `json:"message_type"`
			Status      string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "+5511999998888", resp.Data.PhoneNumber)
	assert.Equal(t, chatwoot.TypeOutgoing, resp.Data.MessageType)
	assert.Equal(t, "pending", resp.Data.Status)

	job := jobs.lastEnqueued()
	assert.Equal(t, chatwoot.MessageQueue, job.Queue)
	assert.Empty(t, job.TargetID)

	var msg chatwoot.Message
	require.NoError(t, json.Unmarshal(job.Payload, &msg))
	assert.Equal(t, "+5511999998888", msg.PhoneNumber)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "Maria", msg.ContactName)
}

func TestSendMessage_AsNote(t *testing.T) {
	jobs := &fakeJobStore{}
	handler := newTestServer(jobs, &fakeTargetStore{})

	body := []byte(`{"phone_number":"+5511999998888","content":"check this","message_type":"note"}`)
	rec := doRequest(t, handler, http.MethodPost, "/api/chatwoot/send", body, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg chatwoot.Message
	require.NoError(t, json.Unmarshal(jobs.lastEnqueued().Payload, &msg))
	assert.Equal(t, chatwoot.TypeNote, msg.MessageType)
	assert.True(t, msg.Private())
}

func TestSendMessage_InvalidPhone(t *testing.T) {
	handler := newTestServer(&fakeJobStore{}, &fakeTargetStore{})

	body := []byte(`{"phone_number":"not-a-number","content":"hello"}`)
	rec := doRequest(t, handler, http.MethodPost, "/api/chatwoot/send", body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessage_MissingContent(t *testing.T) {
	handler := newTestServer(&fakeJobStore{}, &fakeTargetStore{})

	body := []byte(`{"phone_number":"+5511999998888"}`)
	rec := doRequest(t, handler, http.MethodPost, "/api/chatwoot/send", body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessage_InvalidMessageType(t *testing.T) {
	handler := newTestServer(&fakeJobStore{}, &fakeTargetStore{})

	body := []byte(`{"phone_number":"+5511999998888","content":"x","message_type":"broadcast"}`)
	rec := doRequest(t, handler, http.MethodPost, "/api/chatwoot/send", body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendNote_Queued(t *testing.T) {
	jobs := &fakeJobStore{}
	handler := newTestServer(jobs, &fakeTargetStore{})

	body := []byte(`{"to":"5511999998888","content":"template text","content_type":"input_csat","template_params":{"name":"order_update"}}`)
	rec := doRequest(t, handler, http.MethodPost, "/api/chatwoot/send-note", body, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg chatwoot.Message
	require.NoError(t, json.Unmarshal(jobs.lastEnqueued().Payload, &msg))
	assert.Equal(t, "5511999998888", msg.PhoneNumber)
	assert.Equal(t, chatwoot.TypeNote, msg.MessageType)
	assert.Equal(t, "input_csat", msg.ContentType)
	assert.JSONEq(t, `{"name":"order_update"}`, string(msg.TemplateParams))
}

func TestSendNote_RejectsNonNumeric(t *testing.T) {
	handler := newTestServer(&fakeJobStore{}, &fakeTargetStore{})

	body := []byte(`{"to":"+5511999998888","content":"x"}`)
	rec := doRequest(t, handler, http.MethodPost, "/api/chatwoot/send-note", body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageStatus(t *testing.T) {
	jobs := &fakeJobStore{counts: map[store.Status]int64{
		store.StatusPending: 1,
		store.StatusFailed:  2,
	}}
	handler := newTestServer(jobs, &fakeTargetStore{})

	rec := doRequest(t, handler, http.MethodGet, "/api/chatwoot/status", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts["pending"])
	assert.Equal(t, int64(2), counts["failed"])
}
