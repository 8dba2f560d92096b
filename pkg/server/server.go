// Package server exposes the HTTP surface of the relay: the inbound
// webhook endpoint, the target-administration API and the chat message API.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zoff-tech/webhook-relay/pkg/config"
	"github.com/zoff-tech/webhook-relay/pkg/relay"
	"github.com/zoff-tech/webhook-relay/pkg/store"
)

// ingestTimeout bounds the asynchronous fan-out triggered by an already
// acknowledged inbound event.
const ingestTimeout = 30 * time.Second

type Server struct {
	forwarder   *relay.Forwarder
	jobs        store.JobStore
	targets     store.TargetStore
	validate    *validator.Validate
	verifyToken string
}

func New(forwarder *relay.Forwarder, jobs store.JobStore, targets store.TargetStore, cfg config.ServerSettings) *Server {
	return &Server{
		forwarder:   forwarder,
		jobs:        jobs,
		targets:     targets,
		validate:    validator.New(),
		verifyToken: cfg.VerifyToken,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public: Meta webhook handshake and event intake.
	mux.HandleFunc("GET /webhook", s.handleVerify)
	mux.HandleFunc("POST /webhook", s.handleReceive)

	// Synchronous GET pass-through to the first active target.
	mux.HandleFunc("GET /forward/", s.requireToken(s.handleForwardGet))

	// Target administration.
	mux.HandleFunc("GET /api/webhooks", s.requireToken(s.handleListTargets))
	mux.HandleFunc("POST /api/webhooks", s.requireToken(s.handleCreateTarget))
	mux.HandleFunc("PUT /api/webhooks/{id}", s.requireToken(s.handleUpdateTarget))
	mux.HandleFunc("DELETE /api/webhooks/{id}", s.requireToken(s.handleDeleteTarget))
	mux.HandleFunc("GET /api/received", s.requireToken(s.handleRecentReceived))
	mux.HandleFunc("GET /api/status", s.requireToken(s.handleWebhookStatus))

	// Chat message API.
	mux.HandleFunc("POST /api/chatwoot/send", s.requireToken(s.handleSendMessage))
	mux.HandleFunc("POST /api/chatwoot/send-note", s.requireToken(s.handleSendNote))
	mux.HandleFunc("GET /api/chatwoot/messages", s.requireToken(s.handleRecentMessages))
	mux.HandleFunc("GET /api/chatwoot/status", s.requireToken(s.handleMessageStatus))

	return mux
}

// handleVerify answers the Meta-style subscription handshake.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "" || token == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if mode != "subscribe" || token != s.verifyToken {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	log.Printf("Webhook verified successfully")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// handleReceive acknowledges immediately; the fan-out happens after the
// response so a slow store never delays the caller.
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil || len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "empty body")
		return
	}
	if !json.Valid(payload) {
		writeError(w, http.StatusBadRequest, "body must be JSON")
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		if _, err := s.forwarder.Ingest(ctx, payload); err != nil {
			log.Printf("Error forwarding: %v", err)
		}
	}()
}

func (s *Server) handleForwardGet(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/forward")

	resp, err := s.forwarder.ForwardGet(r.Context(), path, r.URL.Query(), r.Header)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
