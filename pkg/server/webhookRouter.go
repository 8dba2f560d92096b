package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/zoff-tech/webhook-relay/pkg/relay"
)

type targetRequest struct {
	Name              string `json:"name" validate:"required"`
	URL               string `json:"url" validate:"required,url"`
	Active            *bool  `json:"is_active"`
	VerificationToken string `json:"verification_token"`
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.targets.List(r.Context())
	if err != nil {
		log.Printf("Error fetching webhooks: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch webhooks")
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Name and URL are required")
		return
	}

	target, err := s.targets.Create(r.Context(), req.Name, req.URL, req.VerificationToken)
	if err != nil {
		log.Printf("Error creating webhook: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create webhook")
		return
	}
	writeJSON(w, http.StatusCreated, target)
}

func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Name and URL are required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	target, err := s.targets.Update(r.Context(), id, req.Name, req.URL, active, req.VerificationToken)
	if err != nil {
		log.Printf("Error updating webhook %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update webhook")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "Webhook not found")
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := s.targets.Delete(r.Context(), id)
	if err != nil {
		log.Printf("Error deleting webhook %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete webhook")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Webhook not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRecentReceived(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 10)
	received, err := s.targets.RecentReceived(r.Context(), limit)
	if err != nil {
		log.Printf("Error fetching received webhooks: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch received webhooks")
		return
	}
	writeJSON(w, http.StatusOK, received)
}

func (s *Server) handleWebhookStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.jobs.CountsByStatus(r.Context(), relay.WebhookQueue)
	if err != nil {
		log.Printf("Error fetching job counts: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch job counts")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func queryLimit(r *http.Request, fallback int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
