package server

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"

	"github.com/zoff-tech/webhook-relay/pkg/chatwoot"
	"github.com/zoff-tech/webhook-relay/pkg/store"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

type sendRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Content     string `json:"content" validate:"required"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=outgoing note"`
	ContactName string `json:"contact_name"`
}

type sendNoteRequest struct {
	To             string          `json:"to" validate:"required,number"`
	Content        string          `json:"content" validate:"required"`
	ContentType    string          `json:"content_type"`
	TemplateParams json.RawMessage `json:"template_params"`
	ContactName    string          `json:"contact_name"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "phone_number and content are required")
		return
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		writeError(w, http.StatusBadRequest, "Invalid phone number format. Use E.164 format (e.g., +5511999998888)")
		return
	}

	messageType := chatwoot.TypeOutgoing
	if req.MessageType == chatwoot.TypeNote {
		messageType = chatwoot.TypeNote
	}

	s.enqueueMessage(w, r, &chatwoot.Message{
		PhoneNumber: req.PhoneNumber,
		ContactName: req.ContactName,
		Content:     req.Content,
		MessageType: messageType,
	})
}

func (s *Server) handleSendNote(w http.ResponseWriter, r *http.Request) {
	var req sendNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "to and content are required, and to may contain only digits")
		return
	}

	s.enqueueMessage(w, r, &chatwoot.Message{
		PhoneNumber:    req.To,
		ContactName:    req.ContactName,
		Content:        req.Content,
		MessageType:    chatwoot.TypeNote,
		ContentType:    req.ContentType,
		TemplateParams: req.TemplateParams,
	})
}

func (s *Server) enqueueMessage(w http.ResponseWriter, r *http.Request, msg *chatwoot.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to queue message")
		return
	}

	job, err := s.jobs.Enqueue(r.Context(), chatwoot.MessageQueue, "", payload)
	if err != nil {
		log.Printf("Error creating chat message job: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to queue message")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Message queued successfully",
		"data": map[string]interface{}{
			"id":           job.ID,
			"phone_number": msg.PhoneNumber,
			"contact_name": msg.ContactName,
			"content":      msg.Content,
			"message_type": msg.MessageType,
			"status":       job.Status,
			"created_at":   job.CreatedAt,
		},
	})
}

func (s *Server) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20)
	status := store.Status(r.URL.Query().Get("status"))

	jobs, err := s.jobs.Recent(r.Context(), chatwoot.MessageQueue, limit, status)
	if err != nil {
		log.Printf("Error fetching chat messages: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleMessageStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.jobs.CountsByStatus(r.Context(), chatwoot.MessageQueue)
	if err != nil {
		log.Printf("Error fetching message counts: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch message counts")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
