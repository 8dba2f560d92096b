// Package chatwoot delivers queued messages to a Chatwoot inbox, resolving
// the contact and conversation for each phone number on the way.
package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/zoff-tech/webhook-relay/pkg/config"
)

// mobileWithNinthDigit matches Brazilian mobile numbers carrying the extra
// leading 9 after the area code: 55 + area code + 9 + 8 digits.
var mobileWithNinthDigit = regexp.MustCompile(`^55\d{2}9\d{8}$`)

// Client is a minimal Chatwoot API client scoped to one account and inbox.
type Client struct {
	baseURL   string
	accountID int
	inboxID   int
	token     string
	http      *http.Client
}

func NewClient(cfg config.ChatwootSettings) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		accountID: cfg.AccountID,
		inboxID:   cfg.InboxID,
		token:     cfg.APIToken,
		http:      &http.Client{},
	}
}

type contact struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Identifier  string `json:"identifier"`
}

type conversation struct {
	ID             int `json:"id"`
	LastActivityAt int64 `json:"last_activity_at"`
	Meta           struct {
		Sender struct {
			ID int `json:"id"`
		} `json:"sender"`
	} `json:"meta"`
}

// SendMessage resolves the contact and an open conversation for the phone
// number, creating either as needed, then posts the message.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	contact, err := c.getOrCreateContact(ctx, msg.PhoneNumber, msg.ContactName)
	if err != nil {
		return err
	}

	conv, err := c.getOrCreateConversation(ctx, contact.ID)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"content":      msg.Content,
		"message_type": TypeOutgoing,
		"private":      msg.Private(),
	}
	if msg.ContentType != "" {
		payload["content_type"] = msg.ContentType
	}
	if len(msg.TemplateParams) > 0 {
		var params interface{}
		if err := json.Unmarshal(msg.TemplateParams, &params); err != nil {
			log.Printf("Failed to parse template_params: %v", err)
		} else {
			payload["template_params"] = params
		}
	}

	path := fmt.Sprintf("/api/v1/accounts/%d/conversations/%d/messages", c.accountID, conv)
	if err := c.post(ctx, path, payload, nil); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	log.Printf("Message sent to conversation %d (private: %t)", conv, msg.Private())
	return nil
}

// getOrCreateContact searches by the cleaned number, then retries with the
// Brazilian ninth digit added or removed, and finally creates the contact.
func (c *Client) getOrCreateContact(ctx context.Context, phoneNumber, name string) (*contact, error) {
	cleanNumber := strings.TrimPrefix(phoneNumber, "+")

	if found, err := c.searchContact(ctx, cleanNumber); err == nil && found != nil {
		return found, nil
	}

	var variant string
	if mobileWithNinthDigit.MatchString(cleanNumber) {
		variant = cleanNumber[:4] + cleanNumber[5:]
	} else if len(cleanNumber) >= 4 {
		variant = cleanNumber[:4] + "9" + cleanNumber[4:]
	}
	if variant != "" {
		if found, err := c.searchContact(ctx, variant); err == nil && found != nil {
			log.Printf("Contact found under number variant %s", variant)
			return found, nil
		}
	}

	log.Printf("Contact not found for %s, creating a new one", cleanNumber)
	return c.createContact(ctx, cleanNumber, name)
}

func (c *Client) searchContact(ctx context.Context, phoneNumber string) (*contact, error) {
	var result struct {
		Payload []contact `json:"payload"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%d/contacts/search?q=%s", c.accountID, url.QueryEscape(phoneNumber))
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	if len(result.Payload) == 0 {
		return nil, nil
	}

	for i := range result.Payload {
		if result.Payload[i].PhoneNumber == phoneNumber || result.Payload[i].Identifier == phoneNumber {
			return &result.Payload[i], nil
		}
	}
	return &result.Payload[0], nil
}

func (c *Client) createContact(ctx context.Context, phoneNumber, name string) (*contact, error) {
	if name == "" {
		name = "Unknown"
	}
	body := map[string]interface{}{
		"name":         name,
		"identifier":   phoneNumber,
		"phone_number": phoneNumber,
		"custom_attributes": map[string]string{
			"source": "webhook-relay",
		},
	}

	var result struct {
		Payload struct {
			Contact contact `json:"contact"`
		} `json:"payload"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%d/contacts", c.accountID)
	if err := c.post(ctx, path, body, &result); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return &result.Payload.Contact, nil
}

// getOrCreateConversation returns the contact's most recently active open
// conversation, creating a new one when none exists.
func (c *Client) getOrCreateConversation(ctx context.Context, contactID int) (int, error) {
	conversations, err := c.openConversations(ctx, contactID)
	if err != nil {
		log.Printf("Error fetching conversations: %v", err)
		conversations = nil
	}

	if len(conversations) > 0 {
		sort.Slice(conversations, func(i, j int) bool {
			return conversations[i].LastActivityAt > conversations[j].LastActivityAt
		})
		return conversations[0].ID, nil
	}

	return c.createConversation(ctx, contactID)
}

func (c *Client) openConversations(ctx context.Context, contactID int) ([]conversation, error) {
	var result struct {
		Data struct {
			Payload []conversation `json:"payload"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%d/conversations?inbox_id=%d&status=open", c.accountID, c.inboxID)
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}

	var matched []conversation
	for _, conv := range result.Data.Payload {
		if conv.Meta.Sender.ID == contactID {
			matched = append(matched, conv)
		}
	}
	return matched, nil
}

func (c *Client) createConversation(ctx context.Context, contactID int) (int, error) {
	body := map[string]interface{}{
		"source_id":  nil,
		"inbox_id":   c.inboxID,
		"contact_id": contactID,
	}

	var result struct {
		ID int `json:"id"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%d/conversations", c.accountID)
	if err := c.post(ctx, path, body, &result); err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}
	log.Printf("New conversation created with ID %d", result.ID)
	return result.ID, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chatwoot returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
