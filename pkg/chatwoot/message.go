package chatwoot

import "encoding/json"

// MessageQueue is the retry-queue name for outbound chat messages.
const MessageQueue = "chatwoot"

const (
	// TypeOutgoing is a public reply visible to the contact.
	TypeOutgoing = "outgoing"
	// TypeNote is a private note visible only to agents.
	TypeNote = "note"
)

// Message is the payload of one chatwoot-queue job.
type Message struct {
	PhoneNumber    string          `json:"phone_number" validate:"required,e164"`
	ContactName    string          `json:"contact_name,omitempty"`
	Content        string          `json:"content" validate:"required"`
	MessageType    string          `json:"message_type,omitempty"`
	ContentType    string          `json:"content_type,omitempty"`
	TemplateParams json.RawMessage `json:"template_params,omitempty"`
}

// Private reports whether the message should be posted as a private note.
func (m *Message) Private() bool {
	return m.MessageType == TypeNote
}
