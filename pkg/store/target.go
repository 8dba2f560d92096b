package store

import "time"

// Target is a configured delivery destination for the webhook queue.
type Target struct {
	ID                string    `json:"id" bson:"_id"`
	Name              string    `json:"name" bson:"name"`
	URL               string    `json:"url" bson:"url"`
	Active            bool      `json:"is_active" bson:"is_active"`
	VerificationToken string    `json:"verification_token,omitempty" bson:"verification_token,omitempty"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

// ReceivedWebhook is the raw audit record of one inbound event.
type ReceivedWebhook struct {
	ID         string    `json:"id" bson:"_id"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
	Payload    []byte    `json:"payload" bson:"payload"`
}
