package store

import "time"

// Status represents the delivery status of a queued job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a job in this status is done for good.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Job represents one unit of delivery work in the retry queue.
type Job struct {
	ID            string     `json:"id" bson:"_id"`
	Queue         string     `json:"queue" bson:"queue"`
	TargetID      string     `json:"target_id,omitempty" bson:"target_id,omitempty"`
	Payload       []byte     `json:"payload" bson:"payload"`
	Status        Status     `json:"status" bson:"status"`
	AttemptCount  int        `json:"attempt_count" bson:"attempt_count"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty" bson:"next_attempt_at,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty" bson:"last_attempt_at,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty" bson:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}
