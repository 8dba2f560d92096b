package config

import "time"

// DefaultWebhookBackoff is the delay schedule for forwarded webhooks: four
// immediate retries, then increasingly spaced ones. Its length is the
// maximum attempt count.
var DefaultWebhookBackoff = []time.Duration{
	0, 0, 0, 0,
	10 * time.Minute,
	30 * time.Minute,
	time.Hour,
	6 * time.Hour,
}

// DefaultMessageBackoff is the delay schedule for outbound chat messages.
var DefaultMessageBackoff = []time.Duration{
	0,
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
	time.Hour,
	6 * time.Hour,
}

// QueueSettings configures one retry-queue worker.
type QueueSettings struct {
	Backoff         []time.Duration `mapstructure:"backoff"`
	PollInterval    time.Duration   `mapstructure:"poll_interval"`
	BatchSize       int             `mapstructure:"batch_size"`
	DeliveryTimeout time.Duration   `mapstructure:"delivery_timeout"`
}

func (q *QueueSettings) applyDefaults(backoff []time.Duration) {
	if len(q.Backoff) == 0 {
		q.Backoff = backoff
	}
	if q.PollInterval <= 0 {
		q.PollInterval = 5 * time.Second
	}
	if q.BatchSize <= 0 {
		q.BatchSize = 10
	}
	if q.DeliveryTimeout <= 0 {
		q.DeliveryTimeout = 10 * time.Second
	}
}
