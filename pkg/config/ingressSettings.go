package config

// IngressSettings holds configuration for an optional broker-backed ingress
// consumer feeding the webhook fan-out. An empty Type disables it.
type IngressSettings struct {
	Type           string `mapstructure:"type" validate:"omitempty,oneof=rabbitmq gcp-pubsub redis"`
	URL            string `mapstructure:"url"`
	Queue          string `mapstructure:"queue"`
	ProjectID      string `mapstructure:"project_id"`      // GCP Pub/Sub
	SubscriptionID string `mapstructure:"subscription_id"` // GCP Pub/Sub
	Key            string `mapstructure:"key"`             // Redis list key
}
