package store

import "context"

// TargetStore defines the database operations for configured webhook targets
// and the raw inbound-event log.
type TargetStore interface {
	// List returns every configured target, active or not.
	List(ctx context.Context) ([]Target, error)
	// ListActive returns only targets eligible for fan-out.
	ListActive(ctx context.Context) ([]Target, error)
	Create(ctx context.Context, name, url, verificationToken string) (*Target, error)
	Update(ctx context.Context, id, name, url string, active bool, verificationToken string) (*Target, error)
	// Delete reports whether a row was actually removed.
	Delete(ctx context.Context, id string) (bool, error)

	// SaveReceived stores the raw payload of one inbound event.
	SaveReceived(ctx context.Context, payload []byte) (*ReceivedWebhook, error)
	RecentReceived(ctx context.Context, limit int) ([]ReceivedWebhook, error)
}
