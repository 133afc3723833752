package repo

import (
	"context"
	"time"

	"github.com/hamed0406/nettester/internal/domain"
)

// AlertRecord holds the last verdict seen for an interface and the last
// time a notification was sent about it (used for cooldown).
type AlertRecord struct {
	Interface  string
	LastFault  domain.Fault // empty when the last run was healthy
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil if there's no record yet.
	Get(ctx context.Context, iface string) (*AlertRecord, error)
	// Set upserts the record. A zero sentAt keeps the previous send time.
	Set(ctx context.Context, iface string, lastFault domain.Fault, sentAt time.Time) error
}
