package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/nettester/internal/domain"
	"github.com/hamed0406/nettester/internal/repo"
)

// Alerts keeps alert state per interface.
type Alerts struct {
	mu sync.Mutex
	m  map[string]repo.AlertRecord
}

func NewAlerts() *Alerts {
	return &Alerts{m: make(map[string]repo.AlertRecord)}
}

func (a *Alerts) Get(ctx context.Context, iface string) (*repo.AlertRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.m[iface]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (a *Alerts) Set(ctx context.Context, iface string, lastFault domain.Fault, sentAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec := repo.AlertRecord{Interface: iface, LastFault: lastFault}
	if !sentAt.IsZero() {
		rec.LastSentAt = &sentAt
	} else if prev, ok := a.m[iface]; ok {
		rec.LastSentAt = prev.LastSentAt
	}
	a.m[iface] = rec
	return nil
}
