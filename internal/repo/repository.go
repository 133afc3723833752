package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/nettester/internal/diagnose"
	"github.com/hamed0406/nettester/internal/domain"
)

// ErrRunInFlight is returned by Launch while another run is executing.
// Only one interface is diagnosed at a time.
var ErrRunInFlight = errors.New("a diagnosis is already running")

// RunStore keeps recent runs so consumers can find them by ID. Nothing is
// persisted across restarts.
type RunStore interface {
	// Launch calls start only if no run is in flight, and records the result.
	Launch(ctx context.Context, start func() *diagnose.Run) (*diagnose.Run, error)
	// Get returns nil, nil for an unknown id.
	Get(ctx context.Context, id string) (*diagnose.Run, error)
	// List returns summaries, newest first.
	List(ctx context.Context) ([]domain.RunSummary, error)
}
