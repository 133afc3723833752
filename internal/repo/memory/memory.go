package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/nettester/internal/diagnose"
	"github.com/hamed0406/nettester/internal/domain"
	"github.com/hamed0406/nettester/internal/repo"
)

type Store struct {
	mu   sync.RWMutex
	keep int
	runs []*diagnose.Run // oldest first
	byID map[string]*diagnose.Run
}

// New returns a store that remembers at most keep runs.
func New(keep int) *Store {
	if keep < 1 {
		keep = 1
	}
	return &Store{
		keep: keep,
		runs: make([]*diagnose.Run, 0, keep),
		byID: make(map[string]*diagnose.Run),
	}
}

func (m *Store) Launch(ctx context.Context, start func() *diagnose.Run) (*diagnose.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.runs); n > 0 {
		select {
		case <-m.runs[n-1].Done():
		default:
			return nil, repo.ErrRunInFlight
		}
	}

	r := start()
	m.runs = append(m.runs, r)
	m.byID[r.ID] = r
	if len(m.runs) > m.keep {
		drop := len(m.runs) - m.keep
		for _, old := range m.runs[:drop] {
			delete(m.byID, old.ID)
		}
		m.runs = append([]*diagnose.Run(nil), m.runs[drop:]...)
	}
	return r, nil
}

func (m *Store) Get(ctx context.Context, id string) (*diagnose.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id], nil
}

func (m *Store) List(ctx context.Context) ([]domain.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.RunSummary, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		out = append(out, m.runs[i].Summary())
	}
	return out, nil
}
