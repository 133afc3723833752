package diagnose

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/nettester/internal/domain"
	"github.com/hamed0406/nettester/internal/events"
)

// Run is a diagnosis executing on its own goroutine. Consumers read
// Events at their own pace; nothing they do affects the decision tree.
type Run struct {
	ID        string
	Interface string
	Events    *events.Stream
	StartedAt time.Time

	done chan struct{}

	mu         sync.Mutex
	finishedAt time.Time
	gateway    string
	err        error
}

// Start launches a diagnosis of iface and returns immediately. There is
// no way to cancel a started run.
func (e *Engine) Start(iface string) *Run {
	id := uuid.NewString()
	r := &Run{
		ID:        id,
		Interface: iface,
		Events:    events.NewStream(id),
		StartedAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
	go func() {
		gw, err := e.run(context.Background(), iface, r.Events)

		r.mu.Lock()
		r.gateway = gw
		r.err = err
		r.finishedAt = time.Now().UTC()
		r.mu.Unlock()

		// Done before Finish, so a consumer that sees the end of the
		// stream always reads the final summary.
		close(r.done)
		r.Events.Finish()
	}()
	return r
}

func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run concludes and returns its result, as Engine.Run.
func (r *Run) Wait() error {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Run) Summary() domain.RunSummary {
	s := domain.RunSummary{
		ID:        r.ID,
		Interface: r.Interface,
		StartedAt: r.StartedAt,
		Verdict:   domain.VerdictRunning,
	}
	select {
	case <-r.done:
	default:
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fin := r.finishedAt
	s.FinishedAt = &fin
	s.Gateway = r.gateway
	switch f, ok := domain.AsFault(r.err); {
	case r.err == nil:
		s.Verdict = domain.VerdictOK
	case ok:
		s.Verdict = domain.VerdictFault
		s.Fault = f
	default:
		s.Verdict = domain.VerdictAborted
		s.Error = r.err.Error()
	}
	return s
}
