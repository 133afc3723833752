package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hamed0406/nettester/internal/domain"
)

// ErrStreamClosed is returned by Publish after the consumer went away.
var ErrStreamClosed = errors.New("event stream closed by consumer")

// Stream is the ordered event log of a single run. One producer publishes,
// any number of readers poll with Since or block with Wait. It is
// unbounded: Publish never waits on a reader.
type Stream struct {
	runID string

	mu       sync.Mutex
	events   []domain.StatusEvent
	changed  chan struct{} // closed and replaced on every change
	finished bool
	closed   bool
}

func NewStream(runID string) *Stream {
	return &Stream{
		runID:   runID,
		changed: make(chan struct{}),
	}
}

// Publish appends one event and assigns its sequence number and timestamp.
func (s *Stream) Publish(ev domain.StatusEvent) (domain.StatusEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ev, ErrStreamClosed
	}
	if s.finished {
		return ev, errors.New("publish after finish")
	}

	ev.Seq = int64(len(s.events)) + 1
	ev.RunID = s.runID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	s.events = append(s.events, ev)
	s.notifyLocked()
	return ev, nil
}

// Finish marks the producer as done. Further Wait calls return immediately.
func (s *Stream) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	s.notifyLocked()
}

// Close is called by a consumer that disconnected. Subsequent publishes
// fail with ErrStreamClosed.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.notifyLocked()
}

// Since returns events with sequence strictly greater than seq.
func (s *Stream) Since(seq int64) []domain.StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinceLocked(seq)
}

// Wait blocks until there are events after seq, the producer finished, or
// ctx is done. done reports that no further events will arrive.
func (s *Stream) Wait(ctx context.Context, seq int64) (evs []domain.StatusEvent, done bool, err error) {
	for {
		s.mu.Lock()
		evs = s.sinceLocked(seq)
		done = s.finished || s.closed
		ch := s.changed
		s.mu.Unlock()

		if len(evs) > 0 || done {
			return evs, done, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-ch:
		}
	}
}

// Finished reports whether the producer called Finish.
func (s *Stream) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *Stream) sinceLocked(seq int64) []domain.StatusEvent {
	if seq < 0 {
		seq = 0
	}
	if seq >= int64(len(s.events)) {
		return nil
	}
	out := make([]domain.StatusEvent, len(s.events)-int(seq))
	copy(out, s.events[seq:])
	return out
}

func (s *Stream) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
