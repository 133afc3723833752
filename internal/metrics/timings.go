package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
)

// ProbeTimings keeps a moving average of how long each probe kind takes.
type ProbeTimings struct {
	mu    sync.Mutex
	avg   map[string]ewma.MovingAverage
	count map[string]int64
	last  map[string]time.Duration
}

type ProbeTiming struct {
	Probe   string  `json:"probe"`
	Samples int64   `json:"samples"`
	AvgMS   float64 `json:"avg_ms"`
	LastMS  float64 `json:"last_ms"`
}

func NewProbeTimings() *ProbeTimings {
	return &ProbeTimings{
		avg:   make(map[string]ewma.MovingAverage),
		count: make(map[string]int64),
		last:  make(map[string]time.Duration),
	}
}

// Observe records one probe duration. A nil receiver is a no-op.
func (t *ProbeTimings) Observe(probe string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	a := t.avg[probe]
	if a == nil {
		a = ewma.NewMovingAverage()
		t.avg[probe] = a
	}
	a.Add(ms(d))
	t.count[probe]++
	t.last[probe] = d
}

// Snapshot returns one entry per probe kind, sorted by name.
func (t *ProbeTimings) Snapshot() []ProbeTiming {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ProbeTiming, 0, len(t.avg))
	for name, a := range t.avg {
		out = append(out, ProbeTiming{
			Probe:   name,
			Samples: t.count[name],
			AvgMS:   a.Value(),
			LastMS:  ms(t.last[name]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Probe < out[j].Probe })
	return out
}

func ms(d time.Duration) float64 {
	return d.Seconds() * 1000
}
