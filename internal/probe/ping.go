package probe

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPingPath     = "/bin/ping"
	DefaultPingCount    = 2
	DefaultPingInterval = 500 * time.Millisecond
)

// ExecPinger shells out to ping(8): `<ping> -c <count> -i <interval> <target>`.
type ExecPinger struct {
	Logger   *zap.Logger
	Runner   CommandRunner
	Path     string
	Count    int
	Interval time.Duration
}

func NewExecPinger(logger *zap.Logger, path string) *ExecPinger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultPingPath
	}
	return &ExecPinger{
		Logger:   logger,
		Runner:   ExecRunner{},
		Path:     path,
		Count:    DefaultPingCount,
		Interval: DefaultPingInterval,
	}
}

func (p *ExecPinger) Args(target string) []string {
	count := p.Count
	if count < 1 {
		count = DefaultPingCount
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	return []string{
		"-c", strconv.Itoa(count),
		"-i", strconv.FormatFloat(interval.Seconds(), 'f', -1, 64),
		target,
	}
}

// CanPing is true only when ping exits 0. A launch failure (missing
// binary, permission denied) counts as unreachable.
func (p *ExecPinger) CanPing(ctx context.Context, target string) bool {
	code, err := p.Runner.Run(ctx, p.Path, p.Args(target)...)
	if err != nil {
		p.Logger.Debug("ping_launch_error",
			zap.String("path", p.Path),
			zap.String("target", target),
			zap.Error(err),
		)
		return false
	}
	p.Logger.Debug("ping_exit", zap.String("target", target), zap.Int("exit_code", code))
	return code == 0
}
