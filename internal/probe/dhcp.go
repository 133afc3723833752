package probe

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultDHCPPath    = "/sbin/dhcpcd"
	DefaultDHCPTimeout = 8 * time.Second
)

// ExecDHCPTester runs dhcpcd in test mode: `<dhcpcd> -T <iface> -t <secs>`.
// Nothing is configured on the interface; only the exit status matters.
type ExecDHCPTester struct {
	Logger  *zap.Logger
	Runner  CommandRunner
	Path    string
	Timeout time.Duration
}

func NewExecDHCPTester(logger *zap.Logger, path string) *ExecDHCPTester {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultDHCPPath
	}
	return &ExecDHCPTester{
		Logger:  logger,
		Runner:  ExecRunner{},
		Path:    path,
		Timeout: DefaultDHCPTimeout,
	}
}

func (d *ExecDHCPTester) Args(iface string) []string {
	secs := int(d.Timeout / time.Second)
	if secs < 1 {
		secs = int(DefaultDHCPTimeout / time.Second)
	}
	return []string{"-T", iface, "-t", strconv.Itoa(secs)}
}

func (d *ExecDHCPTester) TestDHCP(ctx context.Context, iface string) bool {
	code, err := d.Runner.Run(ctx, d.Path, d.Args(iface)...)
	if err != nil {
		d.Logger.Debug("dhcp_launch_error",
			zap.String("path", d.Path),
			zap.String("interface", iface),
			zap.Error(err),
		)
		return false
	}
	d.Logger.Debug("dhcp_exit", zap.String("interface", iface), zap.Int("exit_code", code))
	return code == 0
}
