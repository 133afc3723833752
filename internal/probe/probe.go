package probe

import (
	"context"
	"errors"
	"os/exec"
)

// Pinger answers whether a host answers ICMP echo.
type Pinger interface {
	CanPing(ctx context.Context, target string) bool
}

// DHCPTester answers whether a DHCP lease can be obtained on an interface.
type DHCPTester interface {
	TestDHCP(ctx context.Context, iface string) bool
}

// CommandRunner starts an external tool and reports its exit status.
// A non-nil error means the process could not be launched at all.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (int, error)
}

// ExecRunner runs commands via os/exec with stdout and stderr discarded.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
