package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/hamed0406/nettester/internal/config"
	"github.com/hamed0406/nettester/internal/console"
	"github.com/hamed0406/nettester/internal/diagnose"
	"github.com/hamed0406/nettester/internal/domain"
	"github.com/hamed0406/nettester/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: nettester <interface>")
		return 2
	}
	iface := args[0]

	cfg, err := config.Load(os.Getenv("NETTESTER_CONFIG"))
	if err != nil {
		fmt.Fprintln(stderr, "✖", err)
		return 1
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		fmt.Fprintln(stderr, "✖", err)
		return 1
	}
	defer logger.Sync()

	eng := diagnose.FromConfig(logger, cfg)
	logger.Info("cli_start", zap.String("interface", iface))
	return follow(eng.Start(iface), stdout, stderr)
}

// follow renders events until the run concludes. If stdout goes away the
// stream is closed, which aborts the run.
func follow(r *diagnose.Run, stdout, stderr io.Writer) int {
	var seq int64
	for done := false; !done; {
		var evs []domain.StatusEvent
		evs, done, _ = r.Events.Wait(context.Background(), seq)
		for _, ev := range evs {
			if err := console.Render(stdout, ev); err != nil {
				r.Events.Close()
				done = true
				break
			}
			seq = ev.Seq
		}
	}

	err := r.Wait()
	if err == nil {
		return 0
	}
	if _, ok := domain.AsFault(err); ok {
		return 1
	}
	fmt.Fprintln(stderr, "✖ diagnosis aborted:", err)
	return 1
}
