// Package console prints status events for a terminal.
package console

import (
	"fmt"
	"io"

	"github.com/hamed0406/nettester/internal/domain"
)

func marker(s domain.Severity) string {
	switch s {
	case domain.SeverityGood:
		return "✔"
	case domain.SeverityError:
		return "✖"
	default:
		return "…"
	}
}

// Render writes one event as a single line.
func Render(w io.Writer, ev domain.StatusEvent) error {
	_, err := fmt.Fprintf(w, "%s %s\n", marker(ev.Severity), ev.Message)
	return err
}
