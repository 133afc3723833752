package domain

import (
	"fmt"
	"time"
)

// Severity tags a status event.
type Severity string

const (
	SeverityWorking Severity = "working"
	SeverityError   Severity = "error"
	SeverityGood    Severity = "good"
)

// Terminal reports whether an event of this severity concludes a run.
func (s Severity) Terminal() bool {
	return s == SeverityError || s == SeverityGood
}

// StatusEvent is one step of a diagnostic run. Seq and Timestamp are set
// by the event stream when the event is published.
type StatusEvent struct {
	Seq       int64     `json:"seq"`
	RunID     string    `json:"run_id,omitempty"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Fault     Fault     `json:"fault,omitempty"`
	Timestamp time.Time `json:"ts"`
}

func Working(format string, args ...any) StatusEvent {
	return StatusEvent{Severity: SeverityWorking, Message: fmt.Sprintf(format, args...)}
}

func Error(f Fault, format string, args ...any) StatusEvent {
	return StatusEvent{Severity: SeverityError, Fault: f, Message: fmt.Sprintf(format, args...)}
}

func Good(format string, args ...any) StatusEvent {
	return StatusEvent{Severity: SeverityGood, Message: fmt.Sprintf(format, args...)}
}

func (e StatusEvent) String() string {
	return fmt.Sprintf("%s: %s", e.Severity, e.Message)
}

// Verdict is the state of a run as seen by consumers.
type Verdict string

const (
	VerdictRunning Verdict = "running"
	VerdictOK      Verdict = "ok"
	VerdictFault   Verdict = "fault"
	VerdictAborted Verdict = "aborted" // fatal error, no diagnosis
)

type RunSummary struct {
	ID         string     `json:"id"`
	Interface  string     `json:"interface"`
	Gateway    string     `json:"gateway,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Verdict    Verdict    `json:"verdict"`
	Fault      Fault      `json:"fault,omitempty"`
	Error      string     `json:"error,omitempty"`
}
