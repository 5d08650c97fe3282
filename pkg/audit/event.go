// Package audit records configuration pushes as JSON-lines events.
package audit

import (
	"fmt"
	"time"
)

// Operations recorded by confpush.
const (
	OpSessionOpen = "session.open"
	OpJobCommit   = "job.commit"
	OpJobSkip     = "job.skip"
	OpJobFailed   = "job.failed"
)

// Event represents an auditable step of a run
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Device    string        `json:"device"`
	Operation string        `json:"operation"`
	Template  string        `json:"template,omitempty"`
	Format    string        `json:"format,omitempty"`
	Diff      string        `json:"diff,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, device, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Operation: operation,
	}
}

// WithJob sets the template path and load format.
func (e *Event) WithJob(template, format string) *Event {
	e.Template = template
	e.Format = format
	return e
}

// WithDiff records the diff shown to the operator.
func (e *Event) WithDiff(diff string) *Event {
	e.Diff = diff
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
