package batch

import "fmt"

// ProgressStatus is the state of one job.
type ProgressStatus string

const (
	ProgressPending   ProgressStatus = "pending"
	ProgressWorking   ProgressStatus = "working"
	ProgressComplete  ProgressStatus = "complete"
	ProgressUnchanged ProgressStatus = "unchanged"
	ProgressFailed    ProgressStatus = "failed"
)

// ProgressEvent reports a job state change.
type ProgressEvent struct {
	Job     string
	Status  ProgressStatus
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Job)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Job)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s merged (%s)", event.Job, event.Message)
		}
		return fmt.Sprintf("  ✓ %s merged", event.Job)
	case ProgressUnchanged:
		return fmt.Sprintf("  = %s unchanged", event.Job)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Job, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Job)
	}
}
