package sync

import (
	"fmt"
	"time"
)

// Report summarizes one sync cycle.
type Report struct {
	CreatedOnAsana  int
	CreatedOnGoogle int
	UpdatedOnAsana  int
	UpdatedOnGoogle int
	DeletedOnAsana  int
	DeletedOnGoogle int
	Conflicts       int
	Pending         int
	Unchanged       int
	Duration        time.Duration

	// Failures holds per-task errors that did not abort the cycle.
	Failures []error
}

// Writes returns the total number of mutations applied this cycle.
func (r *Report) Writes() int {
	return r.CreatedOnAsana + r.CreatedOnGoogle +
		r.UpdatedOnAsana + r.UpdatedOnGoogle +
		r.DeletedOnAsana + r.DeletedOnGoogle
}

// Summary renders a single log line for the runner.
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"created %d/%d, updated %d/%d, deleted %d/%d (asana/google), %d conflicts, %d pending, %d failures in %s",
		r.CreatedOnAsana, r.CreatedOnGoogle,
		r.UpdatedOnAsana, r.UpdatedOnGoogle,
		r.DeletedOnAsana, r.DeletedOnGoogle,
		r.Conflicts, r.Pending, len(r.Failures),
		r.Duration.Round(time.Millisecond),
	)
}
