// Package provider defines the contract both task backends implement and
// the error taxonomy the reconciliation engine keys its retry policy on.
package provider

import (
	"context"

	"github.com/harrisonrobin/taskbridge/pkg/model"
)

// Provider is a minimal typed wrapper over one task backend. Clients make
// exactly one remote round trip per call and never retry; retry policy
// belongs to the engine.
type Provider interface {
	// Name identifies the backend in logs and errors ("asana", "google").
	Name() string

	// ListTasks returns the full task set for the configured project or
	// tasklist. Fails with *UnavailableError on network or server errors.
	ListTasks(ctx context.Context) ([]model.Task, error)

	// CreateTask creates a task and returns its provider id.
	// Fails with *RejectedError on validation errors.
	CreateTask(ctx context.Context, task model.Task) (string, error)

	// UpdateTask overwrites the user-visible fields of an existing task.
	// Fails with *RejectedError or ErrNotFound.
	UpdateTask(ctx context.Context, id string, task model.Task) error

	// DeleteTask removes a task. ErrNotFound means the task was already
	// gone and is treated by callers as converged, not fatal.
	DeleteTask(ctx context.Context, id string) error
}
