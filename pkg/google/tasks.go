package google

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/taskbridge/pkg/model"
	"github.com/harrisonrobin/taskbridge/pkg/provider"
)

const (
	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"

	// pageSize is the Tasks API maximum per list request.
	pageSize = 100
)

// TasksClient is a Google Tasks API client scoped to one tasklist.
type TasksClient struct {
	srv    *tasks.Service
	listID string
}

// NewTasksClient wraps an existing service and tasklist id.
func NewTasksClient(srv *tasks.Service, listID string) *TasksClient {
	return &TasksClient{srv: srv, listID: listID}
}

// Name implements provider.Provider.
func (c *TasksClient) Name() string { return "google" }

// ListTasks fetches every task in the list, completed and hidden ones
// included, following page tokens until exhausted. Tasks the API has
// already marked deleted are skipped.
func (c *TasksClient) ListTasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	pageToken := ""
	for {
		call := c.srv.Tasks.List(c.listID).
			ShowCompleted(true).
			ShowHidden(true).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, wrapErr(err)
		}
		for _, gt := range resp.Items {
			if gt.Deleted {
				continue
			}
			out = append(out, toModel(gt))
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

// CreateTask inserts a task into the list and returns its id.
func (c *TasksClient) CreateTask(ctx context.Context, task model.Task) (string, error) {
	created, err := c.srv.Tasks.Insert(c.listID, fromModel(task)).Context(ctx).Do()
	if err != nil {
		return "", wrapErr(err)
	}
	return created.Id, nil
}

// UpdateTask patches the user-visible fields of an existing task.
func (c *TasksClient) UpdateTask(ctx context.Context, id string, task model.Task) error {
	patch := fromModel(task)
	if !task.Completed {
		// Leaving Completed set would keep the task checked off.
		patch.NullFields = append(patch.NullFields, "Completed")
	}
	if task.Due.IsZero() {
		patch.NullFields = append(patch.NullFields, "Due")
	}
	if _, err := c.srv.Tasks.Patch(c.listID, id, patch).Context(ctx).Do(); err != nil {
		return wrapErr(err)
	}
	return nil
}

// DeleteTask removes a task from the list.
func (c *TasksClient) DeleteTask(ctx context.Context, id string) error {
	if err := c.srv.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func toModel(gt *tasks.Task) model.Task {
	out := model.Task{
		Title:      gt.Title,
		Notes:      gt.Notes,
		Completed:  gt.Status == statusCompleted,
		ProviderID: gt.Id,
	}
	if ts, err := time.Parse(time.RFC3339, gt.Updated); err == nil {
		out.UpdatedAt = ts
	}
	if gt.Due != "" {
		if ts, err := time.Parse(time.RFC3339, gt.Due); err == nil {
			out.Due = ts
		}
	}
	return out
}

func fromModel(task model.Task) *tasks.Task {
	gt := &tasks.Task{
		Title:  task.Title,
		Notes:  task.Notes,
		Status: statusNeedsAction,
		// Empty title or notes must still clear the remote field.
		ForceSendFields: []string{"Title", "Notes"},
	}
	if task.Completed {
		gt.Status = statusCompleted
	}
	if !task.Due.IsZero() {
		gt.Due = task.Due.UTC().Format(time.RFC3339)
	}
	return gt
}

// wrapErr maps Tasks API failures onto the provider error taxonomy.
// Credential errors raised below the API layer (by the token source)
// pass through unchanged.
func wrapErr(err error) error {
	if provider.IsCredential(err) || provider.IsUnavailable(err) {
		return err
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &provider.UnavailableError{Provider: "google", Err: err}
	}
	switch {
	case gerr.Code == 401 || gerr.Code == 403:
		return &provider.CredentialError{Provider: "google", Err: gerr}
	case gerr.Code == 404:
		return provider.ErrNotFound
	case gerr.Code >= 500 || gerr.Code == 429:
		return &provider.UnavailableError{Provider: "google", Status: gerr.Code}
	default:
		return &provider.RejectedError{Provider: "google", Status: gerr.Code, Detail: gerr.Message}
	}
}
