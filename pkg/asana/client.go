// Package asana is a minimal Asana REST client scoped to the tasks of a
// single project.
package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/model"
	"github.com/harrisonrobin/taskbridge/pkg/provider"
)

const defaultBaseURL = "https://app.asana.com/api/1.0"

// pageSize is the maximum Asana allows per tasks request.
const pageSize = 100

// Client talks to the Asana API for one project, authenticated with a
// personal access token. It performs one round trip per call and no
// retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	projectGID string
}

// NewClient creates a client for the given project.
func NewClient(token, projectGID string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		projectGID: projectGID,
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return "asana" }

// ListTasks fetches every task in the project, following offset
// pagination until the backend reports no next page.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	offset := ""
	for {
		page, next, err := c.listPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, page...)
		if next == "" {
			break
		}
		offset = next
	}
	return tasks, nil
}

func (c *Client) listPage(ctx context.Context, offset string) ([]model.Task, string, error) {
	q := url.Values{}
	q.Set("opt_fields", "name,notes,completed,modified_at,due_on,due_at")
	q.Set("limit", fmt.Sprintf("%d", pageSize))
	if offset != "" {
		q.Set("offset", offset)
	}
	path := fmt.Sprintf("/projects/%s/tasks?%s", c.projectGID, q.Encode())

	var resp tasksResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, "", err
	}

	tasks := make([]model.Task, 0, len(resp.Data))
	for _, at := range resp.Data {
		tasks = append(tasks, at.toModel())
	}

	next := ""
	if resp.NextPage != nil {
		next = resp.NextPage.Offset
	}
	return tasks, next, nil
}

// CreateTask creates a task in the project and returns its gid.
func (c *Client) CreateTask(ctx context.Context, task model.Task) (string, error) {
	body := requestBody{Data: taskFields(task)}
	body.Data["projects"] = []string{c.projectGID}

	var resp taskResponse
	if err := c.do(ctx, http.MethodPost, "/tasks", body, &resp); err != nil {
		return "", err
	}
	return resp.Data.GID, nil
}

// UpdateTask overwrites the user-visible fields of an existing task.
func (c *Client) UpdateTask(ctx context.Context, id string, task model.Task) error {
	body := requestBody{Data: taskFields(task)}
	return c.do(ctx, http.MethodPut, "/tasks/"+id, body, nil)
}

// DeleteTask removes a task. A 404 surfaces as provider.ErrNotFound.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+id, nil, nil)
}

func taskFields(task model.Task) map[string]any {
	data := map[string]any{
		"name":      task.Title,
		"notes":     task.Notes,
		"completed": task.Completed,
	}
	if !task.Due.IsZero() {
		data["due_on"] = task.Due.UTC().Format("2006-01-02")
	}
	return data
}

// do issues one request and decodes the JSON response into out when out
// is non-nil. Non-2xx statuses are mapped onto the provider error
// taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode asana request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build asana request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.UnavailableError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return c.statusError(resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode asana response: %w", err)
		}
	}
	return nil
}

func (c *Client) statusError(status int, detail string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &provider.CredentialError{
			Provider: c.Name(),
			Err:      fmt.Errorf("status %d: %s", status, detail),
		}
	case status == http.StatusNotFound:
		return fmt.Errorf("asana: %w", provider.ErrNotFound)
	case status >= 500 || status == http.StatusTooManyRequests:
		return &provider.UnavailableError{Provider: c.Name(), Status: status}
	default:
		return &provider.RejectedError{Provider: c.Name(), Status: status, Detail: detail}
	}
}
