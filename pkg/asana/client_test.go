package asana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskbridge/pkg/model"
	"github.com/harrisonrobin/taskbridge/pkg/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("secret-token", "proj-1")
	c.baseURL = srv.URL
	return c
}

func TestListTasksPagination(t *testing.T) {
	var authHeader string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		assert.Equal(t, "/projects/proj-1/tasks", r.URL.Path)

		if r.URL.Query().Get("offset") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{
					"gid":         "t1",
					"name":        "First",
					"notes":       "note",
					"completed":   false,
					"modified_at": "2025-02-01T10:00:00.000Z",
				}},
				"next_page": map[string]any{"offset": "abc123"},
			})
			return
		}
		assert.Equal(t, "abc123", r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{
				"gid":         "t2",
				"name":        "Second",
				"completed":   true,
				"modified_at": "2025-02-02T10:00:00.000Z",
				"due_on":      "2025-02-14",
			}},
		})
	})

	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", authHeader)
	require.Len(t, tasks, 2)

	assert.Equal(t, "t1", tasks[0].ProviderID)
	assert.Equal(t, "First", tasks[0].Title)
	assert.Equal(t, "note", tasks[0].Notes)
	assert.False(t, tasks[0].Completed)

	assert.Equal(t, "t2", tasks[1].ProviderID)
	assert.True(t, tasks[1].Completed)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), tasks[1].Due)
}

func TestCreateTask(t *testing.T) {
	var body map[string]map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"gid": "new-1"}})
	})

	id, err := c.CreateTask(context.Background(), model.Task{
		Title:     "Buy milk",
		Notes:     "2%",
		Completed: false,
		Due:       time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "new-1", id)

	data := body["data"]
	assert.Equal(t, "Buy milk", data["name"])
	assert.Equal(t, "2%", data["notes"])
	assert.Equal(t, false, data["completed"])
	assert.Equal(t, "2025-05-01", data["due_on"])
	assert.Equal(t, []any{"proj-1"}, data["projects"])
}

func TestUpdateTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tasks/t9", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"gid": "t9"}})
	})

	err := c.UpdateTask(context.Background(), "t9", model.Task{Title: "Renamed", Completed: true})
	require.NoError(t, err)
}

func TestDeleteTaskNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		http.Error(w, `{"errors":[{"message":"Not Found"}]}`, http.StatusNotFound)
	})

	err := c.DeleteTask(context.Background(), "gone")
	assert.True(t, provider.IsNotFound(err))
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"server error is transient", http.StatusInternalServerError, func(t *testing.T, err error) {
			assert.True(t, provider.IsUnavailable(err))
		}},
		{"rate limit is transient", http.StatusTooManyRequests, func(t *testing.T, err error) {
			assert.True(t, provider.IsUnavailable(err))
		}},
		{"unauthorized is a credential problem", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.True(t, provider.IsCredential(err))
		}},
		{"validation failure is a rejection", http.StatusBadRequest, func(t *testing.T, err error) {
			var re *provider.RejectedError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, http.StatusBadRequest, re.Status)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			_, err := c.ListTasks(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestToModelDueAtWinsOverDueOn(t *testing.T) {
	at := task{
		GID:        "t1",
		Name:       "x",
		ModifiedAt: "2025-02-01T10:00:00.000Z",
		DueOn:      "2025-02-10",
		DueAt:      "2025-02-10T17:30:00.000Z",
	}
	m := at.toModel()
	assert.Equal(t, time.Date(2025, 2, 10, 17, 30, 0, 0, time.UTC), m.Due)
	assert.Equal(t, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC), m.UpdatedAt)
}
