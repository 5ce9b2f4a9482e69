// Package google wraps the Google Tasks API for a single tasklist.
package google

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// NewClient builds a Tasks client bound to the tasklist with the given
// title. The tasklist is resolved once at startup; a missing list is a
// configuration error, not something to create silently.
func NewClient(ctx context.Context, httpClient *http.Client, listTitle string) (*TasksClient, error) {
	srv, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Tasks service: %v", err)
	}

	lists, err := srv.Tasklists.List().Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve tasklists: %w", wrapErr(err))
	}

	var listID string
	for _, item := range lists.Items {
		if item.Title == listTitle {
			listID = item.Id
			break
		}
	}
	if listID == "" {
		return nil, fmt.Errorf("tasklist '%s' not found", listTitle)
	}

	return NewTasksClient(srv, listID), nil
}
