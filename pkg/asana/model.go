package asana

import (
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/model"
)

type task struct {
	GID        string `json:"gid"`
	Name       string `json:"name"`
	Notes      string `json:"notes"`
	Completed  bool   `json:"completed"`
	ModifiedAt string `json:"modified_at"`
	DueOn      string `json:"due_on"`
	DueAt      string `json:"due_at"`
}

type tasksResponse struct {
	Data     []task    `json:"data"`
	NextPage *nextPage `json:"next_page"`
}

type nextPage struct {
	Offset string `json:"offset"`
}

type taskResponse struct {
	Data task `json:"data"`
}

type requestBody struct {
	Data map[string]any `json:"data"`
}

const dueOnLayout = "2006-01-02"

// toModel normalizes an Asana task. Asana keeps name and notes as plain
// strings already, so only the timestamps need parsing. A due_at
// timestamp takes precedence over the coarser due_on date when both are
// present.
func (t task) toModel() model.Task {
	out := model.Task{
		Title:      t.Name,
		Notes:      t.Notes,
		Completed:  t.Completed,
		ProviderID: t.GID,
	}
	if ts, err := time.Parse(time.RFC3339, t.ModifiedAt); err == nil {
		out.UpdatedAt = ts
	}
	if t.DueAt != "" {
		if ts, err := time.Parse(time.RFC3339, t.DueAt); err == nil {
			out.Due = ts
		}
	}
	if out.Due.IsZero() && t.DueOn != "" {
		if ts, err := time.Parse(dueOnLayout, t.DueOn); err == nil {
			out.Due = ts
		}
	}
	return out
}
