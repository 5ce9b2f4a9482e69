package sync

import (
	"context"
	"fmt"
	"sort"
	stdsync "sync"
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/model"
	"github.com/harrisonrobin/taskbridge/pkg/provider"
)

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeProvider is an in-memory provider with scriptable failures and a
// log of every mutating call. The mutex only matters for the runner
// test, which observes state while the runner goroutine syncs.
type fakeProvider struct {
	mu     stdsync.Mutex
	name   string
	tasks  map[string]model.Task
	nextID int
	ops    int

	listErr    error
	failCreate map[string]error // keyed by task title
	failUpdate map[string]error // keyed by task id
	failDelete map[string]error // keyed by task id

	writes []string
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{
		name:       name,
		tasks:      make(map[string]model.Task),
		failCreate: make(map[string]error),
		failUpdate: make(map[string]error),
		failDelete: make(map[string]error),
	}
}

// seed installs a task directly, bypassing the call log, as if a user
// created it out of band. Returns the assigned id.
func (f *fakeProvider) seed(t model.Task) string {
	f.nextID++
	id := fmt.Sprintf("%s-%d", f.name, f.nextID)
	t.ProviderID = id
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = f.stamp()
	}
	f.tasks[id] = t
	return id
}

// touch overwrites a task's fields out of band and bumps its timestamp.
func (f *fakeProvider) touch(id string, mutate func(*model.Task)) {
	t := f.tasks[id]
	mutate(&t)
	t.UpdatedAt = f.stamp()
	f.tasks[id] = t
}

// stamp returns a strictly increasing server-side timestamp.
func (f *fakeProvider) stamp() time.Time {
	f.ops++
	return testEpoch.Add(time.Duration(f.ops) * time.Second)
}

func (f *fakeProvider) Name() string { return f.name }

// taskCount is safe to call while another goroutine is syncing.
func (f *fakeProvider) taskCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *fakeProvider) ListTasks(ctx context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}

func (f *fakeProvider) CreateTask(ctx context.Context, task model.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failCreate[task.Title]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("%s-%d", f.name, f.nextID)
	task.ProviderID = id
	task.UpdatedAt = f.stamp()
	f.tasks[id] = task
	f.writes = append(f.writes, "create:"+task.Title)
	return id, nil
}

func (f *fakeProvider) UpdateTask(ctx context.Context, id string, task model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpdate[id]; err != nil {
		return err
	}
	if _, ok := f.tasks[id]; !ok {
		return provider.ErrNotFound
	}
	task.ProviderID = id
	task.UpdatedAt = f.stamp()
	f.tasks[id] = task
	f.writes = append(f.writes, "update:"+id)
	return nil
}

func (f *fakeProvider) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDelete[id]; err != nil {
		return err
	}
	if _, ok := f.tasks[id]; !ok {
		return provider.ErrNotFound
	}
	delete(f.tasks, id)
	f.writes = append(f.writes, "delete:"+id)
	return nil
}
