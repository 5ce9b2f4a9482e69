// Package sync implements the reconciliation engine that keeps one Asana
// project and one Google Tasks list convergent. Each cycle fetches both
// task sets, diffs them against the persisted correlation records, applies
// the minimal corrective writes, and commits the updated records.
package sync

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/model"
	"github.com/harrisonrobin/taskbridge/pkg/provider"
	"github.com/harrisonrobin/taskbridge/pkg/store"
)

// direction names which way field values flow for one operation.
type direction int

const (
	asanaToGoogle direction = iota
	googleToAsana
)

// Engine reconciles the two providers. It exclusively owns correlation
// record lifecycle; nothing else writes to the store.
type Engine struct {
	asana  provider.Provider
	google provider.Provider
	store  *store.Store
}

// NewEngine wires an engine to its two providers and the correlation
// store.
func NewEngine(asana, google provider.Provider, st *store.Store) *Engine {
	return &Engine{asana: asana, google: google, store: st}
}

// cycle is the working state of one RunCycle invocation: both provider
// snapshots, the loaded correlation records, and the running report.
// It is built fresh each cycle and never shared.
type cycle struct {
	records map[string]*store.Record
	idx     *store.Index
	asana   map[string]model.Task
	google  map[string]model.Task
	report  *Report

	// fatal is set when a credential failure shows up mid-cycle; the
	// remaining write phases are skipped but successful work still
	// commits.
	fatal error
}

// RunCycle executes one fetch-diff-write-persist pass.
//
// If either fetch fails the cycle aborts with no writes and the store
// untouched. Per-task write failures are isolated: they are logged,
// recorded on the report, and the affected record is left for retry on
// the next cycle. The store is saved once, after all write attempts.
func (e *Engine) RunCycle(ctx context.Context) (*Report, error) {
	start := time.Now()

	records, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	// Fail-closed: partial reads must never drive partial writes.
	asanaTasks, err := e.asana.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("asana fetch failed: %w", err)
	}
	googleTasks, err := e.google.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("google fetch failed: %w", err)
	}

	c := &cycle{
		records: records,
		idx:     store.BuildIndex(records),
		asana:   tasksByID(asanaTasks),
		google:  tasksByID(googleTasks),
		report:  &Report{},
	}

	e.matchKnownPairs(ctx, c)
	e.retryPendingCreates(ctx, c)
	e.discover(ctx, c)

	c.report.Duration = time.Since(start)

	if err := e.store.Save(c.records); err != nil {
		// Unconfirmed writes; the next cycle re-derives from provider
		// state and the last persisted snapshot.
		return c.report, fmt.Errorf("correlation store persist failed: %w", err)
	}
	if c.fatal != nil {
		return c.report, c.fatal
	}
	return c.report, nil
}

// matchKnownPairs handles every record with both ids set: unchanged,
// one-sided edits, conflicts, and deletions. It always completes before
// discovery starts.
func (e *Engine) matchKnownPairs(ctx context.Context, c *cycle) {
	for _, r := range sortedRecords(c.records) {
		if ctx.Err() != nil || c.fatal != nil {
			return
		}
		if r.AsanaID == "" || r.GoogleID == "" {
			continue
		}

		aTask, aOK := c.asana[r.AsanaID]
		gTask, gOK := c.google[r.GoogleID]
		switch {
		case aOK && gOK:
			if r.Status == store.StatusDeleted {
				// Should not happen: a record only enters the deleted
				// state once a side is gone, and ids are never reused.
				log.Printf("Warning: correlation %s marked deleted but both tasks exist", r.ID)
				continue
			}
			e.reconcilePair(ctx, c, r, aTask, gTask)
		case aOK:
			e.propagateDeletion(ctx, c, r, googleToAsana)
		case gOK:
			e.propagateDeletion(ctx, c, r, asanaToGoogle)
		default:
			// Both sides already gone; converged.
			delete(c.records, r.ID)
		}
	}
}

// reconcilePair diffs one correlated pair using the record's last-known
// timestamps as anchors. Timestamps from the two providers are never
// compared to each other except to break a genuine two-sided conflict.
func (e *Engine) reconcilePair(ctx context.Context, c *cycle, r *store.Record, aTask, gTask model.Task) {
	aChanged := aTask.UpdatedAt.After(r.AsanaUpdated)
	gChanged := gTask.UpdatedAt.After(r.GoogleUpdated)

	switch {
	case !aChanged && !gChanged:
		c.report.Unchanged++
	case aChanged && gChanged:
		c.report.Conflicts++
		// Last writer wins; an exact tie goes to Asana so repeated runs
		// of the same conflict always resolve the same way.
		if gTask.UpdatedAt.After(aTask.UpdatedAt) {
			e.propagateFields(ctx, c, r, gTask, aTask, googleToAsana)
		} else {
			e.propagateFields(ctx, c, r, aTask, gTask, asanaToGoogle)
		}
	case aChanged:
		e.propagateFields(ctx, c, r, aTask, gTask, asanaToGoogle)
	default:
		e.propagateFields(ctx, c, r, gTask, aTask, googleToAsana)
	}
}

// propagateFields pushes src's user-visible fields to the other side and
// advances the record's anchors on success. When the fields already
// match, only the anchors move: this is how the engine absorbs the
// timestamp bump its own previous write caused without issuing another.
func (e *Engine) propagateFields(ctx context.Context, c *cycle, r *store.Record, src, dst model.Task, dir direction) {
	if model.FieldsEqual(src, dst) {
		e.advanceAnchors(c, r, src, dst, dir)
		return
	}

	var err error
	if dir == asanaToGoogle {
		err = e.google.UpdateTask(ctx, r.GoogleID, src)
	} else {
		err = e.asana.UpdateTask(ctx, r.AsanaID, src)
	}

	switch {
	case provider.IsNotFound(err):
		// The target vanished between fetch and write; finish the
		// deletion next cycle when the snapshot confirms it.
		r.Status = store.StatusDeleted
		log.Printf("Update target for %q gone, deferring deletion", src.Title)
	case err != nil:
		e.recordFailure(c, fmt.Errorf("update %q (%s): %w", src.Title, dirLabel(dir), err))
	default:
		if dir == asanaToGoogle {
			c.report.UpdatedOnGoogle++
		} else {
			c.report.UpdatedOnAsana++
		}
		log.Printf("Propagated %q %s", src.Title, dirLabel(dir))
		e.advanceAnchors(c, r, src, dst, dir)
	}
}

// advanceAnchors records the observed timestamps as the new last-known
// values and settles the record into the synced state.
func (e *Engine) advanceAnchors(c *cycle, r *store.Record, src, dst model.Task, dir direction) {
	if dir == asanaToGoogle {
		r.AsanaUpdated = src.UpdatedAt
		r.GoogleUpdated = dst.UpdatedAt
	} else {
		r.AsanaUpdated = dst.UpdatedAt
		r.GoogleUpdated = src.UpdatedAt
	}
	r.Status = store.StatusSynced
}

// propagateDeletion removes the surviving side of a pair whose other side
// was deleted externally, then drops the record. dir names the flow of
// the deletion: asanaToGoogle deletes the Google task.
func (e *Engine) propagateDeletion(ctx context.Context, c *cycle, r *store.Record, dir direction) {
	r.Status = store.StatusDeleted

	var err error
	if dir == asanaToGoogle {
		err = e.google.DeleteTask(ctx, r.GoogleID)
	} else {
		err = e.asana.DeleteTask(ctx, r.AsanaID)
	}

	switch {
	case err == nil:
		if dir == asanaToGoogle {
			c.report.DeletedOnGoogle++
		} else {
			c.report.DeletedOnAsana++
		}
		log.Printf("Propagated deletion %s (correlation %s)", dirLabel(dir), r.ID)
		delete(c.records, r.ID)
	case provider.IsNotFound(err):
		// Already gone on both sides.
		delete(c.records, r.ID)
	default:
		// Record stays in the deleted state and the removal is retried
		// next cycle.
		e.recordFailure(c, fmt.Errorf("delete (%s, correlation %s): %w", dirLabel(dir), r.ID, err))
	}
}

// retryPendingCreates re-attempts counterpart creation for records whose
// create failed on an earlier cycle. A pending record whose source task
// has meanwhile disappeared is dropped: there is nothing left to mirror.
func (e *Engine) retryPendingCreates(ctx context.Context, c *cycle) {
	for _, r := range sortedRecords(c.records) {
		if ctx.Err() != nil || c.fatal != nil {
			return
		}
		switch r.Status {
		case store.StatusPendingCreateOnGoogle:
			src, ok := c.asana[r.AsanaID]
			if !ok {
				delete(c.records, r.ID)
				continue
			}
			e.createCounterpart(ctx, c, r, src, asanaToGoogle)
		case store.StatusPendingCreateOnAsana:
			src, ok := c.google[r.GoogleID]
			if !ok {
				delete(c.records, r.ID)
				continue
			}
			e.createCounterpart(ctx, c, r, src, googleToAsana)
		}
	}
}

// discover creates correlation records and counterparts for tasks no
// record references. Asana is always walked first, then Google; the
// fixed order keeps the outcome deterministic when both sides changed in
// the same interval. Two tasks with identical content created
// independently on both sides are not content-matched and will produce
// two correlated pairs.
func (e *Engine) discover(ctx context.Context, c *cycle) {
	for _, t := range sortedTasks(c.asana) {
		if ctx.Err() != nil || c.fatal != nil {
			return
		}
		if c.idx.ByAsanaID(t.ProviderID) != nil {
			continue
		}
		r := store.NewRecord(store.StatusPendingCreateOnGoogle)
		r.AsanaID = t.ProviderID
		r.AsanaUpdated = t.UpdatedAt
		c.records[r.ID] = r
		c.idx.Add(r)
		log.Printf("Discovered new Asana task %q", t.Title)
		e.createCounterpart(ctx, c, r, t, asanaToGoogle)
	}

	for _, t := range sortedTasks(c.google) {
		if ctx.Err() != nil || c.fatal != nil {
			return
		}
		if c.idx.ByGoogleID(t.ProviderID) != nil {
			continue
		}
		r := store.NewRecord(store.StatusPendingCreateOnAsana)
		r.GoogleID = t.ProviderID
		r.GoogleUpdated = t.UpdatedAt
		c.records[r.ID] = r
		c.idx.Add(r)
		log.Printf("Discovered new Google task %q", t.Title)
		e.createCounterpart(ctx, c, r, t, googleToAsana)
	}
}

// createCounterpart creates src's mirror on the opposite provider. On
// failure the record keeps its pending status and single id; it is never
// lost because the whole map commits at the end of the cycle regardless.
func (e *Engine) createCounterpart(ctx context.Context, c *cycle, r *store.Record, src model.Task, dir direction) {
	var id string
	var err error
	if dir == asanaToGoogle {
		id, err = e.google.CreateTask(ctx, src)
	} else {
		id, err = e.asana.CreateTask(ctx, src)
	}
	if err != nil {
		c.report.Pending++
		e.recordFailure(c, fmt.Errorf("create %q (%s): %w", src.Title, dirLabel(dir), err))
		return
	}

	if dir == asanaToGoogle {
		r.GoogleID = id
		r.AsanaUpdated = src.UpdatedAt
		// The counterpart's own updated timestamp is unknown until the
		// next fetch; a zero anchor makes the next cycle observe it and
		// settle without writing.
		r.GoogleUpdated = time.Time{}
		c.report.CreatedOnGoogle++
	} else {
		r.AsanaID = id
		r.GoogleUpdated = src.UpdatedAt
		r.AsanaUpdated = time.Time{}
		c.report.CreatedOnAsana++
	}
	r.Status = store.StatusSynced
	c.idx.Add(r)
	log.Printf("Created %q %s", src.Title, dirLabel(dir))
}

// recordFailure logs a per-task failure and, if it is a credential
// problem, stops issuing further writes this cycle: nothing else will
// succeed until the operator fixes the credentials.
func (e *Engine) recordFailure(c *cycle, err error) {
	c.report.Failures = append(c.report.Failures, err)
	log.Printf("Sync error: %v", err)
	if provider.IsCredential(err) {
		c.fatal = err
	}
}

func dirLabel(dir direction) string {
	if dir == asanaToGoogle {
		return "asana -> google"
	}
	return "google -> asana"
}

func tasksByID(tasks []model.Task) map[string]model.Task {
	out := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		out[t.ProviderID] = t
	}
	return out
}

// sortedRecords returns the records ordered by correlation id so every
// cycle processes them in the same order.
func sortedRecords(records map[string]*store.Record) []*store.Record {
	out := make([]*store.Record, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedTasks(tasks map[string]model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out
}
