package model

import "time"

// Task is the normalized, provider-agnostic view of a task. One instance
// exists per task per provider; correlation records are the only link
// between the Asana copy and the Google copy of the same logical task.
type Task struct {
	Title      string
	Notes      string
	Completed  bool
	Due        time.Time
	UpdatedAt  time.Time
	ProviderID string
}

// FieldsEqual reports whether the user-visible fields of two tasks match.
// Provider ids and update timestamps are deliberately excluded so the
// engine can use this to skip no-op writes.
func FieldsEqual(a, b Task) bool {
	return a.Title == b.Title &&
		a.Notes == b.Notes &&
		a.Completed == b.Completed &&
		sameDue(a.Due, b.Due)
}

// sameDue compares due dates at day granularity. Google Tasks only stores
// the date portion of a due timestamp, so a round trip through Google
// truncates any time-of-day the Asana side carried.
func sameDue(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
