package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadColdStart(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing", "correlations.json"))
	records, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "correlations.json"))

	r1 := NewRecord(StatusSynced)
	r1.AsanaID = "a1"
	r1.GoogleID = "g1"
	r1.AsanaUpdated = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	r1.GoogleUpdated = time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC)

	r2 := NewRecord(StatusPendingCreateOnGoogle)
	r2.AsanaID = "a2"

	require.NoError(t, st.Save(map[string]*Record{r1.ID: r1, r2.ID: r2}))

	loaded, err := st.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, r1, loaded[r1.ID])
	assert.Equal(t, r2, loaded[r2.ID])
}

func TestSaveReplacesPreviousSet(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "correlations.json"))

	r := NewRecord(StatusSynced)
	r.AsanaID = "a1"
	r.GoogleID = "g1"
	require.NoError(t, st.Save(map[string]*Record{r.ID: r}))
	require.NoError(t, st.Save(map[string]*Record{}))

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// No stray temp file left behind.
	_, err = os.Stat(st.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "correlations.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := New(path).Load()
	assert.Error(t, err)
}

func TestNewRecordMintsUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		r := NewRecord(StatusPendingCreateOnAsana)
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}

func TestIndexLookups(t *testing.T) {
	paired := NewRecord(StatusSynced)
	paired.AsanaID = "a1"
	paired.GoogleID = "g1"

	pending := NewRecord(StatusPendingCreateOnGoogle)
	pending.AsanaID = "a2"

	deleted := NewRecord(StatusDeleted)
	deleted.AsanaID = "a3"
	deleted.GoogleID = "g3"

	idx := BuildIndex(map[string]*Record{
		paired.ID:  paired,
		pending.ID: pending,
		deleted.ID: deleted,
	})

	assert.Same(t, paired, idx.ByAsanaID("a1"))
	assert.Same(t, paired, idx.ByGoogleID("g1"))
	assert.Same(t, pending, idx.ByAsanaID("a2"))
	assert.Nil(t, idx.ByGoogleID("g2"))

	// Records pending deletion keep their ids reserved so the surviving
	// side is not re-discovered as a new task.
	assert.Same(t, deleted, idx.ByAsanaID("a3"))
	assert.Same(t, deleted, idx.ByGoogleID("g3"))
}

func TestIndexAdd(t *testing.T) {
	idx := BuildIndex(nil)
	r := NewRecord(StatusPendingCreateOnGoogle)
	r.AsanaID = "a9"
	idx.Add(r)
	assert.Same(t, r, idx.ByAsanaID("a9"))

	r.GoogleID = "g9"
	idx.Add(r)
	assert.Same(t, r, idx.ByGoogleID("g9"))
}
