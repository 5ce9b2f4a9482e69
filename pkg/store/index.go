package store

// Index provides O(1) provider-id lookups over a loaded record set. It is
// rebuilt from the map at the start of each cycle and discarded with it;
// it never outlives the records it indexes.
//
// Records awaiting deletion stay indexed so a task whose counterpart is
// already gone is never mistaken for a newly discovered one.
type Index struct {
	byAsana  map[string]*Record
	byGoogle map[string]*Record
}

// BuildIndex indexes records by their provider ids.
func BuildIndex(records map[string]*Record) *Index {
	idx := &Index{
		byAsana:  make(map[string]*Record),
		byGoogle: make(map[string]*Record),
	}
	for _, r := range records {
		idx.Add(r)
	}
	return idx
}

// Add indexes a record created mid-cycle.
func (idx *Index) Add(r *Record) {
	if r.AsanaID != "" {
		idx.byAsana[r.AsanaID] = r
	}
	if r.GoogleID != "" {
		idx.byGoogle[r.GoogleID] = r
	}
}

// ByAsanaID returns the record referencing the given Asana task id.
func (idx *Index) ByAsanaID(id string) *Record { return idx.byAsana[id] }

// ByGoogleID returns the record referencing the given Google task id.
func (idx *Index) ByGoogleID(id string) *Record { return idx.byGoogle[id] }
