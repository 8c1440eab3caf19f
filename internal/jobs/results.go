package jobs

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Entry is one row of the result table.
type Entry struct {
	File    string `json:"file"`
	Success bool   `json:"success"`
}

// Results maps filenames to compile outcomes, iterated in the order files were
// first recorded. Recording a file again replaces its outcome in place.
type Results struct {
	m *linkedhashmap.Map
}

// NewResults returns an empty table.
func NewResults() *Results {
	return &Results{m: linkedhashmap.New()}
}

// Set records the outcome for file.
func (r *Results) Set(file string, ok bool) {
	r.m.Put(file, ok)
}

// Get returns the outcome for file and whether it was recorded.
func (r *Results) Get(file string) (ok bool, found bool) {
	v, found := r.m.Get(file)
	if !found {
		return false, false
	}
	return v.(bool), true
}

// Len returns the number of distinct files recorded.
func (r *Results) Len() int {
	return r.m.Size()
}

// Each calls fn for every entry in table order.
func (r *Results) Each(fn func(file string, ok bool)) {
	it := r.m.Iterator()
	for it.Next() {
		fn(it.Key().(string), it.Value().(bool))
	}
}

// Entries returns a snapshot of the table in order.
func (r *Results) Entries() []Entry {
	entries := make([]Entry, 0, r.Len())
	r.Each(func(file string, ok bool) {
		entries = append(entries, Entry{File: file, Success: ok})
	})
	return entries
}

// Failed returns the files whose last outcome was a failure, in table order.
func (r *Results) Failed() []string {
	var failed []string
	r.Each(func(file string, ok bool) {
		if !ok {
			failed = append(failed, file)
		}
	})
	return failed
}

// AllSucceeded reports whether every recorded outcome is a success. An empty
// table counts as success.
func (r *Results) AllSucceeded() bool {
	return len(r.Failed()) == 0
}
