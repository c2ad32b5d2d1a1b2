package verification

import (
	"context"
	"sort"
	"sync"
)

// Disposition tells Registry.Do what to do with the record after the callback.
type Disposition int

const (
	// Keep leaves the record in the registry.
	Keep Disposition = iota
	// Remove deletes the record before its lock is released.
	Remove
)

type entry struct {
	lock    chan struct{}
	rec     *Record
	removed bool

	snapMu sync.RWMutex
	snap   Record
}

func (e *entry) snapshot() Record {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap.Snapshot()
}

func (e *entry) refresh() {
	snap := e.rec.Snapshot()
	e.snapMu.Lock()
	e.snap = snap
	e.snapMu.Unlock()
}

// Registry holds every pending verification keyed by an issued id. Ids start at
// zero and are never reused. Mutation of a record only happens through Do, which
// serializes callers per record.
type Registry struct {
	mu          sync.RWMutex
	nextID      uint64
	reserved    map[uint64]struct{}
	entries     map[uint64]*entry
	byRequester map[string]uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		reserved:    make(map[uint64]struct{}),
		entries:     make(map[uint64]*entry),
		byRequester: make(map[string]uint64),
	}
}

// IssueID reserves and returns a fresh id.
func (r *Registry) IssueID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.reserved[id] = struct{}{}
	return id
}

// Insert stores rec under a previously issued id. A requester may hold only one
// live record; a rejected insert retires the id.
func (r *Registry) Insert(id uint64, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return ErrDuplicateID
	}
	if _, ok := r.reserved[id]; !ok {
		if id < r.nextID {
			return ErrAlreadyResolved
		}
		return ErrIDNotIssued
	}
	delete(r.reserved, id)

	if rec.Requester.ID != "" {
		if other, ok := r.byRequester[rec.Requester.ID]; ok {
			return &PendingError{ID: other}
		}
		r.byRequester[rec.Requester.ID] = id
	}

	rec.ID = id
	e := &entry{lock: make(chan struct{}, 1), rec: rec}
	e.refresh()
	r.entries[id] = e
	return nil
}

// Get returns a snapshot of the record without waiting for in-flight actions.
func (r *Registry) Get(id uint64) (Record, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return Record{}, r.missing(id)
	}
	return e.snapshot(), nil
}

// Remove deletes the record, waiting for any in-flight Do on it.
func (r *Registry) Remove(id uint64) (Record, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return Record{}, r.missing(id)
	}

	e.lock <- struct{}{}
	defer func() { <-e.lock }()
	if e.removed {
		return Record{}, ErrAlreadyResolved
	}
	r.drop(id, e)
	return e.rec.Snapshot(), nil
}

// Do runs fn with exclusive access to the record. fn's changes become visible
// to Get once it returns. Returning Remove deletes the record even when fn also
// returns an error. Callers queued behind a removal get ErrAlreadyResolved.
func (r *Registry) Do(ctx context.Context, id uint64, fn func(rec *Record) (Disposition, error)) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return r.missing(id)
	}

	select {
	case e.lock <- struct{}{}:
	default:
		select {
		case e.lock <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer func() { <-e.lock }()

	if e.removed {
		return ErrAlreadyResolved
	}

	disposition, err := fn(e.rec)
	e.refresh()
	if disposition == Remove {
		r.drop(id, e)
	}
	return err
}

// PendingFor returns the id of the requester's live record, if any.
func (r *Registry) PendingFor(requesterID string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRequester[requesterID]
	return id, ok
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns snapshots of all live records ordered by id.
func (r *Registry) List() []Record {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// drop must be called with the entry lock held.
func (r *Registry) drop(id uint64, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.removed = true
	delete(r.entries, id)
	if owner, ok := r.byRequester[e.rec.Requester.ID]; ok && owner == id {
		delete(r.byRequester, e.rec.Requester.ID)
	}
}

func (r *Registry) missing(id uint64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.reserved[id]; ok {
		return ErrNotFound
	}
	if id < r.nextID {
		return ErrAlreadyResolved
	}
	return ErrNotFound
}
