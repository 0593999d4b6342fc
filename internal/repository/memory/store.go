// Package memory provides an arena-based in-memory backend for the node
// tree. Records are addressed by unique id and hold the parent link plus an
// ordered child id list; all traversal goes through id lookups, never live
// references. Mutations run as optimistic transactions: work is staged
// against a point-in-time snapshot and committed by swap after validating
// that no record touched by the transaction was changed by a concurrent
// writer.
package memory

import (
	"fmt"
	"sync"
	"time"

	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
)

// record is one arena entry. The node pointer and payload slices are treated
// as immutable once committed; staging replaces them wholesale.
type record struct {
	node     *models.Node
	children []string // ordered child unique ids
	pvs      []models.ConfigPv
	items    []models.SnapshotItem
	tags     []models.Tag
	version  uint64 // commit clock value of the last write
}

func (r *record) clone() *record {
	cp := &record{
		node:    r.node.Clone(),
		version: r.version,
	}
	cp.children = append([]string(nil), r.children...)
	cp.pvs = append([]models.ConfigPv(nil), r.pvs...)
	cp.items = append([]models.SnapshotItem(nil), r.items...)
	cp.tags = append([]models.Tag(nil), r.tags...)
	return cp
}

// Store is the in-memory NodeStore backend. The zero value is not usable;
// NewStore seeds the fixed-id root folder.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	clock   uint64 // logical commit counter
	nowFn   func() time.Time
}

// NewStore creates an empty store holding only the root folder.
func NewStore() *Store {
	s := &Store{
		records: make(map[string]*record),
		clock:   1,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	now := s.nowFn()
	s.records[models.RootUniqueID] = &record{
		node: &models.Node{
			UniqueID:     models.RootUniqueID,
			Name:         models.RootName,
			NodeType:     models.NodeTypeFolder,
			Created:      now,
			LastModified: now,
		},
		version: 1,
	}
	return s
}

// SetNowFunc overrides the store clock, for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

func (s *Store) now() time.Time {
	return s.nowFn()
}

// tx stages mutations against a snapshot of the arena taken at begin time.
// footprint maps every record id the transaction observed (read, wrote or
// found absent) to the version it observed; commit re-validates the whole
// footprint against the live arena.
type tx struct {
	store     *Store
	base      map[string]*record
	staged    map[string]*record // nil value = staged deletion
	footprint map[string]uint64
	done      bool
}

func (s *Store) begin() *tx {
	s.mu.RLock()
	defer s.mu.RUnlock()
	base := make(map[string]*record, len(s.records))
	for id, rec := range s.records {
		base[id] = rec
	}
	return &tx{
		store:     s,
		base:      base,
		staged:    make(map[string]*record),
		footprint: make(map[string]uint64),
	}
}

// get returns the record as the transaction sees it, recording the
// observation in the footprint. Returns nil if the record does not exist.
func (t *tx) get(id string) *record {
	if rec, ok := t.staged[id]; ok {
		// footprint already recorded when the record was first observed
		return rec
	}
	rec := t.base[id]
	if rec == nil {
		t.footprint[id] = 0
	} else {
		t.footprint[id] = rec.version
	}
	return rec
}

// forWrite returns a staged working copy of the record, cloning it on first
// write. Returns nil if the record does not exist.
func (t *tx) forWrite(id string) *record {
	if rec, ok := t.staged[id]; ok {
		return rec
	}
	rec := t.get(id)
	if rec == nil {
		return nil
	}
	cp := rec.clone()
	t.staged[id] = cp
	return cp
}

// put stages a new or replaced record.
func (t *tx) put(id string, rec *record) {
	if _, seen := t.footprint[id]; !seen {
		if base := t.base[id]; base != nil {
			t.footprint[id] = base.version
		} else {
			t.footprint[id] = 0
		}
	}
	t.staged[id] = rec
}

// delete stages a deletion.
func (t *tx) delete(id string) {
	t.get(id) // record the observation
	t.staged[id] = nil
}

// ids returns every live id as the transaction sees it. Scans do not take a
// whole-arena footprint; they only pin the records actually returned.
func (t *tx) ids() []string {
	out := make([]string, 0, len(t.base))
	for id := range t.base {
		if rec, ok := t.staged[id]; ok && rec == nil {
			continue
		}
		out = append(out, id)
	}
	for id, rec := range t.staged {
		if rec != nil {
			if _, inBase := t.base[id]; !inBase {
				out = append(out, id)
			}
		}
	}
	return out
}

// commit validates the footprint against the live arena and applies the
// staged changes atomically. A footprint mismatch means a concurrent writer
// invalidated a precondition; the caller sees domain.ErrConflict and no
// change is applied.
func (t *tx) commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if len(t.staged) == 0 {
		return nil
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, observed := range t.footprint {
		var current uint64
		if rec := s.records[id]; rec != nil {
			current = rec.version
		}
		if current != observed {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("node %s was modified concurrently", id),
				ResourceType: "node",
				ResourceID:   id,
			}
		}
	}

	s.clock++
	for id, rec := range t.staged {
		if rec == nil {
			delete(s.records, id)
			continue
		}
		rec.version = s.clock
		s.records[id] = rec
	}
	return nil
}

// view is the read/write surface repositories operate on. Inside an explicit
// transaction it is backed by the transaction's staged state; outside one,
// reads run directly against the live arena under the read lock and writes
// run as single-operation transactions.
type view struct {
	tx      *tx
	records map[string]*record // read-only path when tx is nil
	now     time.Time
}

func (v *view) get(id string) *record {
	if v.tx != nil {
		return v.tx.get(id)
	}
	return v.records[id]
}

func (v *view) forWrite(id string) *record {
	return v.tx.forWrite(id)
}

func (v *view) put(id string, rec *record) {
	v.tx.put(id, rec)
}

func (v *view) delete(id string) {
	v.tx.delete(id)
}

func (v *view) ids() []string {
	if v.tx != nil {
		return v.tx.ids()
	}
	out := make([]string, 0, len(v.records))
	for id := range v.records {
		out = append(out, id)
	}
	return out
}

// read runs fn against a consistent point-in-time view. When the context
// carries a transaction the transaction's view is used; otherwise the read
// lock is held for the duration of fn.
func (s *Store) read(ctx ctxArg, fn func(v *view) error) error {
	if t := txFrom(ctx); t != nil {
		return fn(&view{tx: t, now: s.now()})
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&view{records: s.records, now: s.now()})
}

// write runs fn with staged-write access. Without a transaction in the
// context the mutation commits immediately as its own transaction.
func (s *Store) write(ctx ctxArg, fn func(v *view) error) error {
	if t := txFrom(ctx); t != nil {
		return fn(&view{tx: t, now: s.now()})
	}
	t := s.begin()
	if err := fn(&view{tx: t, now: s.now()}); err != nil {
		return err
	}
	return t.commit()
}
