// Package relationship keeps foreign key references consistent across an anonymization run.
package relationship

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/faker"
	"github.com/shopmonkeyus/go-common/logger"
)

// maxAttempts bounds the search for an unused identifier in one column.
const maxAttempts = 1000

// IdentityMapping is a snapshot of the original to anonymized values of one column.
type IdentityMapping struct {
	Key     internal.ColumnKey
	entries map[string]any
}

// Get returns the anonymized value of the original.
func (m *IdentityMapping) Get(original any) (any, bool) {
	v, ok := m.entries[Canonical(original)]
	if ok {
		return Coerce(v, original), true
	}
	return nil, false
}

// Len returns the number of mapped values.
func (m *IdentityMapping) Len() int {
	return len(m.entries)
}

type store struct {
	mu      sync.Mutex
	forward map[string]any
	used    map[string]bool
}

func newStore() *store {
	return &store{
		forward: make(map[string]any),
		used:    make(map[string]bool),
	}
}

func (s *store) snapshot(key internal.ColumnKey) *IdentityMapping {
	entries := make(map[string]any, len(s.forward))
	for k, v := range s.forward {
		entries[k] = v
	}
	return &IdentityMapping{Key: key, entries: entries}
}

// Stats are the counters of a manager.
type Stats struct {
	Relationships       int
	IdentityColumns     int
	IdentifiersRemapped int
	ReferencesRewritten int
	DanglingReferences  int
}

// Manager owns the relationship declarations and the identity mappings of a single run. Calls for the same
// column are serialized, calls for different columns run in parallel.
type Manager struct {
	logger logger.Logger
	gen    *faker.Generator

	mu            sync.RWMutex
	relationships []internal.ForeignKeyRelationship
	bySource      map[internal.ColumnKey]internal.ForeignKeyRelationship
	targets       map[internal.ColumnKey]bool
	aliases       map[internal.ColumnKey]internal.ColumnKey
	stores        map[internal.ColumnKey]*store

	remapped  atomic.Int64
	rewritten atomic.Int64
	dangling  atomic.Int64
}

// New returns an empty manager.
func New(logger logger.Logger, gen *faker.Generator) *Manager {
	return &Manager{
		logger:   logger.WithPrefix("[relationship]"),
		gen:      gen,
		bySource: make(map[internal.ColumnKey]internal.ForeignKeyRelationship),
		targets:  make(map[internal.ColumnKey]bool),
		aliases:  make(map[internal.ColumnKey]internal.ColumnKey),
		stores:   make(map[internal.ColumnKey]*store),
	}
}

// RegisterRelationships adds the relationships to the known set. Exact duplicates are ignored and a source
// column declared against two different targets is a configuration error.
func (m *Manager) RegisterRelationships(relationships ...internal.ForeignKeyRelationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range relationships {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.Type == "" {
			r.Type = internal.ManyToOne
		}
		if found, ok := m.bySource[r.Source()]; ok {
			if found.Target() != r.Target() {
				return internal.NewConfigurationError("%s is declared against both %s and %s", r.Source(), found.Target(), r.Target())
			}
			continue
		}
		m.bySource[r.Source()] = r
		m.targets[r.Target()] = true
		m.relationships = append(m.relationships, r)
		m.logger.Trace("registered relationship %s", r)
	}
	return nil
}

// Relationships returns the registered relationships in registration order.
func (m *Manager) Relationships() []internal.ForeignKeyRelationship {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]internal.ForeignKeyRelationship, len(m.relationships))
	copy(res, m.relationships)
	return res
}

// RelationshipFor returns the relationship declared from the column, if any.
func (m *Manager) RelationshipFor(table, column string) (internal.ForeignKeyRelationship, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.bySource[internal.ColumnKey{Table: table, Column: column}]
	return r, ok
}

// IsIdentityColumn returns true if the column is referenced by at least one relationship.
func (m *Manager) IsIdentityColumn(table, column string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.targets[internal.ColumnKey{Table: table, Column: column}]
}

// IdentityColumns returns every referenced column sorted by table and column.
func (m *Manager) IdentityColumns() []internal.ColumnKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]internal.ColumnKey, 0, len(m.targets))
	for k := range m.targets {
		res = append(res, k)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Table != res[j].Table {
			return res[i].Table < res[j].Table
		}
		return res[i].Column < res[j].Column
	})
	return res
}

// Alias makes the column resolve its mapping through the target column.
func (m *Manager) Alias(table, column, targetTable, targetColumn string) error {
	from := internal.ColumnKey{Table: table, Column: column}
	to := internal.ColumnKey{Table: targetTable, Column: targetColumn}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolve(to) == from {
		return internal.NewConfigurationError("alias of %s to %s is circular", from, to)
	}
	if s, ok := m.stores[from]; ok && len(s.forward) > 0 {
		return errors.Newf("cannot alias %s after its mapping was created", from)
	}
	m.aliases[from] = to
	m.logger.Trace("aliased %s to %s", from, to)
	return nil
}

// resolve must be called with the lock held.
func (m *Manager) resolve(key internal.ColumnKey) internal.ColumnKey {
	for i := 0; i <= len(m.aliases); i++ {
		next, ok := m.aliases[key]
		if !ok {
			return key
		}
		key = next
	}
	return key
}

func (m *Manager) store(table, column string, create bool) (internal.ColumnKey, *store) {
	key := internal.ColumnKey{Table: table, Column: column}
	m.mu.RLock()
	key = m.resolve(key)
	s := m.stores[key]
	m.mu.RUnlock()
	if s != nil || !create {
		return key, s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key = m.resolve(key)
	if s = m.stores[key]; s == nil {
		s = newStore()
		m.stores[key] = s
	}
	return key, s
}

// CreateIdMapping assigns a new identifier to every distinct value not mapped yet and returns the full
// mapping of the column. Nil values are ignored.
func (m *Manager) CreateIdMapping(table, column string, values []any) (*IdentityMapping, error) {
	key, s := m.store(table, column, true)
	s.mu.Lock()
	defer s.mu.Unlock()
	var created int
	for _, v := range values {
		if v == nil {
			continue
		}
		k := Canonical(v)
		if _, ok := s.forward[k]; ok {
			continue
		}
		nv, err := m.uniqueIdentifier(s, k, v)
		if err != nil {
			return nil, errors.Wrapf(err, "identity mapping for %s", key)
		}
		s.forward[k] = nv
		s.used[Canonical(nv)] = true
		created++
	}
	m.remapped.Add(int64(created))
	if created > 0 {
		m.logger.Debug("created %d identifiers for %s", created, key)
	}
	return s.snapshot(key), nil
}

func (m *Manager) uniqueIdentifier(s *store, canonical string, original any) (any, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		nv, err := newIdentifier(m.gen, original, attempt)
		if err != nil {
			return nil, err
		}
		ck := Canonical(nv)
		if ck == canonical || s.used[ck] {
			continue
		}
		return nv, nil
	}
	return nil, errors.Newf("no unused identifier found after %d attempts", maxAttempts)
}

// Mapping returns a snapshot of the mapping of the column.
func (m *Manager) Mapping(table, column string) (*IdentityMapping, bool) {
	key, s := m.store(table, column, false)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(key), true
}

// Identifier returns the anonymized value of original in the column without counting it as a rewritten
// reference. It is used for the identity column itself.
func (m *Manager) Identifier(table, column string, original any) (any, bool) {
	if original == nil {
		return nil, true
	}
	_, s := m.store(table, column, false)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	v, ok := s.forward[Canonical(original)]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return Coerce(v, original), true
}

// Lookup returns the anonymized value of original in the column, in the Go representation of original. It
// never creates a mapping: a missing value is a *internal.DanglingReferenceError.
func (m *Manager) Lookup(table, column string, original any) (any, error) {
	if original == nil {
		return nil, nil
	}
	_, s := m.store(table, column, false)
	if s != nil {
		s.mu.Lock()
		v, ok := s.forward[Canonical(original)]
		s.mu.Unlock()
		if ok {
			m.rewritten.Add(1)
			return Coerce(v, original), nil
		}
	}
	m.dangling.Add(1)
	return nil, &internal.DanglingReferenceError{TargetTable: table, TargetColumn: column, Value: original}
}

// Stats returns the counters of the manager.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Relationships:       len(m.relationships),
		IdentityColumns:     len(m.targets),
		IdentifiersRemapped: int(m.remapped.Load()),
		ReferencesRewritten: int(m.rewritten.Load()),
		DanglingReferences:  int(m.dangling.Load()),
	}
}
