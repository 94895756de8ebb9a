package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store] for tests and single-node deployments.
// Records are cloned on the way in and out.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	byUser  map[string]map[string]struct{}
	now     func() time.Time
}

// NewMemoryStore returns an empty [MemoryStore]. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		records: make(map[string]*Record),
		byUser:  make(map[string]map[string]struct{}),
		now:     now,
	}
}

func userIndexKey(tenantID, userID string) string {
	return NormalizeTenantID(tenantID) + ":" + userID
}

func (m *MemoryStore) Put(_ context.Context, r *Record) error {
	if r == nil || r.Handle == "" {
		return errors.New("put: record requires a handle")
	}
	if r.Expired(m.now().UnixMilli()) {
		return errors.New("put: record already expired")
	}
	if _, err := Encode(r); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.records[r.Handle]; ok {
		m.unindexLocked(old)
	}
	m.records[r.Handle] = r.Clone()
	idx := userIndexKey(r.TenantID, r.UserID)
	if m.byUser[idx] == nil {
		m.byUser[idx] = make(map[string]struct{})
	}
	m.byUser[idx][r.Handle] = struct{}{}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, handle string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.liveLocked(handle)
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryStore) CompareAndSwap(_ context.Context, expected, next *Record) (bool, error) {
	if expected == nil || next == nil || expected.Handle != next.Handle {
		return false, errors.New("compare-and-swap: records must share a handle")
	}
	if _, err := Encode(next); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.liveLocked(expected.Handle)
	if !ok || cur.Revision != expected.Revision {
		return false, nil
	}
	stored := next.Clone()
	stored.Revision = expected.Revision + 1
	m.records[stored.Handle] = stored
	next.Revision = stored.Revision
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, handle string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.liveLocked(handle)
	if !ok {
		return false, nil
	}
	delete(m.records, handle)
	m.unindexLocked(r)
	return true, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, tenantID, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := userIndexKey(tenantID, userID)
	out := make([]string, 0, len(m.byUser[idx]))
	for handle := range m.byUser[idx] {
		if _, ok := m.liveLocked(handle); ok {
			out = append(out, handle)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Len returns the number of stored records, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// liveLocked returns the record for handle, evicting it when expired.
func (m *MemoryStore) liveLocked(handle string) (*Record, bool) {
	r, ok := m.records[handle]
	if !ok {
		return nil, false
	}
	if r.Expired(m.now().UnixMilli()) {
		delete(m.records, handle)
		m.unindexLocked(r)
		return nil, false
	}
	return r, true
}

func (m *MemoryStore) unindexLocked(r *Record) {
	idx := userIndexKey(r.TenantID, r.UserID)
	set := m.byUser[idx]
	delete(set, r.Handle)
	if len(set) == 0 {
		delete(m.byUser, idx)
	}
}
