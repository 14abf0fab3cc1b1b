package store

import (
	"context"
	"sort"
	"sync"

	"conbadge/internal/model"
)

// MemoryBadgeStore keeps badge metadata in a map guarded by an RWMutex.
// RWMutex lets the read-heavy endpoints (list, image delivery) proceed
// concurrently while writes stay exclusive.
type MemoryBadgeStore struct {
	mu     sync.RWMutex
	badges map[string]model.BadgeRecord
}

// NewMemoryBadgeStore constructs a MemoryBadgeStore.
func NewMemoryBadgeStore() *MemoryBadgeStore {
	return &MemoryBadgeStore{badges: make(map[string]model.BadgeRecord)}
}

// FindByID returns a record copy so callers cannot mutate internal state.
func (m *MemoryBadgeStore) FindByID(_ context.Context, id string) (*model.BadgeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.badges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// FindByBadgeNo scans for the record carrying the external badge number.
func (m *MemoryBadgeStore) FindByBadgeNo(_ context.Context, badgeNo int) (*model.BadgeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.badges {
		if rec.BadgeNo == badgeNo {
			rec := rec
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// Insert stores a new record. The value is copied in, so later mutation of
// the caller's struct does not leak into the store.
func (m *MemoryBadgeStore) Insert(_ context.Context, rec *model.BadgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.badges[rec.ID] = *rec
	return nil
}

// Replace overwrites an existing record.
func (m *MemoryBadgeStore) Replace(_ context.Context, rec *model.BadgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.badges[rec.ID]; !ok {
		return ErrNotFound
	}
	m.badges[rec.ID] = *rec
	return nil
}

// List returns all records ordered by badge number for stable output.
func (m *MemoryBadgeStore) List(_ context.Context) ([]model.BadgeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.BadgeRecord, 0, len(m.badges))
	for _, rec := range m.badges {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BadgeNo < out[j].BadgeNo })
	return out, nil
}

// MemoryImageStore keeps derived image records in a map guarded by an
// RWMutex.
type MemoryImageStore struct {
	mu     sync.RWMutex
	images map[string]model.BadgeImageRecord
}

// NewMemoryImageStore constructs a MemoryImageStore.
func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{images: make(map[string]model.BadgeImageRecord)}
}

// FindByID returns a copy of the record; the payload slice is cloned as well
// since a []byte field survives struct copies by reference.
func (m *MemoryImageStore) FindByID(_ context.Context, id string) (*model.BadgeImageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.images[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Bytes = append([]byte(nil), rec.Bytes...)
	return &rec, nil
}

// Insert stores a new record with a cloned payload.
func (m *MemoryImageStore) Insert(_ context.Context, rec *model.BadgeImageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.Bytes = append([]byte(nil), rec.Bytes...)
	m.images[rec.ID] = cp
	return nil
}

// Replace overwrites an existing record with a cloned payload.
func (m *MemoryImageStore) Replace(_ context.Context, rec *model.BadgeImageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[rec.ID]; !ok {
		return ErrNotFound
	}
	cp := *rec
	cp.Bytes = append([]byte(nil), rec.Bytes...)
	m.images[rec.ID] = cp
	return nil
}
