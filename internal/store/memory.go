package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/yangwenmai/latentvault/internal/model"
)

var _ Repository = (*Memory)(nil)

// Memory is an in-process Repository with the same contract as Store. The
// mutex stands in for the database transaction. Records are copied on the
// way in and out.
type Memory struct {
	mu      sync.Mutex
	records map[string]model.Record
	order   []string
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]model.Record)}
}

func (m *Memory) Get(_ context.Context, id string) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, model.ErrNotFound)
	}
	c := rec.Clone()
	return &c, nil
}

func (m *Memory) GetAll(_ context.Context) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id].Clone())
	}
	return out, nil
}

func (m *Memory) FindByShortID(_ context.Context, shortID string) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.lookupShortID(shortID)
	if !ok {
		return nil, fmt.Errorf("short id %s: %w", shortID, model.ErrNotFound)
	}
	c := m.records[id].Clone()
	return &c, nil
}

func (m *Memory) Put(_ context.Context, rec model.Record) error {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		m.order = append(m.order, rec.ID)
	}
	m.records[rec.ID] = rec.Clone()
	return nil
}

func (m *Memory) BulkPut(ctx context.Context, recs []model.Record) BulkResult {
	return bulkPut(ctx, m, recs)
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(id)
	return nil
}

func (m *Memory) DeleteMany(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if m.remove(id) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Clear(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.order))
	m.records = make(map[string]model.Record)
	m.order = nil
	return n, nil
}

func (m *Memory) ToggleFavorite(_ context.Context, id string) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return nil, fmt.Errorf("id %s: %w", id, model.ErrNotFound)
	}
	return m.modify(id, toggleFavorite), nil
}

func (m *Memory) IncrementUsage(_ context.Context, shortID string) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.lookupShortID(shortID)
	if !ok {
		return nil, fmt.Errorf("short_id %s: %w", shortID, model.ErrNotFound)
	}
	return m.modify(id, incrementUsage), nil
}

func (m *Memory) UpdateGrading(_ context.Context, id string, g *model.Grading) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return nil, fmt.Errorf("id %s: %w", id, model.ErrNotFound)
	}
	if g != nil {
		c := *g
		g = &c
	}
	return m.modify(id, func(rec *model.Record) { rec.Grading = g }), nil
}

// modify must be called with mu held and id present.
func (m *Memory) modify(id string, fn func(*model.Record)) *model.Record {
	rec := m.records[id]
	fn(&rec)
	m.records[id] = rec
	c := rec.Clone()
	return &c
}

func (m *Memory) lookupShortID(shortID string) (string, bool) {
	for _, id := range m.order {
		if m.records[id].ShortID == shortID {
			return id, true
		}
	}
	return "", false
}

func (m *Memory) remove(id string) bool {
	if _, ok := m.records[id]; !ok {
		return false
	}
	delete(m.records, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return true
}
