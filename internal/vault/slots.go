package vault

import (
	"sync"

	"github.com/yangwenmai/latentvault/internal/model"
)

// Slots holds, per domain, the short id of the record that feeds the next
// generation request. References are not validated: a short id that no longer
// matches a record resolves as empty. Slots are session state and are never
// persisted.
type Slots struct {
	mu   sync.RWMutex
	refs map[model.Domain]string
}

// NewSlots returns four empty slots.
func NewSlots() *Slots {
	return &Slots{refs: make(map[model.Domain]string, len(model.Domains))}
}

// Set points the slot for domain at shortID. An empty shortID clears it.
func (s *Slots) Set(domain model.Domain, shortID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shortID == "" {
		delete(s.refs, domain)
		return
	}
	s.refs[domain] = shortID
}

// Clear empties the slot for domain.
func (s *Slots) Clear(domain model.Domain) {
	s.Set(domain, "")
}

// Get returns the stored reference for domain, or "" when unset.
func (s *Slots) Get(domain model.Domain) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refs[domain]
}

// Snapshot returns the raw references of every domain, including unset ones
// as "".
func (s *Slots) Snapshot() map[model.Domain]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.Domain]string, len(model.Domains))
	for _, d := range model.Domains {
		out[d] = s.refs[d]
	}
	return out
}

// Resolve looks up each slot reference in records by short id. Domains that
// are unset or whose reference has no match map to nil.
func (s *Slots) Resolve(records []model.Record) map[model.Domain]*model.Record {
	refs := s.Snapshot()
	out := make(map[model.Domain]*model.Record, len(refs))
	for d, ref := range refs {
		out[d] = nil
		if ref == "" {
			continue
		}
		for i := range records {
			if records[i].ShortID == ref {
				rec := records[i]
				out[d] = &rec
				break
			}
		}
	}
	return out
}
