// Package vault ranks, filters, imports and exports the records of a vault
// store and tracks the four generation-input slots.
package vault

import (
	"context"
	"fmt"
	"io"

	"github.com/yangwenmai/latentvault/internal/model"
	"github.com/yangwenmai/latentvault/internal/store"
)

// Service is the vault façade used by the API and the CLI. It does no logging;
// every error is returned to the caller.
type Service struct {
	store store.Repository
	slots *Slots
}

// NewService wraps an opened repository. slots may be nil when the caller has
// no generation session, e.g. the CLI.
func NewService(s store.Repository, slots *Slots) *Service {
	if slots == nil {
		slots = NewSlots()
	}
	return &Service{store: s, slots: slots}
}

// Slots returns the session's slot assignments.
func (s *Service) Slots() *Slots { return s.slots }

// Save stores rec, replacing any record with the same id.
func (s *Service) Save(ctx context.Context, rec model.Record) error {
	return s.store.Put(ctx, rec)
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Record, error) {
	return s.store.Get(ctx, id)
}

// FindByShortID returns the first record carrying shortID.
func (s *Service) FindByShortID(ctx context.Context, shortID string) (*model.Record, error) {
	return s.store.FindByShortID(ctx, shortID)
}

// Delete removes one record. Missing ids are ignored.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// DeleteMany removes the given records and returns how many existed.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	return s.store.DeleteMany(ctx, ids)
}

// Clear removes every record.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	return s.store.Clear(ctx)
}

// List returns the records of the given domain in display order.
func (s *Service) List(ctx context.Context, filter model.DomainFilter) ([]model.Record, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return List(all, filter), nil
}

// ToggleFavorite flips the favourite flag and returns the updated record.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (*model.Record, error) {
	return s.store.ToggleFavorite(ctx, id)
}

// IncrementUsage counts one use of the record with the given short id.
func (s *Service) IncrementUsage(ctx context.Context, shortID string) (*model.Record, error) {
	return s.store.IncrementUsage(ctx, shortID)
}

// CommitGrading replaces the grading snapshot of a record.
func (s *Service) CommitGrading(ctx context.Context, id string, g *model.Grading) (*model.Record, error) {
	return s.store.UpdateGrading(ctx, id, g)
}

// Summaries returns the collaborator view of every record in display order.
func (s *Service) Summaries(ctx context.Context) ([]model.Summary, error) {
	recs, err := s.List(ctx, model.FilterAll)
	if err != nil {
		return nil, err
	}
	out := make([]model.Summary, len(recs))
	for i := range recs {
		out[i] = recs[i].Summary()
	}
	return out, nil
}

// ResolveSlots resolves every slot against the current records.
func (s *Service) ResolveSlots(ctx context.Context) (map[model.Domain]*model.Record, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.slots.Resolve(all), nil
}

// Export writes every record, in storage order, as one JSON array.
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := EncodeRecords(w, all); err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	return len(all), nil
}

// Import parses the document in r and merges its records. Each record
// overwrites the stored record with the same id; nothing is de-duplicated by
// short id or prompt. A malformed document writes nothing. Individual record
// failures are reported in the result and do not undo the others.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	records, err := DecodeRecords(r)
	if err != nil {
		return ImportResult{}, err
	}
	res := s.store.BulkPut(ctx, records)
	return ImportResult{Merged: res.Written, Failed: res.Failed}, nil
}
